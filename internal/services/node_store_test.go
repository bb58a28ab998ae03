package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

func TestTranslateError_DuplicateKeys(t *testing.T) {
	dupes := []error{
		gorm.ErrDuplicatedKey,
		&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'title'"},
		fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
		errors.New("UNIQUE constraint failed: node_point.title"),
		errors.New("mssql: Cannot insert duplicate key row in object 'dbo.node_point'"),
	}
	for _, dup := range dupes {
		err := translateError(5, dup)
		require.ErrorIs(t, err, types.ErrConflict, dup.Error())
		assert.Equal(t, types.DuplicateNameMessage, err.Error())
	}
}

func TestTranslateError_Passthrough(t *testing.T) {
	assert.NoError(t, translateError(1, nil))

	nf := translateError(9, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, nf, types.ErrNotFound)

	cycle := types.CycleError(1, 2)
	assert.Same(t, cycle, translateError(1, cycle))

	other := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	assert.Equal(t, other, translateError(1, other))
}

func TestDialectHelpers_SQLite(t *testing.T) {
	db := setupTestDB(t)

	assert.Equal(t, "WITH RECURSIVE", withRecursive(db))
	assert.Equal(t, "UNION", recursiveUnion(db))
	assert.Same(t, db, lockForUpdate(db))
}

func TestSelectLineage_SurvivesCorruptedCycle(t *testing.T) {
	db := setupTestDB(t)

	a := models.NodePoint{Title: "A", Data: models.EmptyJSON(), Version: 1}
	require.NoError(t, db.Create(&a).Error)
	b := models.NodePoint{Title: "B", Parent: &a.ID, Data: models.EmptyJSON(), Version: 1}
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Model(&a).Update("parent", b.ID).Error)

	path, err := ancestorPath(db, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID, a.ID}, ids(path))

	records, err := selectDescendants(db, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{a.ID, b.ID}, ids(records))
}

func TestSiblingTitleTaken(t *testing.T) {
	db := setupTestDB(t)

	root := models.NodePoint{Title: "Org", Data: models.EmptyJSON(), Version: 1}
	require.NoError(t, db.Create(&root).Error)
	child := models.NodePoint{Title: "Dept A", Parent: &root.ID, Data: models.EmptyJSON(), Version: 1}
	require.NoError(t, db.Create(&child).Error)

	taken, err := siblingTitleTaken(db, &root.ID, "Dept A", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = siblingTitleTaken(db, &root.ID, "Dept A", child.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a node never clashes with itself")

	taken, err = siblingTitleTaken(db, nil, "Org", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = siblingTitleTaken(db, nil, "Dept A", 0)
	require.NoError(t, err)
	assert.False(t, taken)
}
