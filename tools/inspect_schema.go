package main

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/database"
)

// Prints the DDL gorm generates for the node tables, to keep
// data/initdb in step with the models.
func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// Auto-migrate to see what GORM creates
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var entries []struct {
		Name string
		SQL  string
	}
	err = db.Raw("SELECT name, sql FROM sqlite_master WHERE type IN ('table', 'index') AND sql IS NOT NULL ORDER BY type DESC, name").
		Scan(&entries).Error
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range entries {
		fmt.Printf("\n=== %s ===\n%s\n", e.Name, e.SQL)
	}
}
