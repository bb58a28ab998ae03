// json.go
//
// Versioned, soft-deletable hierarchical node store for the jam-build inventory tool
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-nodedb.
// jam-build-nodedb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-nodedb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-nodedb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is the open, schema-less node payload. It wraps gorm.io/datatypes.JSON
// so the column type can follow the dialect.
type JSON struct {
	datatypes.JSON
}

// NewJSON marshals a map into a JSON column value. A nil map becomes {}.
func NewJSON(m map[string]any) (JSON, error) {
	if m == nil {
		return EmptyJSON(), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return JSON{}, fmt.Errorf("invalid node data: %w", err)
	}
	return JSON{JSON: datatypes.JSON(raw)}, nil
}

// EmptyJSON returns the {} payload.
func EmptyJSON() JSON {
	return JSON{JSON: datatypes.JSON(`{}`)}
}

// Map decodes the payload. Non-object payloads yield an empty map.
func (j JSON) Map() map[string]any {
	out := map[string]any{}
	if len(j.JSON) == 0 {
		return out
	}
	_ = json.Unmarshal(j.JSON, &out)
	return out
}

// Text is the serialized form searched by substring queries.
func (j JSON) Text() string {
	return string(j.JSON)
}

// Equal compares payloads by value, ignoring formatting.
func (j JSON) Equal(other JSON) bool {
	if bytes.Equal(j.JSON, other.JSON) {
		return true
	}
	var a, b any
	if json.Unmarshal(j.JSON, &a) != nil || json.Unmarshal(other.JSON, &b) != nil {
		return false
	}
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return bytes.Equal(ra, rb)
}

// MarshalJSON renders the payload inline, {} when empty.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j.JSON) == 0 {
		return []byte(`{}`), nil
	}
	return j.JSON.MarshalJSON()
}

// UnmarshalJSON accepts any JSON object. null becomes {}.
func (j *JSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = EmptyJSON()
		return nil
	}
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("node data must be a JSON object: %w", err)
	}
	return j.JSON.UnmarshalJSON(data)
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	if len(j.JSON) == 0 {
		return "{}", nil
	}
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
// MSSQL does not support the 'json' data type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
