package data

import (
	_ "embed"
)

//go:embed initdb/mariadb/001-ddl-tables.sql
var InitdbMariaDBTables string

//go:embed initdb/postgres/001-ddl-tables.sql
var InitdbPostgresTables string
