package rvndb

import (
	"embed"
)

// sqlSchemas holds the table definitions applied when a store is created.
//
//go:embed sqlc/migrations/*.up.sql
var sqlSchemas embed.FS
