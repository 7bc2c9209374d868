package database

import _ "embed"

// Schema is the full schema extracted from the migrations, used by tests
// that need a ready database without running migrate.
//
//go:embed sqlc/schema.sql
var Schema string
