// Command generate_schema migrates an in-memory database to the latest
// version and writes the resulting DDL for sqlc and the test harness.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bckt-go/internal/database"
	"bckt-go/internal/database/migrations"
)

// schemaQuery lists every user table and index, tables first.
const schemaQuery = `
	SELECT type, sql
	FROM sqlite_master
	WHERE type IN ('table', 'index')
	  AND sql IS NOT NULL
	  AND name NOT LIKE 'sqlite_%'
	  AND tbl_name != 'schema_migrations'
	ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, tbl_name, name
`

func main() {
	out := flag.String("out", filepath.Join("internal", "database", "sqlc", "schema.sql"), "schema file to write")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	version, _, err := migrations.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	ddl, err := dumpSchema(db)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("-- Generated from internal/database/migrations/files by tools/generate_schema.go.\n")
	fmt.Fprintf(&b, "-- Schema version %d. Regenerate with: go generate ./internal/database\n\n", version)
	b.WriteString(ddl)

	if err := os.WriteFile(out, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s (schema version %d)\n", out, version)
	return nil
}

func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(schemaQuery)
	if err != nil {
		return "", fmt.Errorf("querying sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	lastType := ""
	for rows.Next() {
		var kind, stmt string
		if err := rows.Scan(&kind, &stmt); err != nil {
			return "", fmt.Errorf("scanning schema row: %w", err)
		}
		if lastType != "" && kind != lastType {
			b.WriteString("\n")
		}
		lastType = kind
		b.WriteString(stmt)
		b.WriteString(";\n")
		if kind == "table" {
			b.WriteString("\n")
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading schema rows: %w", err)
	}
	return b.String(), nil
}
