package db

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Open opens (creating if needed) the sqlite database at `path` and applies the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*sqlx.DB, error) {
	database, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer, and every connection to ":memory:" is its own database.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("pragma foreign_keys = on")
	if err != nil {
		database.Close()
		return nil, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
