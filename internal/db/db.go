// Package db persists recognition sessions and gesture attempt outcomes to
// SQLite. The motion core never touches this package; the service shell
// records results through it after each cycle resolves.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle with the motionkit schema helpers.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the database at path and applies connection
// pragmas. Call MigrateUp before first use.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// modernc sqlite allows one writer; serialise access instead of
	// surfacing SQLITE_BUSY to callers.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{conn}, nil
}
