package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteDialect = dialect{
	name:   "sqlite",
	schema: sqliteSchema,
	isUniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if errors.As(err, &se) {
			return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		}
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// WAL and a 5 s busy timeout are applied unless the DSN sets its own pragmas.
func NewSQLiteDB(dsn string) (*SQLDB, error) {
	const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if !strings.Contains(dsn, "?") {
		dsn += "?" + pragmas
	} else if !strings.Contains(dsn, "_pragma") {
		dsn += "&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newSQLDB(db, sqliteDialect, true)
}
