package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// erDupEntry is the MySQL server error for a duplicate unique key.
const erDupEntry = 1062

var mysqlDialect = dialect{
	name:   "mysql",
	schema: mysqlSchema,
	isUniqueViolation: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == erDupEntry
	},
}

// NewMySQLDB connects to MySQL and runs migrations. The DSN is in the
// go-sql-driver format, e.g. "user:pass@tcp(127.0.0.1:3306)/app".
func NewMySQLDB(dsn string) (*SQLDB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// Report matched rather than changed rows so that an update writing
	// identical values is not mistaken for a missing row.
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return newSQLDB(db, mysqlDialect, true)
}
