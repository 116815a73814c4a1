// Package db implements the reconcile storage contract for MySQL. The
// bookkeeping table keeps each migration's up and down scripts next to its
// record, so the applied history read back from the database carries
// everything a rollback needs.
package db

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func OpenMySQL(dsn string) (*sql.DB, error) {
	// parseTime is required to scan applied_at; multiStatements is
	// recommended when scripts hold more than one statement.
	if !strings.Contains(strings.ToLower(dsn), "parsetime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
