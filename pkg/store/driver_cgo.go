//go:build sqlite_cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver (build with -tags sqlite_cgo)
)

const sqliteDriverName = "sqlite3"

// sqliteDSN builds a DSN with WAL journaling and foreign keys enabled.
func sqliteDSN(dbPath string) string {
	return dbPath + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
}
