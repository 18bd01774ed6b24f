//go:build !sqlite_cgo

package store

import (
	_ "modernc.org/sqlite" // pure-Go SQLite driver (default build)
)

const sqliteDriverName = "sqlite"

// sqliteDSN builds a DSN with WAL journaling and foreign keys enabled.
func sqliteDSN(dbPath string) string {
	return dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
}
