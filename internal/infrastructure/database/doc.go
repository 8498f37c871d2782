// Package database provides the single relational connection used by tablekit.
//
// This package manages:
//   - Immutable connection parameters (Config) and DSN construction for
//     SQLite (mattn/go-sqlite3), MySQL (go-sql-driver/mysql) and PostgreSQL (lib/pq)
//   - Eager, fail-fast connection setup with a ping
//   - The per-engine Dialect: identifier quoting, placeholder rebinding,
//     key generation and column introspection
//   - Classification of driver errors into coarse kinds
//
// Resource Model:
//
// A DB holds one live handle (the sqlx pool is capped at one connection).
// There is no pooling, retry or backoff. Concurrent callers are serialised
// by database/sql; callers that need parallelism open one DB per worker.
//
// Security Considerations:
//   - Values are always bound as parameters by the layers above
//   - Identifiers are quoted through Dialect.Quote, never concatenated raw
//   - The SQLite file is chmod 0600 after opening
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Driver: database.DriverSQLite,
//	    Path:   "./data/tablekit.db",
//	})
//	if err != nil {
//	    log.Fatal(err) // wraps database.ErrConnectionFailed
//	}
//	defer db.Close()
package database
