// Package migration keeps an append-only log of applied schema migrations.
//
// The log is a single table:
//
//	migrations(id, migration_name UNIQUE, applied_at DEFAULT CURRENT_TIMESTAMP)
//
// Run executes a statement and records its name in one transaction, so a
// migration is either applied and recorded or neither. MySQL commits DDL
// implicitly; there the guarantee holds only for data migrations.
//
// File-based migrations follow the naming convention
//
//	YYYYMMDD_HHMMSS_description.up.sql
//	YYYYMMDD_HHMMSS_description.down.sql
//
// and are recorded under their stem (for example "20260118_120000_initial_schema").
// Apply runs every pending file in version order, each in its own transaction.
//
// MySQL needs multiStatements=true in the connection params for files that
// contain more than one statement.
package migration
