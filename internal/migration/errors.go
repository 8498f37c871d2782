package migration

import "errors"

// Domain errors for the migration package.
var (
	// ErrAlreadyApplied is returned by Run for a name already recorded in the log.
	ErrAlreadyApplied = errors.New("migration: already applied")

	// ErrNotFound is returned by Down when the latest applied migration has no file.
	ErrNotFound = errors.New("migration: not found")

	// ErrNoDownSQL is returned by Down when the latest migration has no .down.sql file.
	ErrNoDownSQL = errors.New("migration: no down SQL")

	// ErrInvalidName is returned for an empty migration name.
	ErrInvalidName = errors.New("migration: invalid name")
)
