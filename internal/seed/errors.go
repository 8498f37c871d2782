package seed

import "errors"

// Domain errors for the seed package.
var (
	// ErrInvalidFixture is returned when a fixture file is not a map of tables to row lists.
	ErrInvalidFixture = errors.New("seed: invalid fixture")
)
