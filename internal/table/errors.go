package table

import (
	"errors"
	"fmt"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
)

// Domain errors for the table package.
//
//	rows, err := acc.Select(ctx, "users", q)
//	if errors.Is(err, table.ErrStatement) {
//	    // the engine rejected or failed the statement
//	}
var (
	// ErrStatement marks every failure reported by the database engine.
	ErrStatement = errors.New("table: statement failed")

	// ErrInvalidIdentifier is returned for empty table or column names.
	ErrInvalidIdentifier = errors.New("table: invalid identifier")

	// ErrNoColumns is returned by CreateTable with no column definitions.
	ErrNoColumns = errors.New("table: no columns")

	// ErrEmptyRow is returned by Insert and Update with no values.
	ErrEmptyRow = errors.New("table: empty row")

	// ErrInvalidOperator is returned for a Condition operator outside the supported set.
	ErrInvalidOperator = errors.New("table: invalid operator")

	// ErrInvalidLimit is returned for a negative Limit or Offset.
	ErrInvalidLimit = errors.New("table: invalid limit")

	// ErrTableNotFound is returned by Describe when the table has no columns.
	ErrTableNotFound = errors.New("table: not found")

	// ErrNestedTx is returned by InTx on an accessor already bound to a transaction.
	ErrNestedTx = errors.New("table: nested transaction")
)

// StatementError is the failure of one statement. It matches ErrStatement
// and the underlying driver error under errors.Is / errors.As.
type StatementError struct {
	Action Action
	Table  string
	Kind   database.ErrorKind
	Err    error
}

func (e *StatementError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("table: %s: %s: %v", e.Action, e.Kind, e.Err)
	}
	return fmt.Sprintf("table: %s %s: %s: %v", e.Action, e.Table, e.Kind, e.Err)
}

// Unwrap exposes both ErrStatement and the driver error.
func (e *StatementError) Unwrap() []error {
	return []error{ErrStatement, e.Err}
}

// newStatementError classifies err and wraps it.
func newStatementError(action Action, tbl string, err error) *StatementError {
	return &StatementError{
		Action: action,
		Table:  tbl,
		Kind:   database.Classify(err),
		Err:    err,
	}
}
