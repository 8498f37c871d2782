package database

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Sentinel errors for connection setup.
//
//	if errors.Is(err, database.ErrConnectionFailed) {
//	    // construction-time failure, nothing was opened
//	}
var (
	// ErrConnectionFailed wraps every failure of Open.
	ErrConnectionFailed = errors.New("database: connection failed")

	// ErrUnsupportedDriver is returned for driver names other than sqlite3, mysql and postgres.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrInvalidConfig is returned when required connection parameters are missing.
	ErrInvalidConfig = errors.New("database: invalid config")
)

// ErrorKind classifies a statement failure reported by a driver.
type ErrorKind string

// Error kinds.
const (
	KindConstraint ErrorKind = "constraint" // unique, foreign key, not null, check
	KindSyntax     ErrorKind = "syntax"     // malformed SQL or unknown table/column
	KindConnection ErrorKind = "connection" // connectivity lost or unusable handle
	KindCanceled   ErrorKind = "canceled"   // context cancelled or deadline exceeded
	KindOther      ErrorKind = "other"
)

// MySQL server error numbers used for classification.
const (
	mysqlDupEntry        = 1062
	mysqlNoReferenced    = 1451
	mysqlNoReferenced2   = 1452
	mysqlBadNull         = 1048
	mysqlParseError      = 1064
	mysqlNoSuchTable     = 1146
	mysqlBadFieldError   = 1054
	mysqlCheckConstraint = 3819
)

// Classify maps a driver error to an ErrorKind. It understands the error types
// of go-sqlite3, go-sql-driver/mysql and lib/pq; anything else is KindOther.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return KindConnection
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint:
			return KindConstraint
		case sqlite3.ErrError:
			return KindSyntax
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB:
			return KindConnection
		}
		return KindOther
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDupEntry, mysqlNoReferenced, mysqlNoReferenced2, mysqlBadNull, mysqlCheckConstraint:
			return KindConstraint
		case mysqlParseError, mysqlNoSuchTable, mysqlBadFieldError:
			return KindSyntax
		}
		return KindOther
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return KindConstraint
		case "42": // syntax_error_or_access_rule_violation
			return KindSyntax
		case "08": // connection_exception
			return KindConnection
		}
		return KindOther
	}

	return KindOther
}
