package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Supported driver names, as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Dialect captures the few places where SQL text differs between engines:
// identifier quoting, placeholder style, key generation and table introspection.
type Dialect struct {
	driver   string
	bindType int
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
		return Dialect{driver: driver, bindType: sqlx.BindType(driver)}, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Driver returns the database/sql driver name.
func (d Dialect) Driver() string {
	return d.driver
}

// Quote renders an identifier as a quoted SQL name. Embedded quote characters
// are doubled, so the result is always a single identifier token.
func (d Dialect) Quote(ident string) string {
	switch d.driver {
	case DriverMySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case DriverPostgres:
		return pq.QuoteIdentifier(ident)
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// Rebind converts ? placeholders to the driver's native style ($1 for PostgreSQL).
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

// ReturningID reports whether inserts must use RETURNING to obtain the
// generated key, because the driver has no LastInsertId support.
func (d Dialect) ReturningID() bool {
	return d.driver == DriverPostgres
}

// AutoIncrementKey is the column definition for a surrogate integer primary key.
func (d Dialect) AutoIncrementKey() string {
	switch d.driver {
	case DriverMySQL:
		return "INT AUTO_INCREMENT PRIMARY KEY"
	case DriverPostgres:
		return "SERIAL PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// DescribeQuery returns a statement listing the columns of one table, bound to
// the table name with a single ? placeholder. Every dialect yields the same
// five columns in order: name, type, nullable (0/1), default, primary key (0/1).
func (d Dialect) DescribeQuery() string {
	switch d.driver {
	case DriverMySQL:
		return `SELECT COLUMN_NAME, COLUMN_TYPE,
			CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
			COLUMN_DEFAULT,
			CASE WHEN COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END
			FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`
	case DriverPostgres:
		return `SELECT c.column_name, c.data_type,
			CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
			) THEN 1 ELSE 0 END
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema() AND c.table_name = ?
			ORDER BY c.ordinal_position`
	default:
		return `SELECT name, type,
			CASE WHEN "notnull" = 0 THEN 1 ELSE 0 END,
			dflt_value,
			CASE WHEN pk > 0 THEN 1 ELSE 0 END
			FROM pragma_table_info(?)
			ORDER BY cid`
	}
}
