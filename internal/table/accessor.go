package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
	"github.com/nerrad567/tablekit/internal/infrastructure/logging"
)

// DefaultIDColumn is the generated-key column used when none is configured.
const DefaultIDColumn = "id"

// Accessor translates structured requests into one parametrised statement
// per call and executes it on a shared connection.
//
// Every failure is returned as a *StatementError (matching ErrStatement),
// logged at error level and reported to the Observer, so callers can always
// tell "no rows matched" apart from "the statement failed".
//
// Thread Safety:
//   - Configure with the Set* methods before sharing the Accessor.
//   - Statement methods may be called from several goroutines; they queue
//     on the single pooled connection.
//   - While InTx holds that connection, statements on the outer Accessor
//     block until the transaction ends. Inside fn, use only the tx Accessor.
type Accessor struct {
	ext      sqlx.ExtContext
	db       *database.DB
	b        builder
	idColumn string
	logger   *slog.Logger
	observer Observer

	// pending buffers events inside InTx until the transaction commits.
	pending *[]Event
}

// New creates an Accessor bound to db.
//
// Parameters:
//   - db: An open connection from database.Open
//
// Returns:
//   - *Accessor: Ready to use, with a discard logger and no observer
func New(db *database.DB) *Accessor {
	return &Accessor{
		ext:      db,
		db:       db,
		b:        builder{dialect: db.Dialect()},
		idColumn: DefaultIDColumn,
		logger:   logging.Discard(),
		observer: nopObserver{},
	}
}

// SetLogger sets the logger used for statement failures and debug tracing.
// A nil logger discards output.
func (a *Accessor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	a.logger = logger
}

// SetObserver sets the observer notified after every statement.
// A nil observer disables notification.
func (a *Accessor) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	a.observer = o
}

// SetIDColumn sets the generated-key column Insert reads back on drivers
// that require RETURNING. An empty name restores DefaultIDColumn.
func (a *Accessor) SetIDColumn(col string) {
	if col == "" {
		col = DefaultIDColumn
	}
	a.idColumn = col
}

// Dialect returns the SQL dialect of the underlying connection.
func (a *Accessor) Dialect() database.Dialect {
	return a.b.dialect
}

// CreateTable creates name with the given columns if it does not already exist.
// Definitions are raw DDL fragments and are trusted as written.
func (a *Accessor) CreateTable(ctx context.Context, name string, cols []ColumnDef) error {
	query, err := a.b.createTable(name, cols)
	if err != nil {
		return fmt.Errorf("table: create %s: %w", name, err)
	}

	start := time.Now()
	_, err = a.ext.ExecContext(ctx, query)
	return a.record(ctx, Event{Action: ActionCreateTable, Table: name, Duration: time.Since(start)}, err)
}

// Insert adds row to name and returns the engine-assigned key.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Table name (quoted as an identifier)
//   - row: Column values; every value is bound as a parameter
//
// Returns:
//   - int64: Generated key (0 for tables without one on SQLite/MySQL)
//   - error: ErrEmptyRow, ErrInvalidIdentifier or *StatementError
func (a *Accessor) Insert(ctx context.Context, name string, row Row) (int64, error) {
	returning := ""
	if a.b.dialect.ReturningID() {
		returning = a.idColumn
	}
	query, args, err := a.b.insert(name, row, returning)
	if err != nil {
		return 0, fmt.Errorf("table: insert %s: %w", name, err)
	}
	query = a.b.dialect.Rebind(query)

	start := time.Now()
	var id int64
	if returning != "" {
		err = a.ext.QueryRowxContext(ctx, query, args...).Scan(&id)
	} else {
		var res sql.Result
		res, err = a.ext.ExecContext(ctx, query, args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}

	ev := Event{Action: ActionInsert, Table: name, Row: row, LastInsertID: id, Duration: time.Since(start)}
	if err == nil {
		ev.RowsAffected = 1
	}
	if err := a.record(ctx, ev, err); err != nil {
		return 0, err
	}
	return id, nil
}

// Select returns the rows of name matching q. No match yields an empty slice
// and a nil error.
func (a *Accessor) Select(ctx context.Context, name string, q Query) ([]Row, error) {
	set, err := a.SelectSet(ctx, name, q)
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// SelectSet is Select, also reporting column order.
func (a *Accessor) SelectSet(ctx context.Context, name string, q Query) (*ResultSet, error) {
	query, args, err := a.b.selectRows(name, q)
	if err != nil {
		return nil, fmt.Errorf("table: select %s: %w", name, err)
	}

	start := time.Now()
	set, err := a.queryRows(ctx, a.b.dialect.Rebind(query), args)
	ev := Event{Action: ActionSelect, Table: name, Where: q.Where, Duration: time.Since(start)}
	if set != nil {
		ev.RowsAffected = int64(len(set.Rows))
	}
	if err := a.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return set, nil
}

// Update sets row's columns on every row of name matching conds and returns
// the number of rows changed. An empty conds updates the whole table.
func (a *Accessor) Update(ctx context.Context, name string, row Row, conds Conditions) (int64, error) {
	query, args, err := a.b.update(name, row, conds)
	if err != nil {
		return 0, fmt.Errorf("table: update %s: %w", name, err)
	}
	return a.exec(ctx, Event{Action: ActionUpdate, Table: name, Row: row, Where: conds}, query, args)
}

// Delete removes every row of name matching conds and returns the number
// removed. An empty conds deletes the whole table.
func (a *Accessor) Delete(ctx context.Context, name string, conds Conditions) (int64, error) {
	query, args, err := a.b.delete(name, conds)
	if err != nil {
		return 0, fmt.Errorf("table: delete %s: %w", name, err)
	}
	return a.exec(ctx, Event{Action: ActionDelete, Table: name, Where: conds}, query, args)
}

// Count returns the number of rows of name matching conds.
func (a *Accessor) Count(ctx context.Context, name string, conds Conditions) (int64, error) {
	query, args, err := a.b.count(name, conds)
	if err != nil {
		return 0, fmt.Errorf("table: count %s: %w", name, err)
	}

	start := time.Now()
	var n int64
	err = a.ext.QueryRowxContext(ctx, a.b.dialect.Rebind(query), args...).Scan(&n)
	if err := a.record(ctx, Event{Action: ActionCount, Table: name, Where: conds, Duration: time.Since(start)}, err); err != nil {
		return 0, err
	}
	return n, nil
}

// Describe lists the columns of name in declaration order. A table with no
// columns (including one that does not exist) is reported as ErrTableNotFound.
func (a *Accessor) Describe(ctx context.Context, name string) ([]Column, error) {
	if _, err := a.b.ident(name); err != nil {
		return nil, fmt.Errorf("table: describe %s: %w", name, err)
	}

	start := time.Now()
	cols, err := a.describe(ctx, name)
	if err := a.record(ctx, Event{Action: ActionDescribe, Table: name, Duration: time.Since(start)}, err); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table: describe %s: %w", name, ErrTableNotFound)
	}
	return cols, nil
}

func (a *Accessor) describe(ctx context.Context, name string) ([]Column, error) {
	rows, err := a.ext.QueryxContext(ctx, a.b.dialect.Rebind(a.b.dialect.DescribeQuery()), name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c        Column
			nullable int
			pk       int
			def      sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &def, &pk); err != nil {
			return nil, err
		}
		c.Nullable = nullable == 1
		c.PrimaryKey = pk == 1
		if def.Valid {
			c.Default = &def.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Query runs an arbitrary parametrised statement that returns rows.
// Placeholders are written as ? and rebound for the driver.
func (a *Accessor) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	set, err := a.QuerySet(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// QuerySet is Query, also reporting column order.
func (a *Accessor) QuerySet(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	start := time.Now()
	set, err := a.queryRows(ctx, a.b.dialect.Rebind(query), args)
	ev := Event{Action: ActionQuery, Duration: time.Since(start)}
	if set != nil {
		ev.RowsAffected = int64(len(set.Rows))
	}
	if err := a.record(ctx, ev, err); err != nil {
		return nil, err
	}
	return set, nil
}

// Exec runs an arbitrary parametrised statement that returns no rows and
// reports the number of rows affected.
func (a *Accessor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return a.exec(ctx, Event{Action: ActionExec}, query, args)
}

// InTx runs fn with an Accessor bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise,
// including on panic. Observers see the transaction's successful statements
// only after commit; failures are reported immediately.
//
// The transaction holds the only pooled connection, so fn must issue every
// statement through tx. Helpers such as validation.New and seed.New accept
// tx directly.
func (a *Accessor) InTx(ctx context.Context, fn func(tx *Accessor) error) (err error) {
	if a.pending != nil || a.db == nil {
		return ErrNestedTx
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("table: begin: %w", err)
	}

	events := make([]Event, 0, 4)
	child := &Accessor{
		ext:      tx,
		b:        a.b,
		idColumn: a.idColumn,
		logger:   a.logger,
		observer: a.observer,
		pending:  &events,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() //nolint:errcheck // re-panicking
			panic(p)
		}
	}()

	if err := fn(child); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("table: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("table: commit: %w", err)
	}

	for _, ev := range events {
		a.observer.Observe(ctx, ev)
	}
	return nil
}

func (a *Accessor) exec(ctx context.Context, ev Event, query string, args []any) (int64, error) {
	start := time.Now()
	res, err := a.ext.ExecContext(ctx, a.b.dialect.Rebind(query), args...)
	if err == nil {
		ev.RowsAffected, err = res.RowsAffected()
	}
	ev.Duration = time.Since(start)
	if err := a.record(ctx, ev, err); err != nil {
		return 0, err
	}
	return ev.RowsAffected, nil
}

func (a *Accessor) queryRows(ctx context.Context, query string, args []any) (*ResultSet, error) {
	rows, err := a.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]valueKind, len(types))
	for _, ct := range types {
		kinds[ct.Name()] = kindOf(ct.DatabaseTypeName())
	}

	set := &ResultSet{Columns: cols, Rows: make([]Row, 0)}
	for rows.Next() {
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		set.Rows = append(set.Rows, normalise(m, kinds))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// valueKind is the Go type a raw driver value is converted to.
type valueKind int

const (
	kindText valueKind = iota
	kindInt
	kindFloat
)

// kindOf maps a driver column type name to a valueKind.
func kindOf(dbType string) valueKind {
	t := strings.TrimPrefix(strings.ToUpper(dbType), "UNSIGNED ")
	switch t {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "YEAR",
		"INT2", "INT4", "INT8":
		return kindInt
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "FLOAT4", "FLOAT8":
		return kindFloat
	default:
		return kindText
	}
}

// normalise converts driver []byte values to int64, float64 or string
// according to the column's kind. MySQL returns every column as []byte on
// the text protocol. A value that does not parse is kept as a string.
func normalise(m map[string]any, kinds map[string]valueKind) Row {
	for k, v := range m {
		b, ok := v.([]byte)
		if !ok {
			continue
		}
		s := string(b)
		m[k] = s
		switch kinds[k] {
		case kindInt:
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				m[k] = n
			}
		case kindFloat:
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				m[k] = f
			}
		}
	}
	return Row(m)
}

// record logs the outcome of one statement, notifies the observer and
// returns the wrapped error, if any.
func (a *Accessor) record(ctx context.Context, ev Event, err error) error {
	// Events outlive the call, so they must not alias the caller's row or conditions.
	ev.Row = maps.Clone(ev.Row)
	ev.Where = slices.Clone(ev.Where)

	var stmtErr *StatementError
	if err != nil {
		stmtErr = newStatementError(ev.Action, ev.Table, err)
		ev.Err = stmtErr
		a.logger.Error("statement failed",
			"action", string(ev.Action),
			"table", ev.Table,
			"kind", string(stmtErr.Kind),
			"error", err,
		)
	} else {
		a.logger.Debug("statement executed",
			"action", string(ev.Action),
			"table", ev.Table,
			"rows", ev.RowsAffected,
			"duration", ev.Duration,
		)
	}

	if a.pending != nil && err == nil {
		*a.pending = append(*a.pending, ev)
	} else {
		a.observer.Observe(ctx, ev)
	}

	if stmtErr != nil {
		return stmtErr
	}
	return nil
}
