package table

import (
	"sort"
	"time"
)

// Row maps column names to scalar values (string, number, bool, time or nil).
// Column names and values are supplied by the caller; no schema is enforced
// beyond what the engine applies.
type Row map[string]any

// Columns returns the row's column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// ColumnDef is one column of a CREATE TABLE statement. Definition is a raw
// DDL fragment such as "VARCHAR(100) NOT NULL" and is trusted as written.
type ColumnDef struct {
	Name       string
	Definition string
}

// Column is the metadata Describe reports for one table column.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
}

// Operator is a comparison used in a Condition. Only the constants below are accepted.
type Operator string

// Supported comparison operators.
const (
	OpEq      Operator = "="
	OpNotEq   Operator = "<>"
	OpLt      Operator = "<"
	OpLte     Operator = "<="
	OpGt      Operator = ">"
	OpGte     Operator = ">="
	OpLike    Operator = "LIKE"
	OpIsNull  Operator = "IS NULL"
	OpNotNull Operator = "IS NOT NULL"
)

// valid reports whether o is one of the supported operators.
func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNotEq, OpLt, OpLte, OpGt, OpGte, OpLike, OpIsNull, OpNotNull:
		return true
	}
	return false
}

// unary reports whether o takes no value.
func (o Operator) unary() bool {
	return o == OpIsNull || o == OpNotNull
}

// Condition is one predicate of a WHERE clause. Value is always bound as a
// parameter; it is ignored for OpIsNull and OpNotNull.
//
// An OpEq or OpNotEq condition with a nil Value renders as IS NULL / IS NOT NULL,
// since "col = NULL" never matches.
type Condition struct {
	Column string
	Op     Operator
	Value  any
}

// Conditions is an AND-joined list of predicates. An empty list means no filter.
type Conditions []Condition

// Eq matches rows where column equals value.
func Eq(column string, value any) Condition { return Condition{Column: column, Op: OpEq, Value: value} }

// NotEq matches rows where column differs from value.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Op: OpNotEq, Value: value}
}

// Lt matches rows where column < value.
func Lt(column string, value any) Condition { return Condition{Column: column, Op: OpLt, Value: value} }

// Lte matches rows where column <= value.
func Lte(column string, value any) Condition { return Condition{Column: column, Op: OpLte, Value: value} }

// Gt matches rows where column > value.
func Gt(column string, value any) Condition { return Condition{Column: column, Op: OpGt, Value: value} }

// Gte matches rows where column >= value.
func Gte(column string, value any) Condition { return Condition{Column: column, Op: OpGte, Value: value} }

// Like matches rows where column LIKE pattern.
func Like(column string, pattern string) Condition {
	return Condition{Column: column, Op: OpLike, Value: pattern}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Condition { return Condition{Column: column, Op: OpIsNull} }

// NotNull matches rows where column is not NULL.
func NotNull(column string) Condition { return Condition{Column: column, Op: OpNotNull} }

// Where converts a column→value mapping into equality conditions, sorted by
// column so the generated SQL is deterministic.
func Where(m map[string]any) Conditions {
	if len(m) == 0 {
		return nil
	}
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	conds := make(Conditions, 0, len(cols))
	for _, c := range cols {
		conds = append(conds, Eq(c, m[c]))
	}
	return conds
}

// Order is one ORDER BY term. Column is quoted as an identifier, never
// interpolated as raw SQL.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Query describes a Select. Limit and Offset are bound as parameters;
// zero means unlimited, and Offset only applies when Limit is set.
type Query struct {
	Where   Conditions
	OrderBy []Order
	Limit   int
	Offset  int
}

// ResultSet keeps the column order reported by the driver alongside the rows.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Action names the accessor operation that produced an Event or error.
type Action string

// Accessor actions.
const (
	ActionCreateTable Action = "create_table"
	ActionInsert      Action = "insert"
	ActionSelect      Action = "select"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionDescribe    Action = "describe"
	ActionQuery       Action = "query"
	ActionExec        Action = "exec"
	ActionCount       Action = "count"
)

// Mutates reports whether the action changes table contents.
func (a Action) Mutates() bool {
	return a == ActionInsert || a == ActionUpdate || a == ActionDelete
}

// Event describes one executed statement. Observers receive it after the
// statement finishes; inside InTx, only after the transaction commits.
type Event struct {
	Action       Action
	Table        string
	Row          Row
	Where        Conditions
	RowsAffected int64
	LastInsertID int64
	Duration     time.Duration
	Err          error
}
