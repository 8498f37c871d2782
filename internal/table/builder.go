package table

import (
	"fmt"
	"strings"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
)

// builder renders statements with ? placeholders. Identifiers go through the
// dialect's quoting; values only ever appear in the returned args.
type builder struct {
	dialect database.Dialect
}

func (b builder) ident(name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return b.dialect.Quote(name), nil
}

// createTable renders CREATE TABLE IF NOT EXISTS. Column definitions are
// emitted in slice order.
func (b builder) createTable(name string, cols []ColumnDef) (string, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", ErrNoColumns
	}

	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		col, err := b.ident(c.Name)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(col+" "+c.Definition))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tbl, strings.Join(parts, ", ")), nil
}

// insert renders INSERT with columns in sorted order. A non-empty returning
// column appends RETURNING for drivers without LastInsertId.
func (b builder) insert(name string, row Row, returning string) (string, []any, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, ErrEmptyRow
	}

	cols := row.Columns()
	quoted := make([]string, 0, len(cols))
	marks := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		col, err := b.ident(c)
		if err != nil {
			return "", nil, err
		}
		quoted = append(quoted, col)
		marks = append(marks, "?")
		args = append(args, row[c])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tbl, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if returning != "" {
		ret, err := b.ident(returning)
		if err != nil {
			return "", nil, err
		}
		query += " RETURNING " + ret
	}
	return query, args, nil
}

// selectRows renders SELECT * with filter, ordering and paging.
func (b builder) selectRows(name string, q Query) (string, []any, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", nil, err
	}
	if q.Limit < 0 || q.Offset < 0 {
		return "", nil, fmt.Errorf("%w: limit=%d offset=%d", ErrInvalidLimit, q.Limit, q.Offset)
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(tbl)

	where, args, err := b.where(q.Where)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if len(q.OrderBy) > 0 {
		terms := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			col, err := b.ident(o.Column)
			if err != nil {
				return "", nil, err
			}
			if o.Desc {
				col += " DESC"
			}
			terms = append(terms, col)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, q.Offset)
		}
	}
	return sb.String(), args, nil
}

// update renders UPDATE with SET columns in sorted order followed by the
// WHERE args, so a column may appear on both sides.
func (b builder) update(name string, row Row, conds Conditions) (string, []any, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, ErrEmptyRow
	}

	cols := row.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+len(conds))
	for _, c := range cols {
		col, err := b.ident(c)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, col+" = ?")
		args = append(args, row[c])
	}

	where, whereArgs, err := b.where(conds)
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)
	return fmt.Sprintf("UPDATE %s SET %s%s", tbl, strings.Join(sets, ", "), where), args, nil
}

func (b builder) delete(name string, conds Conditions) (string, []any, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", nil, err
	}
	where, args, err := b.where(conds)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + tbl + where, args, nil
}

func (b builder) count(name string, conds Conditions) (string, []any, error) {
	tbl, err := b.ident(name)
	if err != nil {
		return "", nil, err
	}
	where, args, err := b.where(conds)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + tbl + where, args, nil
}

// where renders an AND-joined WHERE clause with a leading space, or "" when
// there are no conditions.
func (b builder) where(conds Conditions) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}

	terms := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		col, err := b.ident(c.Column)
		if err != nil {
			return "", nil, err
		}
		if !c.Op.valid() {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidOperator, c.Op)
		}

		op := c.Op
		if c.Value == nil {
			switch op {
			case OpEq:
				op = OpIsNull
			case OpNotEq:
				op = OpNotNull
			}
		}

		if op.unary() {
			terms = append(terms, col+" "+string(op))
			continue
		}
		terms = append(terms, col+" "+string(op)+" ?")
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(terms, " AND "), args, nil
}
