package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/tablekit/internal/infrastructure/logging"
	"github.com/nerrad567/tablekit/internal/table"
)

// TableName is the table holding migration records.
const TableName = "migrations"

// Column names of the log table.
const (
	colID        = "id"
	colName      = "migration_name"
	colAppliedAt = "applied_at"
)

// sqliteTimeLayout is how SQLite renders CURRENT_TIMESTAMP when the driver
// hands it back as text.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Record is one row of the migration log.
type Record struct {
	ID        int64
	Name      string
	AppliedAt time.Time
}

// Log records which migrations have been applied.
type Log struct {
	acc    *table.Accessor
	logger *slog.Logger
}

// New creates a Log on acc. Call EnsureTable before first use.
func New(acc *table.Accessor, logger *slog.Logger) *Log {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Log{acc: acc, logger: logger}
}

// EnsureTable creates the log table if it does not exist.
func (l *Log) EnsureTable(ctx context.Context) error {
	return l.acc.CreateTable(ctx, TableName, []table.ColumnDef{
		{Name: colID, Definition: l.acc.Dialect().AutoIncrementKey()},
		{Name: colName, Definition: "VARCHAR(255) NOT NULL UNIQUE"},
		{Name: colAppliedAt, Definition: "TIMESTAMP DEFAULT CURRENT_TIMESTAMP"},
	})
}

// HasRun reports whether name is recorded in the log.
func (l *Log) HasRun(ctx context.Context, name string) (bool, error) {
	return hasRun(ctx, l.acc, name)
}

func hasRun(ctx context.Context, acc *table.Accessor, name string) (bool, error) {
	rows, err := acc.Select(ctx, TableName, table.Query{
		Where: table.Where(map[string]any{colName: name}),
		Limit: 1,
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Run executes stmt and records name, both in one transaction. A name that
// has already run returns ErrAlreadyApplied and stmt is not executed.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Unique migration name
//   - stmt: SQL to execute (may hold several statements where the driver allows)
//
// Returns:
//   - error: ErrAlreadyApplied, or the statement/record failure (rolled back)
func (l *Log) Run(ctx context.Context, name, stmt string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	err := l.acc.InTx(ctx, func(tx *table.Accessor) error {
		done, err := hasRun(ctx, tx, name)
		if err != nil {
			return err
		}
		if done {
			return fmt.Errorf("%w: %s", ErrAlreadyApplied, name)
		}

		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing %s: %w", name, err)
		}
		if _, err := tx.Insert(ctx, TableName, table.Row{colName: name}); err != nil {
			return fmt.Errorf("recording %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("migration failed", "migration", name, "error", err)
		return err
	}

	l.logger.Info("migration applied", "migration", name)
	return nil
}

// Applied returns every recorded migration, oldest first.
func (l *Log) Applied(ctx context.Context) ([]Record, error) {
	rows, err := l.acc.Select(ctx, TableName, table.Query{
		OrderBy: []table.Order{table.Asc(colID)},
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

// Apply runs every migration in fsys/dir that is not yet in the log,
// oldest first, each in its own transaction. It stops at the first failure;
// migrations before it stay committed.
//
// Returns the number of migrations applied.
func (l *Log) Apply(ctx context.Context, fsys fs.FS, dir string) (int, error) {
	if err := l.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("creating migrations table: %w", err)
	}

	_, pending, err := l.Status(ctx, fsys, dir)
	if err != nil {
		return 0, err
	}

	for i, m := range pending {
		if err := l.Run(ctx, m.Name, m.UpSQL); err != nil {
			return i, fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
	}
	return len(pending), nil
}

// Status returns the recorded migrations and the file migrations not yet applied.
func (l *Log) Status(ctx context.Context, fsys fs.FS, dir string) (applied []Record, pending []Migration, err error) {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	applied, err = l.Applied(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading migration log: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Name] = true
	}
	for _, m := range migrations {
		if !done[m.Name] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

// Down reverts the most recently applied migration using its .down.sql file
// and removes it from the log, in one transaction. It returns the reverted
// name, or "" when the log is empty.
func (l *Log) Down(ctx context.Context, fsys fs.FS, dir string) (string, error) {
	applied, err := l.Applied(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", nil
	}
	latest := applied[len(applied)-1]

	migrations, err := Load(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("loading migrations: %w", err)
	}

	var found *Migration
	for i := range migrations {
		if migrations[i].Name == latest.Name {
			found = &migrations[i]
			break
		}
	}
	if found == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, latest.Name)
	}
	if strings.TrimSpace(found.DownSQL) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoDownSQL, latest.Name)
	}

	err = l.acc.InTx(ctx, func(tx *table.Accessor) error {
		if _, err := tx.Exec(ctx, found.DownSQL); err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		if _, err := tx.Delete(ctx, TableName, table.Where(map[string]any{colName: latest.Name})); err != nil {
			return fmt.Errorf("removing migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("migration revert failed", "migration", latest.Name, "error", err)
		return "", err
	}

	l.logger.Info("migration reverted", "migration", latest.Name)
	return latest.Name, nil
}

func toRecord(row table.Row) Record {
	r := Record{}
	switch v := row[colID].(type) {
	case int64:
		r.ID = v
	case string:
		r.ID, _ = strconv.ParseInt(v, 10, 64) //nolint:errcheck // zero id on unparsable value
	}
	if v, ok := row[colName].(string); ok {
		r.Name = v
	}
	switch v := row[colAppliedAt].(type) {
	case time.Time:
		r.AppliedAt = v
	case string:
		r.AppliedAt, _ = time.Parse(sqliteTimeLayout, v) //nolint:errcheck // zero time on unknown format
	}
	return r
}
