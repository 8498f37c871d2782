package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/tablekit/internal/infrastructure/logging"
	"github.com/nerrad567/tablekit/internal/table"
)

// Fixture maps table names to the rows to insert into them.
type Fixture map[string][]table.Row

// Tables returns the fixture's table names in sorted order.
func (f Fixture) Tables() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seeder inserts batches of rows through a table accessor.
type Seeder struct {
	acc    *table.Accessor
	logger *slog.Logger
}

// New creates a Seeder. A nil logger discards output.
func New(acc *table.Accessor, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Seeder{acc: acc, logger: logger}
}

// Seed inserts each row into name and returns how many succeeded.
// A failing row does not stop the rest. The only error returned is
// context cancellation, together with the count so far.
func (s *Seeder) Seed(ctx context.Context, name string, rows []table.Row) (int, error) {
	inserted := 0
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		if _, err := s.acc.Insert(ctx, name, row); err != nil {
			s.logger.Warn("seed row rejected",
				"table", name,
				"index", i,
				"error", err,
			)
			continue
		}
		inserted++
	}

	s.logger.Info("table seeded",
		"table", name,
		"inserted", inserted,
		"total", len(rows),
	)
	return inserted, nil
}

// Clear deletes every row of name and returns how many were removed.
func (s *Seeder) Clear(ctx context.Context, name string) (int64, error) {
	n, err := s.acc.Delete(ctx, name, nil)
	if err != nil {
		return 0, err
	}

	s.logger.Info("table cleared", "table", name, "deleted", n)
	return n, nil
}

// SeedFixture seeds every table of f in sorted table order and returns the
// inserted count per table.
func (s *Seeder) SeedFixture(ctx context.Context, f Fixture) (map[string]int, error) {
	counts := make(map[string]int, len(f))
	for _, name := range f.Tables() {
		n, err := s.Seed(ctx, name, f[name])
		counts[name] = n
		if err != nil {
			return counts, err
		}
	}
	return counts, nil
}

// SeedFile loads a YAML fixture from path and seeds it.
func (s *Seeder) SeedFile(ctx context.Context, path string) (map[string]int, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.SeedFixture(ctx, f)
}

// LoadFile reads a YAML fixture from path.
//
// Parameters:
//   - path: Fixture file location
//
// Returns:
//   - Fixture: Rows per table; values are YAML scalars
//   - error: If the file is unreadable, malformed or holds non-scalar values
func LoadFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (Fixture, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	f := make(Fixture, len(raw))
	for name, rows := range raw {
		out := make([]table.Row, 0, len(rows))
		for i, row := range rows {
			for col, v := range row {
				switch v.(type) {
				case map[string]any, []any:
					return nil, fmt.Errorf("%w: %s[%d].%s is not a scalar", ErrInvalidFixture, name, i, col)
				}
			}
			out = append(out, table.Row(row))
		}
		f[name] = out
	}
	return f, nil
}
