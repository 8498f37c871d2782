package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
	"github.com/nerrad567/tablekit/internal/table"
)

// newTestLog opens a temporary SQLite database and returns a ready Log.
func newTestLog(t *testing.T) (*Log, *table.Accessor) {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	acc := table.New(db)
	l := New(acc, nil)
	if err := l.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	return l, acc
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"sql/20260101_000000_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);")},
		"sql/20260101_000000_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
		"sql/20260102_000000_add_email.up.sql":      {Data: []byte("ALTER TABLE users ADD COLUMN email TEXT;")},
		"sql/README.md":                             {Data: []byte("not a migration")},
	}
}

func TestHasRunBeforeAndAfterRun(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	ran, err := l.HasRun(ctx, "m1")
	if err != nil {
		t.Fatalf("HasRun() error = %v", err)
	}
	if ran {
		t.Fatal("HasRun(m1) = true before Run")
	}

	if err := l.Run(ctx, "m1", "CREATE TABLE widgets (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ran, err = l.HasRun(ctx, "m1")
	if err != nil {
		t.Fatalf("HasRun() error = %v", err)
	}
	if !ran {
		t.Error("HasRun(m1) = false after Run")
	}
}

func TestEnsureTableIdempotent(t *testing.T) {
	l, _ := newTestLog(t)
	if err := l.EnsureTable(context.Background()); err != nil {
		t.Errorf("second EnsureTable() error = %v", err)
	}
}

func TestRunTwiceIsRejected(t *testing.T) {
	l, acc := newTestLog(t)
	ctx := context.Background()

	if err := l.Run(ctx, "seed_one", "CREATE TABLE counters (n INTEGER)"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := l.Run(ctx, "seed_two", "INSERT INTO counters (n) VALUES (1)"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	err := l.Run(ctx, "seed_two", "INSERT INTO counters (n) VALUES (1)")
	if !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("second Run() error = %v, want ErrAlreadyApplied", err)
	}

	n, err := acc.Count(ctx, "counters", nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("counters has %d rows, want 1", n)
	}
}

func TestRunFailureRecordsNothing(t *testing.T) {
	l, acc := newTestLog(t)
	ctx := context.Background()

	if err := l.Run(ctx, "make_table", "CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT UNIQUE)"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The second insert violates the unique constraint; the first must roll back too.
	err := l.Run(ctx, "bad_data", "INSERT INTO items (sku) VALUES ('a'); INSERT INTO items (sku) VALUES ('a');")
	if !errors.Is(err, table.ErrStatement) {
		t.Fatalf("Run(bad) error = %v, want ErrStatement", err)
	}

	ran, err := l.HasRun(ctx, "bad_data")
	if err != nil {
		t.Fatalf("HasRun() error = %v", err)
	}
	if ran {
		t.Error("failed migration was recorded")
	}

	n, err := acc.Count(ctx, "items", nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("items has %d rows after failed migration, want 0", n)
	}
}

func TestRunEmptyName(t *testing.T) {
	l, _ := newTestLog(t)
	if err := l.Run(context.Background(), "  ", "SELECT 1"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Run(blank name) error = %v, want ErrInvalidName", err)
	}
}

func TestApplyStatusDown(t *testing.T) {
	l, acc := newTestLog(t)
	ctx := context.Background()
	fsys := testFS()

	applied, pending, err := l.Status(ctx, fsys, "sql")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 2 {
		t.Fatalf("Status() = %d applied, %d pending; want 0, 2", len(applied), len(pending))
	}

	n, err := l.Apply(ctx, fsys, "sql")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Apply() applied %d, want 2", n)
	}

	n, err = l.Apply(ctx, fsys, "sql")
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Apply() applied %d, want 0", n)
	}

	records, err := l.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if len(records) != 2 || records[0].Name != "20260101_000000_create_users" || records[1].Name != "20260102_000000_add_email" {
		t.Fatalf("Applied() = %+v", records)
	}
	if records[0].AppliedAt.IsZero() {
		t.Error("AppliedAt was not populated")
	}

	if _, err := acc.Insert(ctx, "users", table.Row{"name": "a", "email": "a@example.com"}); err != nil {
		t.Errorf("migrated schema rejected insert: %v", err)
	}

	// The latest migration has no down file.
	if _, err := l.Down(ctx, fsys, "sql"); !errors.Is(err, ErrNoDownSQL) {
		t.Fatalf("Down() error = %v, want ErrNoDownSQL", err)
	}

	delete(fsys, "sql/20260102_000000_add_email.up.sql")
	if _, err := l.Down(ctx, fsys, "sql"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Down() error = %v, want ErrNotFound", err)
	}
}

func TestDownReverts(t *testing.T) {
	l, acc := newTestLog(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260101_000000_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY)")},
		"20260101_000000_create_users.down.sql": {Data: []byte("DROP TABLE users")},
	}

	if _, err := l.Apply(ctx, fsys, "."); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	name, err := l.Down(ctx, fsys, ".")
	if err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if name != "20260101_000000_create_users" {
		t.Errorf("Down() = %q", name)
	}

	if _, err := acc.Describe(ctx, "users"); !errors.Is(err, table.ErrTableNotFound) {
		t.Errorf("users still exists after Down: %v", err)
	}

	name, err = l.Down(ctx, fsys, ".")
	if err != nil || name != "" {
		t.Errorf("Down() on empty log = %q, %v; want \"\", nil", name, err)
	}
}

func TestToRecord(t *testing.T) {
	applied := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		row  table.Row
		want Record
	}{
		{
			name: "native values",
			row:  table.Row{colID: int64(3), colName: "001_users", colAppliedAt: applied},
			want: Record{ID: 3, Name: "001_users", AppliedAt: applied},
		},
		{
			name: "text protocol values",
			row:  table.Row{colID: "7", colName: "002_contacts", colAppliedAt: "2026-03-01 12:30:00"},
			want: Record{ID: 7, Name: "002_contacts", AppliedAt: applied},
		},
		{
			name: "unparsable id",
			row:  table.Row{colID: "x", colName: "003_bad"},
			want: Record{Name: "003_bad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toRecord(tt.row)
			if got.ID != tt.want.ID || got.Name != tt.want.Name || !got.AppliedAt.Equal(tt.want.AppliedAt) {
				t.Errorf("toRecord() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20260118_120000_initial_schema.up.sql", "20260118_120000", true, true},
		{"20260118_120000_initial_schema.down.sql", "20260118_120000", false, true},
		{"20260118_120000.up.sql", "20260118_120000", true, true},
		{"initial.up.sql", "", false, false},
		{"20260118_120000_initial_schema.sql", "", false, false},
		{"20260118_120000_initial_schema.up.txt", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseFilename(tt.name)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.name, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	migrations, err := Load(testFS(), "sql")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("Load() returned %d migrations, want 2", len(migrations))
	}
	if migrations[0].DownSQL == "" || migrations[1].DownSQL != "" {
		t.Errorf("down SQL not paired correctly: %+v", migrations)
	}

	missing, err := Load(testFS(), "nope")
	if err != nil || len(missing) != 0 {
		t.Errorf("Load(missing dir) = %v, %v; want empty, nil", missing, err)
	}
}
