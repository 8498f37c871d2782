package table

import (
	"errors"
	"reflect"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
)

func testBuilder(t *testing.T, driver string) builder {
	t.Helper()
	d, err := database.DialectFor(driver)
	if err != nil {
		t.Fatalf("DialectFor(%q) error = %v", driver, err)
	}
	return builder{dialect: d}
}

func assertSQL(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("SQL mismatch:\n%s", diff.LineDiff(want, got))
	}
}

func assertArgs(t *testing.T, got, want []any) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %#v, want %#v", got, want)
	}
}

func TestBuilder_CreateTable(t *testing.T) {
	b := testBuilder(t, database.DriverSQLite)

	got, err := b.createTable("users", []ColumnDef{
		{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
		{Name: "email", Definition: "VARCHAR(255) UNIQUE"},
	})
	if err != nil {
		t.Fatalf("createTable() error = %v", err)
	}
	assertSQL(t, got, `CREATE TABLE IF NOT EXISTS "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(100) NOT NULL, "email" VARCHAR(255) UNIQUE)`)

	if _, err := b.createTable("users", nil); !errors.Is(err, ErrNoColumns) {
		t.Errorf("createTable(no columns) error = %v, want ErrNoColumns", err)
	}
	if _, err := b.createTable("", []ColumnDef{{Name: "id"}}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("createTable(empty name) error = %v, want ErrInvalidIdentifier", err)
	}
}

func TestBuilder_Insert(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		row       Row
		returning string
		wantSQL   string
		wantArgs  []any
	}{
		{
			name:     "sqlite sorts columns",
			driver:   database.DriverSQLite,
			row:      Row{"name": "Ada", "email": "ada@example.com"},
			wantSQL:  `INSERT INTO "users" ("email", "name") VALUES (?, ?)`,
			wantArgs: []any{"ada@example.com", "Ada"},
		},
		{
			name:     "mysql backticks",
			driver:   database.DriverMySQL,
			row:      Row{"name": "Ada"},
			wantSQL:  "INSERT INTO `users` (`name`) VALUES (?)",
			wantArgs: []any{"Ada"},
		},
		{
			name:      "postgres returning",
			driver:    database.DriverPostgres,
			row:       Row{"name": "Ada"},
			returning: "id",
			wantSQL:   `INSERT INTO "users" ("name") VALUES (?) RETURNING "id"`,
			wantArgs:  []any{"Ada"},
		},
		{
			name:     "nil value is bound",
			driver:   database.DriverSQLite,
			row:      Row{"bio": nil},
			wantSQL:  `INSERT INTO "users" ("bio") VALUES (?)`,
			wantArgs: []any{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := testBuilder(t, tt.driver).insert("users", tt.row, tt.returning)
			if err != nil {
				t.Fatalf("insert() error = %v", err)
			}
			assertSQL(t, got, tt.wantSQL)
			assertArgs(t, args, tt.wantArgs)
		})
	}

	if _, _, err := testBuilder(t, database.DriverSQLite).insert("users", Row{}, ""); !errors.Is(err, ErrEmptyRow) {
		t.Errorf("insert(empty) error = %v, want ErrEmptyRow", err)
	}
}

func TestBuilder_Select(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			wantSQL: `SELECT * FROM "users"`,
		},
		{
			name:     "equality map is sorted",
			query:    Query{Where: Where(map[string]any{"status": "active", "id": 7})},
			wantSQL:  `SELECT * FROM "users" WHERE "id" = ? AND "status" = ?`,
			wantArgs: []any{7, "active"},
		},
		{
			name: "operators and nulls",
			query: Query{Where: Conditions{
				Gte("age", 18),
				NotEq("id", 3),
				IsNull("deleted_at"),
				Eq("manager_id", nil),
				Like("email", "%@example.com"),
			}},
			wantSQL:  `SELECT * FROM "users" WHERE "age" >= ? AND "id" <> ? AND "deleted_at" IS NULL AND "manager_id" IS NULL AND "email" LIKE ?`,
			wantArgs: []any{18, 3, "%@example.com"},
		},
		{
			name:     "order limit offset",
			query:    Query{OrderBy: []Order{Desc("created_at"), Asc("name")}, Limit: 10, Offset: 20},
			wantSQL:  `SELECT * FROM "users" ORDER BY "created_at" DESC, "name" LIMIT ? OFFSET ?`,
			wantArgs: []any{10, 20},
		},
		{
			name:    "offset without limit is ignored",
			query:   Query{Offset: 5},
			wantSQL: `SELECT * FROM "users"`,
		},
		{
			name:    "order column is quoted not interpolated",
			query:   Query{OrderBy: []Order{Asc(`name"; DROP TABLE users; --`)}},
			wantSQL: `SELECT * FROM "users" ORDER BY "name""; DROP TABLE users; --"`,
		},
	}

	b := testBuilder(t, database.DriverSQLite)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := b.selectRows("users", tt.query)
			if err != nil {
				t.Fatalf("selectRows() error = %v", err)
			}
			assertSQL(t, got, tt.wantSQL)
			assertArgs(t, args, tt.wantArgs)
		})
	}
}

func TestBuilder_SelectErrors(t *testing.T) {
	b := testBuilder(t, database.DriverSQLite)

	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{"negative limit", Query{Limit: -1}, ErrInvalidLimit},
		{"negative offset", Query{Limit: 1, Offset: -1}, ErrInvalidLimit},
		{"unknown operator", Query{Where: Conditions{{Column: "id", Op: "; DROP", Value: 1}}}, ErrInvalidOperator},
		{"empty column", Query{Where: Conditions{Eq("", 1)}}, ErrInvalidIdentifier},
		{"empty order column", Query{OrderBy: []Order{Asc(" ")}}, ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := b.selectRows("users", tt.query); !errors.Is(err, tt.wantErr) {
				t.Errorf("selectRows() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuilder_UpdateSameColumnBothSides(t *testing.T) {
	b := testBuilder(t, database.DriverPostgres)

	got, args, err := b.update("users", Row{"status": "inactive", "name": "B"}, Where(map[string]any{"status": "active"}))
	if err != nil {
		t.Fatalf("update() error = %v", err)
	}
	assertSQL(t, b.dialect.Rebind(got), `UPDATE "users" SET "name" = $1, "status" = $2 WHERE "status" = $3`)
	assertArgs(t, args, []any{"B", "inactive", "active"})

	if _, _, err := b.update("users", nil, nil); !errors.Is(err, ErrEmptyRow) {
		t.Errorf("update(empty row) error = %v, want ErrEmptyRow", err)
	}
}

func TestBuilder_DeleteAndCount(t *testing.T) {
	b := testBuilder(t, database.DriverMySQL)

	got, args, err := b.delete("users", Conditions{Eq("id", 4)})
	if err != nil {
		t.Fatalf("delete() error = %v", err)
	}
	assertSQL(t, got, "DELETE FROM `users` WHERE `id` = ?")
	assertArgs(t, args, []any{4})

	got, args, err = b.delete("users", nil)
	if err != nil {
		t.Fatalf("delete(all) error = %v", err)
	}
	assertSQL(t, got, "DELETE FROM `users`")
	assertArgs(t, args, nil)

	got, args, err = b.count("users", Conditions{NotNull("email")})
	if err != nil {
		t.Fatalf("count() error = %v", err)
	}
	assertSQL(t, got, "SELECT COUNT(*) FROM `users` WHERE `email` IS NOT NULL")
	assertArgs(t, args, nil)
}
