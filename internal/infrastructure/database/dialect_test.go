package database

import (
	"context"
	"errors"
	"testing"
)

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverMySQL, DriverPostgres} {
		d, err := DialectFor(driver)
		if err != nil {
			t.Errorf("DialectFor(%q) error = %v", driver, err)
			continue
		}
		if d.Driver() != driver {
			t.Errorf("DialectFor(%q).Driver() = %q", driver, d.Driver())
		}
	}

	if _, err := DialectFor("oracle"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("DialectFor(oracle) error = %v, want ErrUnsupportedDriver", err)
	}
}

func TestDialect_Quote(t *testing.T) {
	tests := []struct {
		driver string
		ident  string
		want   string
	}{
		{DriverSQLite, "users", `"users"`},
		{DriverSQLite, `we"ird`, `"we""ird"`},
		{DriverMySQL, "users", "`users`"},
		{DriverMySQL, "we`ird", "`we``ird`"},
		{DriverPostgres, "users", `"users"`},
		{DriverPostgres, `we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		d, _ := DialectFor(tt.driver) //nolint:errcheck // drivers above are supported
		if got := d.Quote(tt.ident); got != tt.want {
			t.Errorf("%s Quote(%q) = %s, want %s", tt.driver, tt.ident, got, tt.want)
		}
	}
}

func TestDialect_Rebind(t *testing.T) {
	query := "SELECT * FROM t WHERE a = ? AND b = ?"

	pg, _ := DialectFor(DriverPostgres) //nolint:errcheck // supported driver
	my, _ := DialectFor(DriverMySQL)    //nolint:errcheck // supported driver
	lite, _ := DialectFor(DriverSQLite) //nolint:errcheck // supported driver

	if got, want := pg.Rebind(query), "SELECT * FROM t WHERE a = $1 AND b = $2"; got != want {
		t.Errorf("postgres Rebind() = %q, want %q", got, want)
	}
	if got := my.Rebind(query); got != query {
		t.Errorf("mysql Rebind() = %q, want unchanged", got)
	}
	if got := lite.Rebind(query); got != query {
		t.Errorf("sqlite Rebind() = %q, want unchanged", got)
	}
}

func TestDialect_ReturningID(t *testing.T) {
	pg, _ := DialectFor(DriverPostgres) //nolint:errcheck // supported driver
	my, _ := DialectFor(DriverMySQL)    //nolint:errcheck // supported driver

	if !pg.ReturningID() {
		t.Error("postgres should use RETURNING for generated keys")
	}
	if my.ReturningID() {
		t.Error("mysql supports LastInsertId")
	}
}

func TestDialect_DescribeQuerySQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `CREATE TABLE described (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		bio TEXT DEFAULT 'n/a'
	)`); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	rows, err := db.QueryxContext(ctx, db.Dialect().DescribeQuery(), "described")
	if err != nil {
		t.Fatalf("describe query error = %v", err)
	}
	defer rows.Close()

	type col struct {
		name     string
		nullable int
		pk       int
	}
	var got []col
	for rows.Next() {
		var c col
		var typ string
		var def any
		if err := rows.Scan(&c.name, &typ, &c.nullable, &def, &c.pk); err != nil {
			t.Fatalf("scan error = %v", err)
		}
		got = append(got, c)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error = %v", err)
	}

	want := []col{{"id", 1, 1}, {"name", 0, 0}, {"bio", 1, 0}}
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
