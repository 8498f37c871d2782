package validation

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/tablekit/internal/infrastructure/database"
	"github.com/nerrad567/tablekit/internal/table"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"test@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"not-an-email", false},
		{"", false},
		{"user@localhost", false},
		{"user@.example.com", false},
		{"user@example.com.", false},
		{"user@example..com", false},
		{"@example.com", false},
		{"John <john@example.com>", false},
		{"<john@example.com>", false},
		{"john@example.com ", false},
		{"a@b@example.com", false},
		{strings.Repeat("a", 65) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		row    table.Row
		fields []string
		want   []string
	}{
		{
			name:   "blank email",
			row:    table.Row{"name": "John", "email": ""},
			fields: []string{"name", "email"},
			want:   []string{"email is required"},
		},
		{
			name:   "preserves field order",
			row:    table.Row{"b": "  "},
			fields: []string{"c", "a", "b"},
			want:   []string{"c is required", "a is required", "b is required"},
		},
		{
			name:   "nil and non-string values",
			row:    table.Row{"age": 0, "active": false, "note": nil},
			fields: []string{"age", "active", "note"},
			want:   []string{"note is required"},
		},
		{
			name:   "all present",
			row:    table.Row{"name": "Ada"},
			fields: []string{"name"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateRequired(tt.row, tt.fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidateRequired() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestValidateContact(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		want    []string
	}{
		{
			name:    "valid after trimming",
			contact: Contact{Name: " Ada ", Email: " ada@example.com\n", Message: "hi"},
			want:    nil,
		},
		{
			name:    "everything missing",
			contact: Contact{Name: "  "},
			want:    []string{"Name is required", "Email is required", "Message is required"},
		},
		{
			name:    "bad email",
			contact: Contact{Name: "Ada", Email: "ada-at-example", Message: "hi"},
			want:    []string{"Invalid email format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateContact(tt.contact)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidateContact() = %#v, want %#v", got, tt.want)
			}
		})
	}

	c := Contact{Name: " a ", Email: " b ", Message: " c "}.Trimmed()
	if c != (Contact{Name: "a", Email: "b", Message: "c"}) {
		t.Errorf("Trimmed() = %+v", c)
	}
}

func TestValidateUnique(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	ctx := context.Background()
	acc := table.New(db)
	if err := acc.CreateTable(ctx, "users", []table.ColumnDef{
		{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "email", Definition: "TEXT"},
	}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	id, err := acc.Insert(ctx, "users", table.Row{"email": "taken@example.com"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	v := New(acc)
	tests := []struct {
		name      string
		value     string
		excludeID any
		want      bool
	}{
		{"unused value", "free@example.com", nil, true},
		{"taken value", "taken@example.com", nil, false},
		{"own row excluded", "taken@example.com", id, true},
		{"other row excluded", "taken@example.com", id + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateUnique(ctx, "users", "email", tt.value, tt.excludeID)
			if err != nil {
				t.Fatalf("ValidateUnique() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateUnique(%q, %v) = %v, want %v", tt.value, tt.excludeID, got, tt.want)
			}
		})
	}

	if _, err := v.ValidateUnique(ctx, "missing", "email", "x", nil); !errors.Is(err, table.ErrStatement) {
		t.Errorf("ValidateUnique(missing table) error = %v, want ErrStatement", err)
	}
}

func TestValidateUnique_InTx(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	acc := table.New(db)
	if err := acc.CreateTable(ctx, "users", []table.ColumnDef{
		{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "email", Definition: "TEXT"},
	}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	err = acc.InTx(ctx, func(tx *table.Accessor) error {
		if _, err := tx.Insert(ctx, "users", table.Row{"email": "pending@example.com"}); err != nil {
			return err
		}
		ok, err := New(tx).ValidateUnique(ctx, "users", "email", "pending@example.com", nil)
		if err != nil {
			return err
		}
		if ok {
			t.Error("ValidateUnique() inside tx = true, want false for uncommitted row")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
}
