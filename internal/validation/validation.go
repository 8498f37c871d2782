package validation

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/nerrad567/tablekit/internal/table"
)

// Validation constants.
const (
	maxEmailLength = 254
	maxLocalLength = 64
)

// IsValidEmail reports whether s is a bare e-mail address (no display name,
// no angle brackets) whose domain has at least one dot.
func IsValidEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength {
		return false
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndexByte(s, '@')
	local, domain := s[:at], s[at+1:]
	if local == "" || len(local) > maxLocalLength {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") ||
		strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}
	return true
}

// ValidateRequired returns "<field> is required" for every field of fields
// that is absent from row, nil, or a blank string, in fields order.
func ValidateRequired(row table.Row, fields []string) []string {
	var errs []string
	for _, f := range fields {
		if isBlank(row[f]) {
			errs = append(errs, f+" is required")
		}
	}
	return errs
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case []byte:
		return strings.TrimSpace(string(s)) == ""
	default:
		return false
	}
}

// Contact is a contact-form submission.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Trimmed returns c with surrounding whitespace removed from every field.
func (c Contact) Trimmed() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Message: strings.TrimSpace(c.Message),
	}
}

// ValidateContact checks a trimmed submission and returns its problems in
// field order: name, email, message. A nil result means the form is valid.
func ValidateContact(c Contact) []string {
	c = c.Trimmed()

	var errs []string
	if c.Name == "" {
		errs = append(errs, "Name is required")
	}
	switch {
	case c.Email == "":
		errs = append(errs, "Email is required")
	case !IsValidEmail(c.Email):
		errs = append(errs, "Invalid email format")
	}
	if c.Message == "" {
		errs = append(errs, "Message is required")
	}
	return errs
}

// Validator runs checks that need to read a table.
type Validator struct {
	acc      *table.Accessor
	idColumn string
}

// New creates a Validator on acc, excluding rows by table.DefaultIDColumn.
func New(acc *table.Accessor) *Validator {
	return &Validator{acc: acc, idColumn: table.DefaultIDColumn}
}

// SetIDColumn sets the key column ValidateUnique uses for exclusion.
// An empty name restores table.DefaultIDColumn.
func (v *Validator) SetIDColumn(col string) {
	if col == "" {
		col = table.DefaultIDColumn
	}
	v.idColumn = col
}

// ValidateUnique reports whether no row of tbl has field equal to value.
// When excludeID is non-nil, the row with that key is ignored, so a record
// can keep its own value on update.
//
// Returns:
//   - bool: true if value is unused
//   - error: Statement failure; the bool is false in that case
func (v *Validator) ValidateUnique(ctx context.Context, tbl, field string, value, excludeID any) (bool, error) {
	conds := table.Conditions{table.Eq(field, value)}
	if excludeID != nil {
		conds = append(conds, table.NotEq(v.idColumn, excludeID))
	}

	n, err := v.acc.Count(ctx, tbl, conds)
	if err != nil {
		return false, fmt.Errorf("checking unique %s.%s: %w", tbl, field, err)
	}
	return n == 0, nil
}
