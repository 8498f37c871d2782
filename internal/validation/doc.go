// Package validation checks user-supplied rows before they reach a table.
//
// IsValidEmail, ValidateRequired and ValidateContact are pure. Validator
// adds ValidateUnique, which queries the table through an accessor.
package validation
