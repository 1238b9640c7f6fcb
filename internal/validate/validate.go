// Package validate holds the field-level error type shared by the
// configuration and job forms.
package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// Messages shown next to an offending field.
const (
	MsgRequired  = "This field is required"
	MsgNoSpaces  = "No spaces allowed"
	MsgNumber    = "Must be a valid number"
	MsgNonNeg    = "Must be a positive number or zero"
	MsgInteger   = "Must be a whole number"
	MsgDigits    = "Must contain digits only"
	MsgSerialsWS = "No spaces allowed in serials"
	MsgChoice    = "Select a valid option"
	MsgRange     = "Serial numbers exceed the supported range"
)

// TooMany is the message for a count above limit.
func TooMany(limit int) string {
	return fmt.Sprintf("Must be %d or fewer", limit)
}

// FieldError is a single failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is an ordered list of field errors. The order is the form's display
// order, so the first entry is the field that gets focus.
type Errors []FieldError

// Add appends an error for field.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// First returns the key of the first invalid field.
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Field
}

// Get returns the message for field, if any.
func (e Errors) Get(field string) (string, bool) {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// Map returns the errors keyed by field.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Err returns nil when there are no errors.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasSpace reports whether s contains any Unicode whitespace.
func HasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
