// Package validation checks entity schemas, field definitions and record
// values before anything is written to the gateway. Every check returns an
// ordered list of user-facing messages; an empty list means valid.
package validation

import (
	"regexp"
	"strings"
)

// Separator joins messages for display.
const Separator = "; "

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// Errors is an ordered list of validation messages. It implements error so
// callers can return it directly; a nil or empty Errors means valid.
type Errors []string

func (e Errors) Error() string {
	return Join(e)
}

// Err returns e as an error, or nil when there are no messages.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Join renders messages for display.
func Join(msgs []string) string {
	return strings.Join(msgs, Separator)
}

// IsIdentifier reports whether name is a valid entity or field identifier.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
