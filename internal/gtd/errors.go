package gtd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an id or path does not resolve to an entity.
var ErrNotFound = errors.New("gtd: not found")

// ValidationError lists every problem found before a write was attempted.
type ValidationError struct {
	Entity   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gtd: invalid %s: %s", e.Entity, strings.Join(e.Problems, ", "))
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NotFound wraps ErrNotFound with the missing key.
func NotFound(kind, key string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, key)
}
