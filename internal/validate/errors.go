package validate

import (
	"fmt"
	"sort"
	"strings"
)

// Error reports the fields that failed validation.
type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// Check returns an *Error when errs is not empty, else nil.
func Check(errs FieldErrors) error {
	if errs.OK() {
		return nil
	}
	return &Error{Fields: errs}
}
