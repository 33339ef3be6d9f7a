package spec

import (
	"fmt"
	"sort"
	"strings"
)

// IncompleteSpecError lists every mandatory field the request left out.
// It is surfaced to the caller; nothing downstream can recover it.
type IncompleteSpecError struct {
	Missing []string
}

func (e *IncompleteSpecError) Error() string {
	if len(e.Missing) == 0 {
		return "incomplete specification"
	}
	return "incomplete specification: missing " + strings.Join(e.Missing, ", ")
}

// add records a missing field once.
func (e *IncompleteSpecError) add(field string) {
	for _, m := range e.Missing {
		if m == field {
			return
		}
	}
	e.Missing = append(e.Missing, field)
}

// orNil returns nil when nothing is missing.
func (e *IncompleteSpecError) orNil() error {
	if e == nil || len(e.Missing) == 0 {
		return nil
	}
	sort.Strings(e.Missing)
	return e
}

// InvalidReferenceError reports a phase reference that does not resolve to
// a declared phase.
type InvalidReferenceError struct {
	Field string
	Ref   string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference in %s: phase %q is not declared", e.Field, e.Ref)
}

// InvalidValueError reports a value outside an enumerated set.
type InvalidValueError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of: %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}
