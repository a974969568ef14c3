package query

import "strings"

// Assignment is one column = value pair of a partial UPDATE. Column must be
// a trusted identifier; only Value is bound.
type Assignment struct {
	Column string
	Value  any
}

// Set renders "col1 = ?1, col2 = ?2" for the given assignments. It returns
// the empty string when there is nothing to assign.
func Set(b *Binder, assignments []Assignment) string {
	parts := make([]string, 0, len(assignments))
	for _, a := range assignments {
		parts = append(parts, a.Column+" = "+b.Bind(a.Column, a.Value))
	}
	return strings.Join(parts, ", ")
}
