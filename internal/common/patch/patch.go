// Package patch models partial updates: a request field can be absent,
// explicitly null, or carry a value, and only present fields are applied.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field is a JSON field that remembers whether it was present in the payload.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field holding v, as if v had been sent by the client.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Cleared returns a Field that was sent as an explicit null.
func Cleared[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present reports whether the field carries a non-null value.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// Assignment is one column update produced from a patch.
type Assignment struct {
	Column string
	Value  any
}

// Assignments collects column updates in the order they were added.
type Assignments []Assignment

// Add appends the field to the assignment list when it was sent. Null becomes
// a SQL NULL.
func Add[T any](a *Assignments, column string, f Field[T]) {
	if !f.Set {
		return
	}
	if f.Null {
		*a = append(*a, Assignment{Column: column, Value: nil})
		return
	}
	*a = append(*a, Assignment{Column: column, Value: f.Value})
}

// AddValue appends an assignment that does not come from a request field.
func (a *Assignments) AddValue(column string, value any) {
	*a = append(*a, Assignment{Column: column, Value: value})
}

// Empty reports whether nothing is to be updated.
func (a Assignments) Empty() bool {
	return len(a) == 0
}
