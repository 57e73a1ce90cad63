// Package optional models request fields that distinguish "absent" from
// "explicitly null" from "set to a value".
package optional

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state request value. The zero Field is absent.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a present field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a present field explicitly cleared.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON marks the field present. A JSON null leaves Value zero and
// sets Null.
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

// MarshalJSON renders null for absent or null fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
