package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Value is a cell value that may be absent.
// Absent means "not supplied" and is distinct from a present empty string.
// The zero Value is absent.
type Value struct {
	s  string
	ok bool
}

// Absent returns the absent marker
func Absent() Value {
	return Value{}
}

// Of returns a present value, which may be empty
func Of(s string) Value {
	return Value{s: s, ok: true}
}

// IsAbsent reports whether v is the absent marker
func (v Value) IsAbsent() bool {
	return !v.ok
}

// Get returns the underlying string and whether it is present
func (v Value) Get() (string, bool) {
	return v.s, v.ok
}

// String returns the underlying string, or "" when absent
func (v Value) String() string {
	return v.s
}

// IsBlank reports whether v is absent or an empty string.
// Callers normalize first when whitespace-only values should count as blank.
func (v Value) IsBlank() bool {
	return !v.ok || v.s == ""
}

// MarshalJSON encodes absent as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.s)
}

// UnmarshalJSON decodes null as absent
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Absent()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Of(s)
	return nil
}

// MarshalYAML encodes absent as null
func (v Value) MarshalYAML() (any, error) {
	if !v.ok {
		return nil, nil
	}
	return v.s, nil
}

// UnmarshalYAML decodes a null node as absent
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*v = Absent()
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*v = Of(s)
	return nil
}
