package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a single named value of a record payload.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered field payload. Order is insertion order and is kept
// through projection and JSON encoding.
type Fields []Field

// NewFields builds Fields from alternating name/value pairs.
// A trailing name without a value is ignored.
func NewFields(pairs ...any) Fields {
	fields := make(Fields, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			continue
		}
		fields = fields.Set(name, pairs[i+1])
	}
	return fields
}

// Get returns the value stored under name.
func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// String returns the value stored under name formatted as a string.
// Missing and nil values yield "".
func (f Fields) String(name string) string {
	v, ok := f.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether name is present.
func (f Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Set replaces the value of an existing field in place or appends a new one.
func (f Fields) Set(name string, value any) Fields {
	for i := range f {
		if f[i].Name == name {
			f[i].Value = value
			return f
		}
	}
	return append(f, Field{Name: name, Value: value})
}

// Delete removes name, keeping the order of the remaining fields.
func (f Fields) Delete(name string) Fields {
	out := f[:0:0]
	for _, field := range f {
		if field.Name != name {
			out = append(out, field)
		}
	}
	return out
}

// Names lists field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Clone returns a shallow copy that can be modified independently.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Map returns the fields as an unordered map.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, field := range f {
		m[field.Name] = field.Value
	}
	return m
}

// MarshalJSON encodes the fields as a JSON object in field order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys.
// Nested values decode to the usual encoding/json types.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		out = out.Set(name, normalizeNumber(value))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// normalizeNumber turns json.Number into int64 when integral, float64 otherwise.
func normalizeNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if fl, err := t.Float64(); err == nil {
			return fl
		}
		return t.String()
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumber(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumber(inner)
		}
		return t
	}
	return v
}
