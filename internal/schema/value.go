package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

// Value is a resolved field value. A nil Value means the field is absent.
// The concrete types are String, Number, Bool, Strings and Files.
type Value interface {
	isValue()
}

type String string

type Number float64

type Bool bool

type Strings []string

// Files holds raw remote file references awaiting materialization
type Files []notion.File

func (String) isValue()  {}
func (Number) isValue()  {}
func (Bool) isValue()    {}
func (Strings) isValue() {}
func (Files) isValue()   {}

// MarshalJSON encodes a nil list as [] so the output shape is stable
func (s Strings) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// MarshalJSON encodes unmaterialized files as their URLs
func (f Files) MarshalJSON() ([]byte, error) {
	urls := make([]string, 0, len(f))
	for _, file := range f {
		urls = append(urls, file.URL())
	}
	return json.Marshal(urls)
}

// MarshalJSON writes whole numbers without a fractional part
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

// Field is one named value of a record
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered set of fields. Field order follows the schema so
// encoded output is byte-stable across runs.
type Record struct {
	Fields []Field
}

// Get returns the value of a field, nil if absent
func (r *Record) Get(name string) Value {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Set replaces a field value in place or appends a new field
func (r *Record) Set(name string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Delete removes a field
func (r *Record) Delete(name string) {
	out := r.Fields[:0]
	for _, f := range r.Fields {
		if f.Name != name {
			out = append(out, f)
		}
	}
	r.Fields = out
}

// String returns the field as text; non-string values are formatted
func (r *Record) String(name string) string {
	return AsString(r.Get(name))
}

// Bool returns the field as a boolean, def when absent
func (r *Record) Bool(name string, def bool) bool {
	if b, ok := r.Get(name).(Bool); ok {
		return bool(b)
	}
	return def
}

// Number returns the field as a number, def when absent
func (r *Record) Number(name string, def float64) float64 {
	if n, ok := r.Get(name).(Number); ok {
		return float64(n)
	}
	return def
}

// Strings returns the field as a list
func (r *Record) Strings(name string) []string {
	switch v := r.Get(name).(type) {
	case Strings:
		return []string(v)
	case String:
		if v == "" {
			return nil
		}
		return []string{string(v)}
	}
	return nil
}

// MarshalJSON encodes the record as an object in field order. Absent
// values encode as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Value == nil {
			buf.WriteString("null")
			continue
		}
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", f.Name, err)
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsString formats any value as text
func AsString(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	case Strings:
		return strings.Join(v, ", ")
	case Files:
		if len(v) > 0 {
			return v[0].URL()
		}
	}
	return ""
}
