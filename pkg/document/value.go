// Package document provides a typed, order-preserving view over decoded JSON
// bodies. Accessors fail with a *DecodeError naming the path of the offending
// member instead of panicking on an unexpected shape.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of a decoded JSON document. The zero Value is a null at
// the root path.
type Value struct {
	kind Kind
	path string

	b    bool
	num  json.Number
	str  string
	arr  []Value
	keys []string
	obj  map[string]Value
}

// DecodeError reports a member that is missing or holds the wrong kind.
type DecodeError struct {
	Path     string
	Expected string
	Actual   string
	Missing  bool
}

func (e *DecodeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("decode %s: missing", e.Path)
	}
	return fmt.Sprintf("decode %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// IsMissing reports whether err is a DecodeError for an absent member.
func IsMissing(err error) bool {
	var dErr *DecodeError
	return errors.As(err, &dErr) && dErr.Missing
}

// Decode parses a single JSON value. Object member order is preserved.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, "$")
	if err != nil {
		if err == io.EOF {
			return Value{}, fmt.Errorf("decoding document: empty body")
		}
		return Value{}, fmt.Errorf("decoding document: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("decoding document: trailing data after top-level value")
	}

	return v, nil
}

func decodeValue(dec *json.Decoder, path string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec, path)
		case '[':
			return decodeArray(dec, path)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q at %s", t, path)
	case string:
		return Value{kind: String, path: path, str: t}, nil
	case json.Number:
		return Value{kind: Number, path: path, num: t}, nil
	case bool:
		return Value{kind: Bool, path: path, b: t}, nil
	case nil:
		return Value{kind: Null, path: path}, nil
	}

	return Value{}, fmt.Errorf("unexpected token %v at %s", tok, path)
}

func decodeObject(dec *json.Decoder, path string) (Value, error) {
	v := Value{kind: Object, path: path, obj: make(map[string]Value)}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key at %s is not a string", path)
		}

		child, err := decodeValue(dec, memberPath(path, key))
		if err != nil {
			return Value{}, err
		}

		// Last duplicate wins, first position is kept
		if _, seen := v.obj[key]; !seen {
			v.keys = append(v.keys, key)
		}
		v.obj[key] = child
	}

	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeArray(dec *json.Decoder, path string) (Value, error) {
	v := Value{kind: Array, path: path, arr: []Value{}}

	for i := 0; dec.More(); i++ {
		child, err := decodeValue(dec, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return Value{}, err
		}
		v.arr = append(v.arr, child)
	}

	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func memberPath(parent, key string) string {
	if parent == "" {
		parent = "$"
	}
	return parent + "." + key
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Path returns the location of v in its document, e.g. "$.links[2].href".
func (v Value) Path() string {
	if v.path == "" {
		return "$"
	}
	return v.path
}

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) mismatch(expected Kind) *DecodeError {
	return &DecodeError{Path: v.Path(), Expected: expected.String(), Actual: v.kind.String()}
}

// Get returns the member named key. It fails when v is not an object or the
// member is absent.
func (v Value) Get(key string) (Value, error) {
	if v.kind != Object {
		return Value{}, v.mismatch(Object)
	}
	child, ok := v.obj[key]
	if !ok {
		return Value{}, &DecodeError{Path: memberPath(v.Path(), key), Missing: true}
	}
	return child, nil
}

// Lookup returns the member named key and whether it exists. Non-objects have
// no members.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Has reports whether v is an object with a member named key.
func (v Value) Has(key string) bool {
	_, ok := v.Lookup(key)
	return ok
}

// Keys returns object member names in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

// Len returns the number of elements of an array or members of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.keys)
	default:
		return 0
	}
}

func (v Value) AsString() (string, error) {
	if v.kind != String {
		return "", v.mismatch(String)
	}
	return v.str, nil
}

func (v Value) AsBool() (bool, error) {
	if v.kind != Bool {
		return false, v.mismatch(Bool)
	}
	return v.b, nil
}

func (v Value) AsFloat() (float64, error) {
	if v.kind != Number {
		return 0, v.mismatch(Number)
	}
	f, err := v.num.Float64()
	if err != nil {
		return 0, &DecodeError{Path: v.Path(), Expected: "number", Actual: v.num.String()}
	}
	return f, nil
}

// AsInt accepts any number with an integral value, so 10 and 10.0 both yield 10.
func (v Value) AsInt() (int, error) {
	if v.kind != Number {
		return 0, v.mismatch(Number)
	}
	if i, err := strconv.ParseInt(v.num.String(), 10, 64); err == nil {
		return int(i), nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, &DecodeError{Path: v.Path(), Expected: "integer", Actual: v.num.String()}
	}
	return int(f), nil
}

func (v Value) AsArray() ([]Value, error) {
	if v.kind != Array {
		return nil, v.mismatch(Array)
	}
	return v.arr, nil
}

// GetString is Get followed by AsString.
func (v Value) GetString(key string) (string, error) {
	child, err := v.Get(key)
	if err != nil {
		return "", err
	}
	return child.AsString()
}

// GetArray is Get followed by AsArray.
func (v Value) GetArray(key string) ([]Value, error) {
	child, err := v.Get(key)
	if err != nil {
		return nil, err
	}
	return child.AsArray()
}

// OptionalString returns the string member named key, or "" when it is absent
// or not a string.
func (v Value) OptionalString(key string) string {
	child, ok := v.Lookup(key)
	if !ok {
		return ""
	}
	s, err := child.AsString()
	if err != nil {
		return ""
	}
	return s
}

// Equal reports structural equality. Object member order is ignored and
// numbers compare by value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == other.b
	case String:
		return v.str == other.str
	case Number:
		if v.num == other.num {
			return true
		}
		a, errA := v.num.Float64()
		b, errB := other.num.Float64()
		return errA == nil && errB == nil && a == b
	case Array:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for key, child := range v.obj {
			otherChild, ok := other.obj[key]
			if !ok || !child.Equal(otherChild) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v to plain Go values: map[string]interface{},
// []interface{}, string, float64, bool or nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case String:
		return v.str
	case Number:
		f, _ := v.num.Float64()
		return f
	case Array:
		out := make([]interface{}, len(v.arr))
		for i, child := range v.arr {
			out[i] = child.Interface()
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(v.obj))
		for key, child := range v.obj {
			out[key] = child.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON re-encodes v with object members in document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.num.String())
	case String:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, child := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := child.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte(':')
			if err := v.obj[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
