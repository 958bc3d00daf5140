// Package rawjson provides a typed representation of decoded JSON documents.
//
// Fetched payloads are decoded once into a Value and converted into domain
// records through the coercion helpers (Int, Text) so that type juggling does
// not leak into the rest of the pipeline.
package rawjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the JSON type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON type name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrInvalidJSON is returned when a document is not syntactically valid JSON.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrNotInteger is returned when a value cannot be coerced to an integer.
	ErrNotInteger = errors.New("not an integer")

	// ErrNotText is returned when a value cannot be rendered as text.
	ErrNotText = errors.New("not a text value")
)

// Value is a decoded JSON value. The zero Value is JSON null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a JSON number literal.
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Int wraps an integer.
func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array wraps a sequence of values.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Object wraps a set of named fields.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Decode parses a JSON document. Numbers keep their literal representation.
func Decode(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return FromAny(v)
}

// FromAny converts the output of encoding/json (decoded with UseNumber or not)
// into a Value.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case float64:
		return Number(json.Number(strconv.FormatFloat(t, 'f', -1, 64))), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, raw := range t {
			item, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for name, raw := range t {
			field, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = field
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported json type %T", v)
	}
}

// Kind returns the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Field returns the named field of an object. Missing fields and fields
// holding null both report ok=false.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	if !ok || f.IsNull() {
		return Value{}, false
	}
	return f, true
}

// Keys returns the sorted field names of an object.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of elements of an array or fields of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Items returns v as a payload sequence: the elements of an array, nothing
// for null, and v itself for any other value.
func (v Value) Items() []Value {
	switch v.kind {
	case KindArray:
		return v.arr
	case KindNull:
		return nil
	default:
		return []Value{v}
	}
}

// AsInt coerces a number or numeric string to an integer. Fractional numbers
// are rejected.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindNumber:
		return parseInteger(string(v.num))
	case KindString:
		return parseInteger(strings.TrimSpace(v.str))
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, v.kind)
	}
}

const twoTo63 = float64(1 << 63)

func parseInteger(s string) (int64, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q out of range", ErrNotInteger, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f != math.Trunc(f) || f >= twoTo63 || f < -twoTo63 {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	return int64(f), nil
}

// Text renders a string, number or boolean as text.
func (v Value) Text() (string, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNumber:
		return string(v.num), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotText, v.kind)
	}
}

// Interface converts v back into plain Go values (map[string]any, []any,
// string, bool, json.Number, nil).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, f := range v.obj {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
