package dblib

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NullGlyph is the raw text that ParseValue turns into NULL.
const NullGlyph = "\\0"

// ErrUnsupportedValue is returned by ValueOf for Go types that have no column representation.
var ErrUnsupportedValue = errors.New("unsupported value type")

// Kind identifies which member of a Value is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a dynamically typed column value. The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func Null() Value            { return Value{} }
func Int(v int64) Value      { return Value{kind: KindInt, i: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, f: v} }
func String(v string) Value  { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value   { return Value{kind: KindBytes, b: bytes.Clone(v)} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// ValueOf converts a value produced by a database/sql driver (or supplied by
// a caller) into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return Null(), fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, t)
		}
		return Int(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Null(), fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, t)
		}
		return Int(int64(t)), nil
	case bool:
		if t {
			return Int(1), nil
		}
		return Int(0), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

// MustValueOf is like ValueOf but panics on unsupported types.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseValue converts raw user input into a Value: the NullGlyph becomes
// NULL, integer and float literals become numbers, anything else is text.
func ParseValue(raw string) Value {
	if raw == NullGlyph {
		return Null()
	}
	trimmed := strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(v)
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return Float(v)
	}
	return String(raw)
}

// AsInt returns the integer member.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the numeric value as a float; integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string member.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns a copy of the bytes member.
func (v Value) AsBytes() ([]byte, bool) { return bytes.Clone(v.b), v.kind == KindBytes }

// Any returns the value as a plain Go value (nil, int64, float64, string or []byte).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return bytes.Clone(v.b)
	default:
		return nil
	}
}

// Value implements driver.Valuer so a Value can be passed as a statement argument.
func (v Value) Value() (driver.Value, error) { return v.Any(), nil }

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return string(v.b)
	default:
		return ""
	}
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	}
	return false
}

// Fields maps column names to values for one row.
type Fields map[string]Value

// Clone returns a deep copy. Cloning a nil Fields returns nil.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if v.kind == KindBytes {
			v = Bytes(v.b)
		}
		out[k] = v
	}
	return out
}

// Columns returns the column names in sorted order so generated SQL is stable.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// FieldsOf builds Fields from plain Go values.
func FieldsOf(m map[string]any) (Fields, error) {
	out := make(Fields, len(m))
	for k, x := range m {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
