// Package rowcodec implements the typed, length-prefixed binary row format
// from spec §3 ("Row") and §4.2 (C2), plus the tagged Value variant used
// in-memory everywhere a column value is carried (rows, WHERE literals,
// index keys).
package rowcodec

import "fmt"

// Tag identifies the wire representation of a Value, per spec §4.2:
// "0 NULL, 1 i32, 2 i64, 3 f64, 4 bool, 5 utf8-string". Any value outside
// this set is coerced to Tag 5 (stringified) on serialization, per the
// design note on runtime reflection / unbounded "any" values.
type Tag byte

const (
	TagNull   Tag = 0
	TagInt32  Tag = 1
	TagInt64  Tag = 2
	TagFloat  Tag = 3
	TagBool   Tag = 4
	TagString Tag = 5
)

// Value is the tagged variant {Null, I32, I64, F64, Bool, String} spec §3
// and §9 describe in place of unbounded reflection-driven "any" values.
type Value struct {
	Tag Tag
	I32 int32
	I64 int64
	F64 float64
	B   bool
	S   string
}

// Null is the canonical NULL value.
var Null = Value{Tag: TagNull}

func Int32(v int32) Value  { return Value{Tag: TagInt32, I32: v} }
func Int64(v int64) Value  { return Value{Tag: TagInt64, I64: v} }
func Float64(v float64) Value { return Value{Tag: TagFloat, F64: v} }
func Bool(v bool) Value    { return Value{Tag: TagBool, B: v} }
func String(v string) Value { return Value{Tag: TagString, S: v} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Tag == TagNull }

// Equal compares two values using the same equality spec §4.7 gives WHERE
// clauses: "NULL equals NULL for = purposes in this core".
func (v Value) Equal(o Value) bool {
	if v.Tag == TagNull || o.Tag == TagNull {
		return v.Tag == TagNull && o.Tag == TagNull
	}
	if v.Tag == o.Tag {
		switch v.Tag {
		case TagInt32:
			return v.I32 == o.I32
		case TagInt64:
			return v.I64 == o.I64
		case TagFloat:
			return v.F64 == o.F64
		case TagBool:
			return v.B == o.B
		case TagString:
			return v.S == o.S
		}
	}
	// Cross-type numeric comparison, per the comparable-key contract in
	// spec §4.5 ("if both values are numeric, compare as f64").
	vf, vok := v.asFloat()
	of, ook := o.asFloat()
	if vok && ook {
		return vf == of
	}
	return v.Text() == o.Text()
}

func (v Value) asFloat() (float64, bool) {
	switch v.Tag {
	case TagInt32:
		return float64(v.I32), true
	case TagInt64:
		return float64(v.I64), true
	case TagFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// Text renders the textual representation used by the final fallback of
// the comparison contract ("compare as UTF-8 strings of their textual
// representation") and by the codec's stringify-unknown-types policy.
func (v Value) Text() string {
	switch v.Tag {
	case TagNull:
		return ""
	case TagInt32:
		return fmt.Sprintf("%d", v.I32)
	case TagInt64:
		return fmt.Sprintf("%d", v.I64)
	case TagFloat:
		return fmt.Sprintf("%g", v.F64)
	case TagBool:
		return fmt.Sprintf("%t", v.B)
	case TagString:
		return v.S
	default:
		return ""
	}
}

// Native returns the Go-native representation, useful for JSON schema
// default_value round-tripping and for callers that want an any.
func (v Value) Native() any {
	switch v.Tag {
	case TagNull:
		return nil
	case TagInt32:
		return v.I32
	case TagInt64:
		return v.I64
	case TagFloat:
		return v.F64
	case TagBool:
		return v.B
	case TagString:
		return v.S
	default:
		return nil
	}
}

// FromNative coerces a Go-native value (as produced by the SQL literal
// parser or a JSON-decoded request) into a Value, stringifying anything
// outside the representable set per §9's trailing-type policy.
func FromNative(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case int32:
		return Int32(t)
	case int:
		return Int32(int32(t))
	case int64:
		return Int64(t)
	case float64:
		return Float64(t)
	case float32:
		return Float64(float64(t))
	case bool:
		return Bool(t)
	case string:
		return String(t)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
