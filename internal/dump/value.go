package dump

import (
	"strconv"
)

// Kind identifies the scalar type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is one scalar field of an exported row.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
}

// Tuple is one parenthesized row of values, in export order.
type Tuple []Value

func NullValue() Value { return Value{Kind: KindNull} }
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Text returns the value as the export would print it unquoted.
// NULL yields the empty string.
func (v Value) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// String implements fmt.Stringer for debugging output.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindString:
		return strconv.Quote(v.Str)
	default:
		return v.Text()
	}
}
