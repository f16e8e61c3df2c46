// Package models defines the data structures shared across the biasd core:
// parameter values, the live device state, presets, and error types.
// JSON field names for presets match the original Home Assistant
// integration's storage format for drop-in compatibility.
package models

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant of a Value is populated. The numeric
// values are the wire protocol's data type codes.
type Kind int

const (
	KindString Kind = 10
	KindFloat  Kind = 20
	KindInt    Kind = 30
	KindBool   Kind = 40
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a tagged union over the parameter types the amplifier speaks.
// Only the field selected by Kind is meaningful.
type Value struct {
	Kind Kind
	Str  string
	Flt  float64
	Int  int
	Bool bool
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Flt: f} }
func IntValue(i int) Value { return Value{Kind: KindInt, Int: i} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindFloat:
		return v.Flt == o.Flt
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	}
	return false
}

// Truthy interprets the value as a boolean. The amplifier reports some
// boolean parameters as int 0/1 or float 0.0/1.0 depending on firmware.
func (v Value) Truthy() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindInt:
		return v.Int != 0, true
	case KindFloat:
		return v.Flt != 0, true
	default:
		return false, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return fmt.Sprintf("%s(%q)", v.Kind, v.Str)
	case KindFloat:
		return fmt.Sprintf("%s(%g)", v.Kind, v.Flt)
	case KindInt:
		return fmt.Sprintf("%s(%d)", v.Kind, v.Int)
	case KindBool:
		return fmt.Sprintf("%s(%t)", v.Kind, v.Bool)
	default:
		return v.Kind.String()
	}
}
