package vm

import (
	"math"
	"strconv"
)

// Kind identifies the type of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns a human-readable name for Kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to a heap-allocated object. Handles index
// the owning VM's heap table; a Value never owns the object it refers to.
type Handle uint32

// Value is a closed tagged union over nil, bool, int64, float64, and
// heap string handles. The payload is stored as raw bits selected by kind;
// accessors panic on kind mismatch.
type Value struct {
	kind Kind
	bits uint64
}

// Pre-defined singleton values.
var (
	Nil   = Value{kind: KindNil}
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool, bits: 0}
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsInt returns true if v holds an int64.
func (v Value) IsInt() bool { return v.kind == KindInt }

// IsFloat returns true if v holds a float64.
func (v Value) IsFloat() bool { return v.kind == KindFloat }

// IsNumber returns true if v holds an int64 or a float64.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsString returns true if v refers to a heap string.
func (v Value) IsString() bool { return v.kind == KindString }

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromInt creates a Value from an int64.
func FromInt(n int64) Value {
	return Value{kind: KindInt, bits: uint64(n)}
}

// FromFloat creates a Value from a float64.
func FromFloat(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

// FromHandle creates a string Value referring to a heap object.
func FromHandle(h Handle) Value {
	return Value{kind: KindString, bits: uint64(h)}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Bool returns v as a bool. Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a boolean")
	}
	return v.bits != 0
}

// Int returns v as an int64. Panics if v is not an integer.
func (v Value) Int() int64 {
	if v.kind != KindInt {
		panic("Value.Int: not an integer")
	}
	return int64(v.bits)
}

// Float returns v as a float64. Panics if v is not a float.
func (v Value) Float() float64 {
	if v.kind != KindFloat {
		panic("Value.Float: not a float")
	}
	return math.Float64frombits(v.bits)
}

// Handle returns the heap handle of a string value. Panics if v is not a string.
func (v Value) Handle() Handle {
	if v.kind != KindString {
		panic("Value.Handle: not a string")
	}
	return Handle(v.bits)
}

// ---------------------------------------------------------------------------
// Truthiness and coercion
// ---------------------------------------------------------------------------

// IsTruthy returns true if v is considered "truthy" in conditionals.
// Only nil and false are falsy; everything else is truthy, including
// numeric zero and the empty string.
func (v Value) IsTruthy() bool {
	return !(v.kind == KindNil || v == False)
}

// Number coerces v to a float64 for the uniform arithmetic path.
// Int and Float convert by value; non-numbers coerce deterministically:
// true is 1, false is 0, nil and strings are 0. Arithmetic opcodes coerce
// rather than reject, so this never fails.
func (v Value) Number() float64 {
	switch v.kind {
	case KindInt:
		return float64(int64(v.bits))
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindBool:
		return float64(v.bits)
	default:
		return 0
	}
}

// format returns the textual form of a non-string value: bool as
// true/false, nil as nil, Int as decimal, Float in shortest %g form.
// String values need heap access; see Heap.FormatValue.
func (v Value) format() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.bits != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	default:
		return "<string>"
	}
}
