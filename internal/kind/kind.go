// Package kind enumerates the categories of JavaScript value that the adapter
// layer can represent.
//
// The set is closed: every value, native or facade, is described by exactly
// one Kind, and the Kind is always derived from the value itself.
package kind

import "fmt"

// Kind is the category of a JavaScript value. It is finer than the result of
// the JavaScript typeof operator (e.g. Array and Date are distinct from
// Object, and integral numbers are distinct from other numbers).
type Kind uint8

const (
	// Invalid is the zero Kind. No value reports it.
	Invalid Kind = iota
	Int32
	Float64
	String
	Boolean
	Object
	Function
	BigInt
	Promise
	Date
	Null
	Undefined
	Array

	numKinds = iota
)

var names = [numKinds]string{
	Invalid:   "invalid",
	Int32:     "int32",
	Float64:   "float64",
	String:    "string",
	Boolean:   "boolean",
	Object:    "object",
	Function:  "function",
	BigInt:    "bigint",
	Promise:   "promise",
	Date:      "date",
	Null:      "null",
	Undefined: "undefined",
	Array:     "array",
}

// All returns every valid Kind, in declaration order.
func All() []Kind {
	out := make([]Kind, 0, numKinds-1)
	for k := Int32; k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is one of the twelve representable kinds.
func (k Kind) Valid() bool {
	return k > Invalid && k < numKinds
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if k < numKinds {
		return names[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsPrimitive reports whether values of this kind are converted by the
// default facade conversion, i.e. they carry no engine references.
func (k Kind) IsPrimitive() bool {
	switch k {
	case Int32, Float64, String, Boolean, Null, Undefined:
		return true
	default:
		return false
	}
}

// IsNullish reports whether k is Null or Undefined.
func (k Kind) IsNullish() bool {
	return k == Null || k == Undefined
}

// Parse returns the Kind named s, as produced by Kind.String.
func Parse(s string) (Kind, error) {
	for k := Int32; k < numKinds; k++ {
		if names[k] == s {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("unknown value kind: %q", s)
}
