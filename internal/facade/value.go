// Package facade implements the detached representation of JavaScript values.
//
// A facade Value owns all of its data and holds no engine handles, so it may
// be stored, copied and shared between goroutines freely. Facade values are
// produced from native values by the adapter conversion protocol, and
// converted back when they are passed into an engine.
//
// Values are immutable once constructed. The only exception is Promise, which
// is a write-once future: it settles at most once, through its Settler.
package facade

import (
	"math"
	"strconv"

	"github.com/joeycumines/jsadapter/internal/kind"
)

// Value is a detached JavaScript value. The set of implementations is closed;
// use a type switch over the concrete types of this package to consume one.
type Value interface {
	// Kind reports the category of the value.
	Kind() kind.Kind

	// String returns a short human-readable rendering, for diagnostics.
	String() string

	isValue()
}

type (
	// Int32 is an integral JavaScript number within the int32 range.
	Int32 int32

	// Float64 is any other JavaScript number, including NaN, ±Inf and -0.
	Float64 float64

	// String is a JavaScript string.
	String string

	// Boolean is a JavaScript boolean.
	Boolean bool

	// Null is the JavaScript null value.
	Null struct{}

	// Undefined is the JavaScript undefined value.
	Undefined struct{}
)

var (
	_ Value = Int32(0)
	_ Value = Float64(0)
	_ Value = String("")
	_ Value = Boolean(false)
	_ Value = Null{}
	_ Value = Undefined{}
	_ Value = (*BigInt)(nil)
	_ Value = Date{}
	_ Value = (*Object)(nil)
	_ Value = (*Array)(nil)
	_ Value = (*Function)(nil)
	_ Value = (*Promise)(nil)
)

func (Int32) Kind() kind.Kind     { return kind.Int32 }
func (Float64) Kind() kind.Kind   { return kind.Float64 }
func (String) Kind() kind.Kind    { return kind.String }
func (Boolean) Kind() kind.Kind   { return kind.Boolean }
func (Null) Kind() kind.Kind      { return kind.Null }
func (Undefined) Kind() kind.Kind { return kind.Undefined }

func (v Int32) String() string { return strconv.FormatInt(int64(v), 10) }

func (v Float64) String() string { return formatNumber(float64(v)) }

func (v String) String() string { return strconv.Quote(string(v)) }

func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

func (Null) String() string { return "null" }

func (Undefined) String() string { return "undefined" }

func (Int32) isValue()     {}
func (Float64) isValue()   {}
func (String) isValue()    {}
func (Boolean) isValue()   {}
func (Null) isValue()      {}
func (Undefined) isValue() {}

// Number returns the JavaScript number for a finite or non-finite float,
// choosing Int32 when the value is integral, in range and not negative zero.
func Number(f float64) Value {
	if isInt32(f) {
		return Int32(int32(f))
	}
	return Float64(f)
}

func isInt32(f float64) bool {
	return f == math.Trunc(f) &&
		f >= math.MinInt32 && f <= math.MaxInt32 &&
		!(f == 0 && math.Signbit(f))
}

// formatNumber renders a float the way JavaScript's Number#toString does for
// the common cases.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// IsNullOrUndefined reports whether v is Null or Undefined. A nil interface
// is treated as Undefined.
func IsNullOrUndefined(v Value) bool {
	return v == nil || v.Kind().IsNullish()
}
