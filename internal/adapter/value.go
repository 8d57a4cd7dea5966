// Package adapter defines the engine-agnostic contract between host code and
// an embedded JavaScript engine.
//
// Four contracts make up the layer: Runtime owns realms, Realm performs every
// value-producing or mutating operation within one global object graph, Value
// is a native engine handle, and Promise is a native engine promise. Native
// values are confined to the goroutine driving the engine and to the realm
// that produced them; ToFacade and FromFacade are the only bridge to the
// detached values of package facade.
//
// A backend implements Runtime, Realm, Value and Promise. Optionally its Realm
// also implements FacadeConverter, to supply the structured kinds that the
// default conversion leaves unimplemented.
package adapter

import "github.com/joeycumines/jsadapter/internal/kind"

// Value is a native, engine-confined JavaScript value. It borrows engine
// state: it must only be used on the engine goroutine, within the realm that
// produced it, and must not be retained beyond the operation that returned it
// unless registered with Realm.CacheAdd.
//
// Value deliberately has no way to mark itself safe for concurrent use.
type Value interface {
	// Kind returns the authoritative kind of the value.
	Kind() kind.Kind

	// IsNullOrUndefined reports whether Kind is Null or Undefined.
	IsNullOrUndefined() bool

	// TypeOf returns the JavaScript typeof string, e.g. "object" for both
	// arrays and plain objects.
	TypeOf() string

	// ToBool applies JavaScript truthiness.
	ToBool() bool

	// ToInt32 applies the ECMAScript ToInt32 conversion.
	ToInt32() int32

	// ToFloat64 applies JavaScript ToNumber. It never fails; values whose
	// conversion throws yield NaN.
	ToFloat64() float64

	// ToString applies JavaScript String(). It never fails.
	ToString() string
}

// IsNullOrUndefined is the derived default for Value.IsNullOrUndefined.
func IsNullOrUndefined(v Value) bool {
	return v.Kind().IsNullish()
}

// TypeOfKind returns the typeof string implied by a kind. It is exact for
// every kind except Object, which also covers symbols in some backends.
func TypeOfKind(k kind.Kind) string {
	switch k {
	case kind.Int32, kind.Float64:
		return "number"
	case kind.String:
		return "string"
	case kind.Boolean:
		return "boolean"
	case kind.Function:
		return "function"
	case kind.BigInt:
		return "bigint"
	case kind.Undefined:
		return "undefined"
	case kind.Object, kind.Promise, kind.Date, kind.Null, kind.Array:
		return "object"
	default:
		return ""
	}
}

// Script is a unit of source code for evaluation.
type Script struct {
	// Path identifies the script in diagnostics, and is the module path for
	// Realm.EvalModule.
	Path string
	Code string
}

// NewScript returns a Script.
func NewScript(path, code string) Script {
	return Script{Path: path, Code: code}
}
