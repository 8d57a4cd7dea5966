package gojs

import (
	"math"
	"math/big"
	"reflect"

	"github.com/dop251/goja"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/kind"
)

// Value is a goja value bound to the realm that produced it.
type Value struct {
	realm *Realm
	v     goja.Value
}

var _ adapter.Value = Value{}

func (r *Realm) wrap(v goja.Value) Value {
	if v == nil {
		v = goja.Undefined()
	}
	return Value{realm: r, v: v}
}

func (r *Realm) wrapAll(vs []goja.Value) []adapter.Value {
	out := make([]adapter.Value, len(vs))
	for i, v := range vs {
		out[i] = r.wrap(v)
	}
	return out
}

// Native returns the underlying goja value.
func (v Value) Native() goja.Value {
	if v.v == nil {
		return goja.Undefined()
	}
	return v.v
}

// Realm returns the realm the value belongs to.
func (v Value) Realm() *Realm {
	return v.realm
}

func (v Value) Kind() kind.Kind {
	return classify(v.v)
}

func (v Value) IsNullOrUndefined() bool {
	return adapter.IsNullOrUndefined(v)
}

func (v Value) TypeOf() string {
	if _, ok := v.v.(*goja.Symbol); ok {
		return "symbol"
	}
	return adapter.TypeOfKind(v.Kind())
}

func (v Value) ToBool() bool {
	if v.v == nil {
		return false
	}
	return v.v.ToBoolean()
}

func (v Value) ToInt32() int32 {
	if n, ok := v.Native().Export().(int64); ok {
		// Go truncates to the low 32 bits, as ToInt32 does
		return int32(n)
	}
	return toInt32(v.ToFloat64())
}

func (v Value) ToFloat64() float64 {
	x := v.Native()
	switch x.(type) {
	case *goja.Object, *goja.Symbol:
		f := math.NaN()
		v.realm.vm.Try(func() {
			f = x.ToFloat()
		})
		return f
	}
	if b, ok := x.Export().(*big.Int); ok {
		f, _ := new(big.Float).SetInt(b).Float64()
		return f
	}
	return x.ToFloat()
}

func (v Value) ToString() string {
	switch x := v.Native().(type) {
	case *goja.Object:
		s := "[object " + x.ClassName() + "]"
		v.realm.vm.Try(func() {
			s = x.String()
		})
		return s
	default:
		return x.String()
	}
}

func (v Value) String() string {
	return v.ToString()
}

var promiseType = reflect.TypeOf((*goja.Promise)(nil))

// classify derives the kind of a goja value. Symbols are opaque objects.
func classify(v goja.Value) kind.Kind {
	if v == nil || goja.IsUndefined(v) {
		return kind.Undefined
	}
	if goja.IsNull(v) {
		return kind.Null
	}
	switch x := v.(type) {
	case *goja.Symbol:
		return kind.Object
	case *goja.Object:
		if _, ok := goja.AssertFunction(x); ok {
			return kind.Function
		}
		// promises report the class name Object; ExportType avoids copying
		// plain objects
		if x.ExportType() == promiseType {
			return kind.Promise
		}
		switch x.ClassName() {
		case "Array":
			return kind.Array
		case "Date":
			return kind.Date
		}
		return kind.Object
	}
	switch e := v.Export().(type) {
	case bool:
		return kind.Boolean
	case string:
		return kind.String
	case int64:
		if e >= math.MinInt32 && e <= math.MaxInt32 {
			return kind.Int32
		}
		return kind.Float64
	case float64:
		if isInt32(e) {
			return kind.Int32
		}
		return kind.Float64
	case *big.Int:
		return kind.BigInt
	}
	return kind.Object
}

func isInt32(f float64) bool {
	return f == math.Trunc(f) &&
		f >= math.MinInt32 && f <= math.MaxInt32 &&
		!(f == 0 && math.Signbit(f))
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Mod(math.Trunc(f), 1<<32)
	if f < 0 {
		f += 1 << 32
	}
	return int32(uint32(f))
}
