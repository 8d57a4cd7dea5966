package facade

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"time"
)

// Of converts a plain Go value into a facade Value.
//
// Supported inputs are nil (Null), Value (returned as-is), bool, string, all
// integer and float types (JavaScript numbers), *big.Int, time.Time,
// CallFunc, and slices, arrays and string-keyed maps of supported values.
// Map keys are emitted in sorted order.
func Of(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Boolean(x), nil
	case string:
		return String(x), nil
	case int:
		return Number(float64(x)), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Number(float64(x)), nil
	case float64:
		return Number(x), nil
	case *big.Int:
		return NewBigInt(x), nil
	case time.Time:
		return NewDate(x), nil
	case CallFunc:
		return NewFunction(FunctionSpec{Call: x}), nil
	case func(context.Context, []Value) (Value, error):
		return NewFunction(FunctionSpec{Call: x}), nil
	}
	return ofReflect(reflect.ValueOf(x))
}

func ofReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return Of(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return Null{}, nil
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := Of(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return NewArray(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("facade: unsupported map key type %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			v, err := Of(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, Field{Key: k, Value: v})
		}
		return NewObject(fields...), nil
	}
	if !rv.IsValid() {
		return Null{}, nil
	}
	return nil, fmt.Errorf("facade: unsupported Go type %s", rv.Type())
}

// MustOf is like Of but panics on error. It is intended for literals.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Export converts v into a plain Go value: int64, float64, string, bool,
// nil, *big.Int, time.Time, map[string]any, []any, *Function or *Promise.
func Export(v Value) any {
	switch v := v.(type) {
	case nil, Null, Undefined:
		return nil
	case Int32:
		return int64(v)
	case Float64:
		return float64(v)
	case String:
		return string(v)
	case Boolean:
		return bool(v)
	case *BigInt:
		return v.Int()
	case Date:
		return v.Time()
	case *Object:
		m := make(map[string]any, v.Len())
		for k, fv := range v.Fields() {
			m[k] = Export(fv)
		}
		return m
	case *Array:
		s := make([]any, v.Len())
		for i, ev := range v.All() {
			s[i] = Export(ev)
		}
		return s
	case *Function:
		return v
	case *Promise:
		return v
	default:
		panic(fmt.Sprintf("facade: unexpected value type %T", v))
	}
}

// Equal reports whether a and b are structurally equal. NaN equals NaN,
// functions and promises compare by identity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Float64:
		bf := float64(b.(Float64))
		if math.IsNaN(float64(a)) {
			return math.IsNaN(bf)
		}
		return float64(a) == bf && math.Signbit(float64(a)) == math.Signbit(bf)
	case *BigInt:
		return a.Cmp(b.(*BigInt)) == 0
	case Date:
		bd := b.(Date)
		if !a.Valid() || !bd.Valid() {
			return a.Valid() == bd.Valid()
		}
		return a.UnixMilli() == bd.UnixMilli()
	case *Object:
		bo := b.(*Object)
		if a.Len() != bo.Len() {
			return false
		}
		for i, k := range a.keys {
			if bo.keys[i] != k || !Equal(a.values[k], bo.values[k]) {
				return false
			}
		}
		return true
	case *Array:
		ba := b.(*Array)
		if a.Len() != ba.Len() {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], ba.items[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
