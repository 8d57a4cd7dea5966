package adapter

import (
	"fmt"

	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
)

// FacadeConverter is implemented by backend realms that supply their own
// conversion between native and facade values. A complete backend must
// convert every kind, including Object, Function, Array, BigInt, Promise and
// Date, for which the defaults return KindUnimplementedKind.
type FacadeConverter interface {
	ToFacade(v Value) (facade.Value, error)
	FromFacade(fv facade.Value) (Value, error)
}

// ToFacade detaches v. It uses the realm's FacadeConverter when present, and
// DefaultToFacade otherwise.
func ToFacade(realm Realm, v Value) (facade.Value, error) {
	if c, ok := realm.(FacadeConverter); ok {
		return c.ToFacade(v)
	}
	return DefaultToFacade(v)
}

// FromFacade materialises fv in realm. It uses the realm's FacadeConverter
// when present, and DefaultFromFacade otherwise.
func FromFacade(realm Realm, fv facade.Value) (Value, error) {
	if c, ok := realm.(FacadeConverter); ok {
		return c.FromFacade(fv)
	}
	return DefaultFromFacade(realm, fv)
}

// DefaultToFacade converts the primitive kinds by coercion and maps Null and
// Undefined to their markers. The structured kinds are an extension point:
// they yield a KindUnimplementedKind error rather than a lossy value.
func DefaultToFacade(v Value) (facade.Value, error) {
	switch k := v.Kind(); k {
	case kind.Int32:
		return facade.Int32(v.ToInt32()), nil
	case kind.Float64:
		return facade.Float64(v.ToFloat64()), nil
	case kind.String:
		return facade.String(v.ToString()), nil
	case kind.Boolean:
		return facade.Boolean(v.ToBool()), nil
	case kind.Null:
		return facade.Null{}, nil
	case kind.Undefined:
		return facade.Undefined{}, nil
	case kind.Object, kind.Function, kind.BigInt, kind.Promise, kind.Date, kind.Array:
		return nil, UnimplementedKind("ToFacade", k)
	default:
		panic(fmt.Sprintf("adapter: value reported invalid kind %v", k))
	}
}

// DefaultFromFacade creates the primitive kinds with the realm's primitive
// constructors. As with DefaultToFacade, the structured kinds yield a
// KindUnimplementedKind error.
func DefaultFromFacade(realm Realm, fv facade.Value) (Value, error) {
	switch fv := fv.(type) {
	case nil:
		return realm.UndefinedCreate()
	case facade.Int32:
		return realm.Int32Create(int32(fv))
	case facade.Float64:
		return realm.Float64Create(float64(fv))
	case facade.String:
		return realm.StringCreate(string(fv))
	case facade.Boolean:
		return realm.BooleanCreate(bool(fv))
	case facade.Null:
		return realm.NullCreate()
	case facade.Undefined:
		return realm.UndefinedCreate()
	case *facade.Object, *facade.Function, *facade.BigInt, *facade.Promise, facade.Date, *facade.Array:
		return nil, UnimplementedKind("FromFacade", fv.Kind())
	default:
		panic(fmt.Sprintf("adapter: unexpected facade type %T", fv))
	}
}

// ThrownReason renders a thrown native value as a detached reason: primitives
// convert directly, anything else becomes its string form.
func ThrownReason(v Value) facade.Value {
	if v == nil {
		return facade.Undefined{}
	}
	if v.Kind().IsPrimitive() {
		if fv, err := DefaultToFacade(v); err == nil {
			return fv
		}
	}
	return facade.String(v.ToString())
}
