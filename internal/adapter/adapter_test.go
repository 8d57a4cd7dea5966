package adapter

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValue is a primitive-only Value used to exercise the defaults without
// an engine.
type stubValue struct {
	k kind.Kind
	n float64
	s string
	b bool
}

func (v stubValue) Kind() kind.Kind         { return v.k }
func (v stubValue) IsNullOrUndefined() bool { return IsNullOrUndefined(v) }
func (v stubValue) TypeOf() string          { return TypeOfKind(v.k) }

func (v stubValue) ToBool() bool {
	switch v.k {
	case kind.Boolean:
		return v.b
	case kind.String:
		return v.s != ""
	case kind.Int32, kind.Float64:
		return v.n != 0 && !math.IsNaN(v.n)
	case kind.Null, kind.Undefined:
		return false
	}
	return true
}

func (v stubValue) ToInt32() int32 {
	f := v.ToFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(int64(f))
}

func (v stubValue) ToFloat64() float64 {
	switch v.k {
	case kind.Int32, kind.Float64:
		return v.n
	case kind.Boolean:
		if v.b {
			return 1
		}
		return 0
	case kind.Null:
		return 0
	case kind.String:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func (v stubValue) ToString() string {
	switch v.k {
	case kind.String:
		return v.s
	case kind.Int32, kind.Float64:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case kind.Boolean:
		return strconv.FormatBool(v.b)
	case kind.Null:
		return "null"
	case kind.Undefined:
		return "undefined"
	}
	return "[object Object]"
}

// stubRealm implements the primitive constructors, traversal and cache; the
// embedded nil interface makes every other method panic if reached.
type stubRealm struct {
	Realm
	props map[string]Value
	keys  []string
	items []Value
	cache CacheTable[Value]
}

func (stubRealm) NullCreate() (Value, error)      { return stubValue{k: kind.Null}, nil }
func (stubRealm) UndefinedCreate() (Value, error) { return stubValue{k: kind.Undefined}, nil }
func (stubRealm) Int32Create(v int32) (Value, error) {
	return stubValue{k: kind.Int32, n: float64(v)}, nil
}
func (stubRealm) Float64Create(v float64) (Value, error) {
	return stubValue{k: kind.Float64, n: v}, nil
}
func (stubRealm) StringCreate(v string) (Value, error) { return stubValue{k: kind.String, s: v}, nil }
func (stubRealm) BooleanCreate(v bool) (Value, error)  { return stubValue{k: kind.Boolean, b: v}, nil }

func (r *stubRealm) ObjectTraverse(_ Value, visit func(string, Value) error) error {
	for _, k := range r.keys {
		if err := visit(k, r.props[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRealm) ArrayTraverse(_ Value, visit func(uint32, Value) error) error {
	for i, v := range r.items {
		if err := visit(uint32(i), v); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRealm) CacheAdd(v Value) CacheID { return r.cache.Add(v) }
func (r *stubRealm) CacheDispose(id CacheID)  { r.cache.Take(id) }
func (r *stubRealm) CacheWith(id CacheID, fn func(Value)) {
	fn(r.cache.Get(id))
}
func (r *stubRealm) CacheConsume(id CacheID) Value { return r.cache.Take(id) }

func TestDefaultConversionRoundTrip(t *testing.T) {
	realm := &stubRealm{}
	natives := []stubValue{
		{k: kind.Int32, n: 0},
		{k: kind.Int32, n: -1},
		{k: kind.Float64, n: 3.14},
		{k: kind.String, s: "abc"},
		{k: kind.String, s: ""},
		{k: kind.Boolean, b: true},
		{k: kind.Boolean, b: false},
		{k: kind.Null},
		{k: kind.Undefined},
	}
	for _, orig := range natives {
		fv, err := ToFacade(realm, orig)
		require.NoError(t, err)
		assert.Equal(t, orig.Kind(), fv.Kind())

		back, err := FromFacade(realm, fv)
		require.NoError(t, err)
		assert.Equal(t, orig.Kind(), back.Kind())
		assert.Equal(t, orig.ToInt32(), back.ToInt32())
		assert.Equal(t, orig.ToString(), back.ToString())
		assert.Equal(t, orig.ToBool(), back.ToBool())
		if f := orig.ToFloat64(); math.IsNaN(f) {
			assert.True(t, math.IsNaN(back.ToFloat64()))
		} else {
			assert.Equal(t, f, back.ToFloat64())
		}
	}
}

func TestDefaultConversionCoversEveryKind(t *testing.T) {
	for _, k := range kind.All() {
		fv, err := DefaultToFacade(stubValue{k: k})
		if k.IsPrimitive() {
			require.NoError(t, err, "%v", k)
			assert.Equal(t, k, fv.Kind())
			continue
		}
		require.ErrorIs(t, err, ErrUnimplementedKind, "%v", k)
		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, k, ae.ValueKind)
	}
}

func TestDefaultFromFacadeStructuredKinds(t *testing.T) {
	realm := &stubRealm{}
	for _, fv := range []facade.Value{
		facade.NewObject(),
		facade.NewArray(),
		facade.BigIntFromInt64(1),
		facade.InvalidDate(),
		facade.ResolvedPromise(facade.Null{}),
	} {
		_, err := DefaultFromFacade(realm, fv)
		assert.ErrorIs(t, err, ErrUnimplementedKind, "%v", fv.Kind())
	}
	v, err := DefaultFromFacade(realm, nil)
	require.NoError(t, err)
	assert.Equal(t, kind.Undefined, v.Kind())
}

type convertingRealm struct {
	stubRealm
	calls int
}

func (r *convertingRealm) ToFacade(Value) (facade.Value, error) {
	r.calls++
	return facade.String("custom"), nil
}

func (r *convertingRealm) FromFacade(facade.Value) (Value, error) {
	r.calls++
	return stubValue{k: kind.Object}, nil
}

func TestConverterOverride(t *testing.T) {
	realm := &convertingRealm{}
	fv, err := ToFacade(realm, stubValue{k: kind.Object})
	require.NoError(t, err)
	assert.Equal(t, facade.String("custom"), fv)
	v, err := FromFacade(realm, facade.NewObject())
	require.NoError(t, err)
	assert.Equal(t, kind.Object, v.Kind())
	assert.Equal(t, 2, realm.calls)
}

func TestIsNullOrUndefinedMatchesKind(t *testing.T) {
	for _, k := range kind.All() {
		v := stubValue{k: k}
		assert.Equal(t, k == kind.Null || k == kind.Undefined, v.IsNullOrUndefined(), "%v", k)
	}
}

func TestTypeOfKind(t *testing.T) {
	assert.Equal(t, "object", TypeOfKind(kind.Array))
	assert.Equal(t, "object", TypeOfKind(kind.Null))
	assert.Equal(t, "number", TypeOfKind(kind.Int32))
	assert.Equal(t, "bigint", TypeOfKind(kind.BigInt))
	assert.Equal(t, "function", TypeOfKind(kind.Function))
	assert.Equal(t, "", TypeOfKind(kind.Invalid))
}

func TestTraverseHelpers(t *testing.T) {
	realm := &stubRealm{
		keys: []string{"a", "b", "c"},
		props: map[string]Value{
			"a": stubValue{k: kind.Int32, n: 1},
			"b": stubValue{k: kind.Int32, n: 2},
			"c": stubValue{k: kind.Int32, n: 3},
		},
		items: []Value{stubValue{k: kind.String, s: "x"}, stubValue{k: kind.String, s: "y"}},
	}

	keys, err := TraverseObject(realm, nil, func(key string, v Value) (string, error) {
		return key + "=" + v.ToString(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, keys)

	boom := errors.New("boom")
	var visited []string
	_, err = TraverseObject(realm, nil, func(key string, _ Value) (int, error) {
		visited = append(visited, key)
		if key == "b" {
			return 0, boom
		}
		return 0, nil
	})
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"a", "b"}, visited)

	idx, err := TraverseArray(realm, nil, func(i uint32, v Value) (string, error) {
		return strconv.Itoa(int(i)) + v.ToString(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0x", "1y"}, idx)
}

func TestCacheLifecycle(t *testing.T) {
	realm := &stubRealm{}
	v := stubValue{k: kind.String, s: "kept"}
	id := realm.CacheAdd(v)

	for i := 0; i < 3; i++ {
		got := WithCached(realm, id, func(x Value) string { return x.ToString() })
		assert.Equal(t, "kept", got)
	}

	assert.Equal(t, v, realm.CacheConsume(id))
	assert.PanicsWithError(t, ErrContractViolation.Error()+": cache#1 is not live (never added, disposed or consumed)", func() {
		realm.CacheWith(id, func(Value) {})
	})
	assert.Panics(t, func() { realm.CacheConsume(id) })

	id2 := realm.CacheAdd(v)
	assert.NotEqual(t, id, id2, "ids are never reused")
	realm.CacheDispose(id2)
	assert.Panics(t, func() { realm.CacheDispose(id2) })
	assert.Equal(t, 0, realm.cache.Len())

	_, ok := realm.cache.Lookup(id2)
	assert.False(t, ok)
	id3 := realm.CacheAdd(v)
	got, ok := realm.cache.Lookup(id3)
	assert.True(t, ok)
	assert.Equal(t, Value(v), got)
}

func TestContractViolationIsDetectable(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrContractViolation)
	}()
	var table CacheTable[int]
	table.Get(7)
}

func TestErrorFormattingAndMatching(t *testing.T) {
	err := PropertyNotFound("Namespace", "a", "b")
	assert.Equal(t, "[Namespace] property_not_found at a.b", err.Error())
	assert.ErrorIs(t, err, ErrPropertyNotFound)
	assert.NotErrorIs(t, err, ErrScript)

	cause := errors.New("syntax")
	wrapped := &Error{Kind: KindScript, Op: "Eval", Detail: "main.js", Cause: cause}
	assert.Equal(t, "[Eval] script: main.js (caused by: syntax)", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	tm := TypeMismatch("ArrayLength", kind.String, "array")
	assert.Equal(t, "[ArrayLength] type_mismatch (string): expected array", tm.Error())

	assert.Equal(t, "[jsadapter] invalid_state: promise already settled",
		NewError(KindInvalidState, "", "promise already %s", "settled").Error())
}

func TestThrownReason(t *testing.T) {
	assert.Equal(t, facade.Int32(3), ThrownReason(stubValue{k: kind.Int32, n: 3}))
	assert.Equal(t, facade.String("[object Object]"), ThrownReason(stubValue{k: kind.Object}))
	assert.Equal(t, facade.Undefined{}, ThrownReason(nil))
}

func TestProxyDefinition(t *testing.T) {
	p := &Proxy{Namespace: []string{"net"}, Name: "Socket"}
	require.NoError(t, p.Validate())
	assert.Equal(t, "net.Socket", p.QualifiedName())
	assert.Equal(t, "Top", QualifiedName(nil, "Top"))
	assert.ErrorIs(t, (&Proxy{}).Validate(), ErrInvalidState)
	assert.Error(t, (&Proxy{Name: "X", Namespace: []string{""}}).Validate())
	var nilProxy *Proxy
	assert.Error(t, nilProxy.Validate())
	assert.Equal(t, "net.Socket#4", ProxyHandle{Class: "net.Socket", Instance: 4}.String())
}
