// Package adaptertest provides a conformance suite for adapter backends.
//
// The suite talks to a backend only through the adapter contracts, plus the
// small amount of glue in Backend that the contracts leave to the concrete
// engine: constructing a runtime, entering its engine goroutine, and driving
// pending promise reactions.
//
// Closures passed to Backend.Do run on the engine goroutine, so the suite
// only uses non-fatal assertions inside them and reports fatal conditions by
// returning an error.
package adaptertest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is the glue between the suite and a concrete engine.
type Backend struct {
	// New returns a fresh runtime. It should register its own cleanup with
	// t.Cleanup.
	New func(t *testing.T) adapter.Runtime

	// Do runs fn on the engine goroutine that owns rt and waits for it,
	// returning fn's error. A panic raised by fn must be re-raised on the
	// calling goroutine.
	Do func(rt adapter.Runtime, fn func() error) error

	// Flush drives pending promise reactions of realm to completion. It is
	// called on the engine goroutine. Nil means reactions run without help.
	Flush func(realm adapter.Realm)

	// StrictProperties reports that ObjectGetProperty fails with
	// KindPropertyNotFound for a missing key rather than yielding Undefined.
	StrictProperties bool
}

// Run executes the whole suite against b.
func Run(t *testing.T, b Backend) {
	require.NotNil(t, b.New, "Backend.New")
	require.NotNil(t, b.Do, "Backend.Do")

	for _, tc := range []struct {
		name string
		fn   func(t *testing.T, b Backend)
	}{
		{"Runtime", testRuntime},
		{"Kinds", testKinds},
		{"Coercions", testCoercions},
		{"PrimitiveRoundTrip", testPrimitiveRoundTrip},
		{"Eval", testEval},
		{"EvalModule", testEvalModule},
		{"Namespace", testNamespace},
		{"InstallAndInvoke", testInstallAndInvoke},
		{"InvocationErrors", testInvocationErrors},
		{"FunctionCreate", testFunctionCreate},
		{"Objects", testObjects},
		{"ObjectTraverse", testObjectTraverse},
		{"Arrays", testArrays},
		{"Cache", testCache},
		{"Promise", testPromise},
		{"InstanceOf", testInstanceOf},
		{"Proxy", testProxy},
		{"StructuredFacade", testStructuredFacade},
		{"FacadeFunction", testFacadeFunction},
		{"FacadePromise", testFacadePromise},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.fn(t, b)
		})
	}
}

// do runs fn against the main realm of rt, failing the test on error.
func (b Backend) do(t *testing.T, rt adapter.Runtime, fn func(realm adapter.Realm) error) {
	t.Helper()
	require.NoError(t, b.Do(rt, func() error {
		return fn(rt.MainRealm())
	}))
}

func (b Backend) flush(realm adapter.Realm) {
	if b.Flush != nil {
		b.Flush(realm)
	}
}

func eval(realm adapter.Realm, code string) (adapter.Value, error) {
	return realm.Eval(adapter.NewScript("test.js", code))
}

func testRuntime(t *testing.T, b Backend) {
	rt := b.New(t)
	main := rt.MainRealm()
	require.NotNil(t, main)

	got, ok := rt.Realm(main.ID())
	require.True(t, ok)
	assert.Equal(t, main.ID(), got.ID())

	_, ok = rt.Realm("no-such-realm")
	assert.False(t, ok)

	var other adapter.Realm
	require.NoError(t, b.Do(rt, func() error {
		var err error
		other, err = rt.CreateRealm("second")
		return err
	}))
	assert.Equal(t, "second", other.ID())

	got, ok = rt.Realm("second")
	require.True(t, ok)
	assert.Equal(t, "second", got.ID())

	err := b.Do(rt, func() error {
		_, err := rt.CreateRealm("second")
		return err
	})
	require.ErrorIs(t, err, adapter.ErrDuplicateRealm)

	err = b.Do(rt, func() error {
		_, err := rt.CreateRealm(main.ID())
		return err
	})
	require.ErrorIs(t, err, adapter.ErrDuplicateRealm)

	// realms have separate globals
	require.NoError(t, b.Do(rt, func() error {
		if _, err := eval(main, "globalThis.marker = 1"); err != nil {
			return err
		}
		v, err := eval(other, "typeof globalThis.marker")
		if err != nil {
			return err
		}
		assert.Equal(t, "undefined", v.ToString())
		return nil
	}))
}

func testKinds(t *testing.T, b Backend) {
	rt := b.New(t)
	cases := []struct {
		code   string
		kind   kind.Kind
		typeOf string
	}{
		{"1", kind.Int32, "number"},
		{"-2147483648", kind.Int32, "number"},
		{"2147483648", kind.Float64, "number"},
		{"1.5", kind.Float64, "number"},
		{"-0", kind.Float64, "number"},
		{"NaN", kind.Float64, "number"},
		{"'s'", kind.String, "string"},
		{"true", kind.Boolean, "boolean"},
		{"({})", kind.Object, "object"},
		{"(function () {})", kind.Function, "function"},
		{"(class {})", kind.Function, "function"},
		{"10n", kind.BigInt, "bigint"},
		{"Promise.resolve(1)", kind.Promise, "object"},
		{"new Date(0)", kind.Date, "object"},
		{"null", kind.Null, "object"},
		{"undefined", kind.Undefined, "undefined"},
		{"[1, 2]", kind.Array, "object"},
	}
	b.do(t, rt, func(realm adapter.Realm) error {
		for _, tc := range cases {
			v, err := eval(realm, tc.code)
			if err != nil {
				return err
			}
			assert.Equal(t, tc.kind, v.Kind(), tc.code)
			assert.Equal(t, tc.typeOf, v.TypeOf(), tc.code)
			assert.Equal(t, tc.kind == kind.Null || tc.kind == kind.Undefined, v.IsNullOrUndefined(), tc.code)
		}
		return nil
	})
}

func testCoercions(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		type want struct {
			b bool
			i int32
			f float64
			s string
		}
		cases := []struct {
			code string
			want want
		}{
			{"'42'", want{true, 42, 42, "42"}},
			{"' 3.5 '", want{true, 3, 3.5, " 3.5 "}},
			{"''", want{false, 0, 0, ""}},
			{"null", want{false, 0, 0, "null"}},
			{"true", want{true, 1, 1, "true"}},
			{"4294967297", want{true, 1, 4294967297, "4294967297"}},
			{"-1.9", want{true, -1, -1.9, "-1.9"}},
			{"[1, 2]", want{true, 0, math.NaN(), "1,2"}},
			{"[7]", want{true, 7, 7, "7"}},
			{"({})", want{true, 0, math.NaN(), "[object Object]"}},
			{"({valueOf() { return 5 }, toString() { return 'five' }})", want{true, 5, 5, "five"}},
			{"({toString() { throw new Error('no') }})", want{true, 0, math.NaN(), "[object Object]"}},
			{"10n", want{true, 10, 10, "10"}},
			{"0n", want{false, 0, 0, "0"}},
		}
		for _, tc := range cases {
			v, err := eval(realm, tc.code)
			if err != nil {
				return err
			}
			assert.Equal(t, tc.want.b, v.ToBool(), "%s ToBool", tc.code)
			assert.Equal(t, tc.want.i, v.ToInt32(), "%s ToInt32", tc.code)
			if math.IsNaN(tc.want.f) {
				assert.True(t, math.IsNaN(v.ToFloat64()), "%s ToFloat64", tc.code)
			} else {
				assert.Equal(t, tc.want.f, v.ToFloat64(), "%s ToFloat64", tc.code)
			}
			assert.Equal(t, tc.want.s, v.ToString(), "%s ToString", tc.code)
		}

		undef, err := realm.UndefinedCreate()
		if err != nil {
			return err
		}
		assert.False(t, undef.ToBool())
		assert.True(t, math.IsNaN(undef.ToFloat64()))
		assert.Equal(t, int32(0), undef.ToInt32())
		assert.Equal(t, "undefined", undef.ToString())

		for _, code := range []string{"NaN", "Infinity", "-Infinity"} {
			v, err := eval(realm, code)
			if err != nil {
				return err
			}
			assert.Equal(t, int32(0), v.ToInt32(), code)
		}
		return nil
	})
}

func testPrimitiveRoundTrip(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		create := []func() (adapter.Value, error){
			func() (adapter.Value, error) { return realm.Int32Create(0) },
			func() (adapter.Value, error) { return realm.Int32Create(-1) },
			func() (adapter.Value, error) { return realm.Float64Create(3.14) },
			func() (adapter.Value, error) { return realm.Float64Create(math.NaN()) },
			func() (adapter.Value, error) { return realm.StringCreate("abc") },
			func() (adapter.Value, error) { return realm.StringCreate("") },
			func() (adapter.Value, error) { return realm.BooleanCreate(true) },
			func() (adapter.Value, error) { return realm.BooleanCreate(false) },
			realm.NullCreate,
			realm.UndefinedCreate,
		}
		for i, fn := range create {
			orig, err := fn()
			if err != nil {
				return err
			}
			assert.Equal(t, orig.Kind() == kind.Null || orig.Kind() == kind.Undefined, orig.IsNullOrUndefined(), "case %d", i)

			fv, err := adapter.ToFacade(realm, orig)
			if err != nil {
				return err
			}
			back, err := adapter.FromFacade(realm, fv)
			if err != nil {
				return err
			}
			assert.Equal(t, orig.Kind(), back.Kind(), "case %d", i)
			assert.Equal(t, orig.ToInt32(), back.ToInt32(), "case %d", i)
			assert.Equal(t, orig.ToString(), back.ToString(), "case %d", i)
			assert.Equal(t, orig.ToBool(), back.ToBool(), "case %d", i)
			if f := orig.ToFloat64(); math.IsNaN(f) {
				assert.True(t, math.IsNaN(back.ToFloat64()), "case %d", i)
			} else {
				assert.Equal(t, f, back.ToFloat64(), "case %d", i)
			}
		}

		// Int32Create always yields Int32, Float64Create classifies.
		v, err := realm.Float64Create(2)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Int32, v.Kind())
		v, err = realm.Float64Create(math.Copysign(0, -1))
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Float64, v.Kind())
		return nil
	})
}

func testEval(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		v, err := eval(realm, "var counter = 40; counter + 2")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(42), v.ToInt32())

		// top-level declarations are globals
		v, err = eval(realm, "counter")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(40), v.ToInt32())

		_, err = eval(realm, "this is not javascript")
		assert.ErrorIs(t, err, adapter.ErrScript)

		_, err = eval(realm, "throw new TypeError('bad')")
		assert.ErrorIs(t, err, adapter.ErrScript)
		var ae *adapter.Error
		if assert.ErrorAs(t, err, &ae) && assert.NotNil(t, ae.Thrown) {
			assert.Equal(t, "TypeError: bad", ae.Thrown.ToString())
			assert.Equal(t, facade.String("TypeError: bad"), ae.Reason)
		}

		// the realm stays usable
		v, err = eval(realm, "counter + 1")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(41), v.ToInt32())
		return nil
	})
}

func testEvalModule(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		exports, err := realm.EvalModule(adapter.NewScript("lib/math.js", `
			var hidden = 2;
			exports.scale = function (x) { return x * hidden; };
			exports.loads = (globalThis.loads || 0) + 1;
			globalThis.loads = exports.loads;
		`))
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Object, exports.Kind())

		out, err := realm.InvokeMemberByName(exports, "scale", []adapter.Value{mustInt(realm, 21)})
		if err != nil {
			return err
		}
		assert.Equal(t, int32(42), out.ToInt32())

		// module scope does not leak
		v, err := eval(realm, "typeof hidden")
		if err != nil {
			return err
		}
		assert.Equal(t, "undefined", v.ToString())

		// memoised by path
		again, err := realm.EvalModule(adapter.NewScript("lib/math.js", "exports.loads = -1"))
		if err != nil {
			return err
		}
		loads, err := realm.ObjectGetProperty(again, "loads")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(1), loads.ToInt32())

		_, err = realm.EvalModule(adapter.NewScript("lib/broken.js", "exports = ;"))
		assert.ErrorIs(t, err, adapter.ErrScript)
		return nil
	})
}

func testNamespace(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		global, err := realm.Namespace(nil)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Object, global.Kind())

		if _, err := eval(realm, "globalThis.a = 5; globalThis.x = {y: {z: 1}}"); err != nil {
			return err
		}

		_, err = realm.Namespace([]string{"a", "b"})
		assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)
		var ae *adapter.Error
		if assert.ErrorAs(t, err, &ae) {
			assert.Equal(t, []string{"a", "b"}, ae.Path)
		}

		_, err = realm.Namespace([]string{"missing"})
		assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)

		_, err = realm.Namespace([]string{"a"})
		assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)

		ns, err := realm.Namespace([]string{"x", "y"})
		if err != nil {
			return err
		}
		z, err := realm.ObjectGetProperty(ns, "z")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(1), z.ToInt32())

		// nothing was created by the failed lookups
		v, err := eval(realm, "typeof globalThis.missing")
		if err != nil {
			return err
		}
		assert.Equal(t, "undefined", v.ToString())
		return nil
	})
}

func testInstallAndInvoke(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		double := func(_ adapter.Realm, _ adapter.Value, args []adapter.Value) (adapter.Value, error) {
			return realm.Int32Create(2 * args[0].ToInt32())
		}
		if err := realm.InstallClosure([]string{"math"}, "double", double, 1); err != nil {
			return err
		}
		out, err := realm.InvokeByName([]string{"math"}, "double", []adapter.Value{mustInt(realm, 21)})
		if err != nil {
			return err
		}
		assert.Equal(t, int32(42), out.ToInt32())

		v, err := eval(realm, "math.double(4) + math.double.length * 100")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(108), v.ToInt32())

		calls := 0
		counter := func(_ adapter.Realm, _ adapter.Value, _ []adapter.Value) (adapter.Value, error) {
			calls++
			return realm.Int32Create(int32(calls))
		}
		if err := realm.InstallClosure([]string{"deep", "er"}, "count", counter, 0); err != nil {
			return err
		}
		v, err = eval(realm, "deep.er.count(); deep.er.count(); deep.er.count()")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(3), v.ToInt32())
		assert.Equal(t, 3, calls)

		ident := func(_ adapter.Realm, this adapter.Value, _ []adapter.Value) (adapter.Value, error) {
			return this, nil
		}
		if err := realm.InstallFunction(nil, "self", ident, 0); err != nil {
			return err
		}
		v, err = eval(realm, "var holder = {self: self, tag: 'h'}; holder.self().tag")
		if err != nil {
			return err
		}
		assert.Equal(t, "h", v.ToString())

		holder, err := realm.Namespace([]string{"holder"})
		if err != nil {
			return err
		}
		v, err = realm.InvokeMemberByName(holder, "self", nil)
		if err != nil {
			return err
		}
		tag, err := realm.ObjectGetProperty(v, "tag")
		if err != nil {
			return err
		}
		assert.Equal(t, "h", tag.ToString())

		nothing := func(adapter.Realm, adapter.Value, []adapter.Value) (adapter.Value, error) {
			return nil, nil
		}
		if err := realm.InstallFunction(nil, "nothing", nothing, 0); err != nil {
			return err
		}
		v, err = realm.InvokeByName(nil, "nothing", nil)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Undefined, v.Kind())
		return nil
	})
}

func testInvocationErrors(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		if _, err := eval(realm, `
			function thrower(v) { throw v; }
			var notFn = 3;
		`); err != nil {
			return err
		}

		thrown := mustString(realm, "payload")
		_, err := realm.InvokeByName(nil, "thrower", []adapter.Value{thrown})
		assert.ErrorIs(t, err, adapter.ErrInvocation)
		var ae *adapter.Error
		if assert.ErrorAs(t, err, &ae) && assert.NotNil(t, ae.Thrown) {
			assert.Equal(t, kind.String, ae.Thrown.Kind())
			assert.Equal(t, "payload", ae.Thrown.ToString())
			assert.Equal(t, facade.String("payload"), ae.Reason)
		}

		_, err = realm.InvokeByName(nil, "notFn", nil)
		assert.ErrorIs(t, err, adapter.ErrNotCallable)

		_, err = realm.InvokeByName(nil, "absent", nil)
		assert.Error(t, err)

		_, err = realm.InvokeByName([]string{"no", "where"}, "f", nil)
		assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)

		// host errors surface as script exceptions that script can catch
		failing := func(adapter.Realm, adapter.Value, []adapter.Value) (adapter.Value, error) {
			return nil, errors.New("host failure")
		}
		if err := realm.InstallFunction(nil, "failing", failing, 0); err != nil {
			return err
		}
		v, err := eval(realm, "try { failing(); 'no' } catch (e) { 'caught' }")
		if err != nil {
			return err
		}
		assert.Equal(t, "caught", v.ToString())

		_, err = realm.InvokeByName(nil, "failing", nil)
		assert.ErrorIs(t, err, adapter.ErrInvocation)

		// a thrown invocation error is rethrown as its original value
		rethrow := func(r adapter.Realm, _ adapter.Value, args []adapter.Value) (adapter.Value, error) {
			return r.InvokeByName(nil, "thrower", args)
		}
		if err := realm.InstallFunction(nil, "rethrow", rethrow, 1); err != nil {
			return err
		}
		v, err = eval(realm, "try { rethrow({code: 7}) } catch (e) { e.code }")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(7), v.ToInt32())
		return nil
	})
}

func testFunctionCreate(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		sum := func(r adapter.Realm, _ adapter.Value, args []adapter.Value) (adapter.Value, error) {
			var total int32
			for _, a := range args {
				total += a.ToInt32()
			}
			return r.Int32Create(total)
		}
		fn, err := realm.FunctionCreate("sum", sum, 2)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Function, fn.Kind())

		out, err := realm.Invoke(nil, fn, []adapter.Value{mustInt(realm, 1), mustInt(realm, 2), mustInt(realm, 3)})
		if err != nil {
			return err
		}
		assert.Equal(t, int32(6), out.ToInt32())

		length, err := realm.ObjectGetProperty(fn, "length")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(2), length.ToInt32())
		name, err := realm.ObjectGetProperty(fn, "name")
		if err != nil {
			return err
		}
		assert.Equal(t, "sum", name.ToString())

		// not installed anywhere
		v, err := eval(realm, "typeof sum")
		if err != nil {
			return err
		}
		assert.Equal(t, "undefined", v.ToString())

		// usable as a callback from script
		global, err := realm.Namespace(nil)
		if err != nil {
			return err
		}
		if err := realm.ObjectSetProperty(global, "cb", fn); err != nil {
			return err
		}
		v, err = eval(realm, "[1, 2].map(x => cb(x, 10)).join()")
		if err != nil {
			return err
		}
		assert.Equal(t, "11,12", v.ToString())

		_, err = realm.Invoke(nil, mustInt(realm, 1), nil)
		assert.ErrorIs(t, err, adapter.ErrNotCallable)
		return nil
	})
}

func testObjects(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		obj, err := realm.ObjectCreate()
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Object, obj.Kind())

		for _, key := range []string{"z", "a", "m"} {
			if err := realm.ObjectSetProperty(obj, key, mustString(realm, key+"!")); err != nil {
				return err
			}
		}
		keys, err := realm.ObjectProperties(obj)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"z", "a", "m"}, keys)

		v, err := realm.ObjectGetProperty(obj, "a")
		if err != nil {
			return err
		}
		assert.Equal(t, "a!", v.ToString())

		if err := realm.ObjectDeleteProperty(obj, "a"); err != nil {
			return err
		}
		keys, err = realm.ObjectProperties(obj)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"z", "m"}, keys)

		v, err = realm.ObjectGetProperty(obj, "a")
		if b.StrictProperties {
			assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)
		} else if assert.NoError(t, err) {
			assert.Equal(t, kind.Undefined, v.Kind())
		}

		_, err = realm.ObjectGetProperty(mustInt(realm, 1), "a")
		assert.ErrorIs(t, err, adapter.ErrTypeMismatch)
		assert.ErrorIs(t, realm.ObjectSetProperty(mustString(realm, "s"), "a", obj), adapter.ErrTypeMismatch)
		_, err = realm.ObjectProperties(mustInt(realm, 1))
		assert.ErrorIs(t, err, adapter.ErrTypeMismatch)

		// non-enumerable and inherited keys are not own enumerable keys
		shaped, err := eval(realm, `(() => {
			const o = Object.create({inherited: 1});
			o.first = 1;
			Object.defineProperty(o, 'hidden', {value: 2, enumerable: false});
			o.second = 2;
			return o;
		})()`)
		if err != nil {
			return err
		}
		keys, err = realm.ObjectProperties(shaped)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"first", "second"}, keys)

		ctor, err := eval(realm, `(class Point {
			constructor(x, y) { this.x = x; this.y = y; }
		})`)
		if err != nil {
			return err
		}
		pt, err := realm.ObjectConstruct(ctor, []adapter.Value{mustInt(realm, 3), mustInt(realm, 4)})
		if err != nil {
			return err
		}
		y, err := realm.ObjectGetProperty(pt, "y")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(4), y.ToInt32())
		assert.True(t, realm.InstanceOf(pt, ctor))

		throwing, err := eval(realm, "(function () { throw new Error('nope') })")
		if err != nil {
			return err
		}
		_, err = realm.ObjectConstruct(throwing, nil)
		assert.ErrorIs(t, err, adapter.ErrInvocation)

		_, err = realm.ObjectConstruct(obj, nil)
		assert.ErrorIs(t, err, adapter.ErrNotCallable)
		return nil
	})
}

func testObjectTraverse(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		obj, err := eval(realm, "({b: 1, a: 2, c: 3})")
		if err != nil {
			return err
		}
		pairs, err := adapter.TraverseObject(realm, obj, func(key string, v adapter.Value) (string, error) {
			return key + v.ToString(), nil
		})
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"b1", "a2", "c3"}, pairs)

		stop := errors.New("stop")
		var seen []string
		_, err = adapter.TraverseObject(realm, obj, func(key string, _ adapter.Value) (struct{}, error) {
			seen = append(seen, key)
			if key == "a" {
				return struct{}{}, stop
			}
			return struct{}{}, nil
		})
		assert.Same(t, stop, err)
		assert.Equal(t, []string{"b", "a"}, seen)

		empty, err := realm.ObjectCreate()
		if err != nil {
			return err
		}
		none, err := adapter.TraverseObject(realm, empty, func(string, adapter.Value) (int, error) {
			t.Error("visitor called for empty object")
			return 0, nil
		})
		assert.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
}

func testArrays(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		arr, err := realm.ArrayCreate()
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Array, arr.Kind())
		n, err := realm.ArrayLength(arr)
		if err != nil {
			return err
		}
		assert.Equal(t, uint32(0), n)

		if err := realm.ArraySetElement(arr, 0, mustString(realm, "a")); err != nil {
			return err
		}
		if err := realm.ArraySetElement(arr, 2, mustString(realm, "c")); err != nil {
			return err
		}
		n, err = realm.ArrayLength(arr)
		if err != nil {
			return err
		}
		assert.Equal(t, uint32(3), n)

		v, err := realm.ArrayGetElement(arr, 2)
		if err != nil {
			return err
		}
		assert.Equal(t, "c", v.ToString())
		v, err = realm.ArrayGetElement(arr, 10)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Undefined, v.Kind())

		var order []uint32
		kinds, err := adapter.TraverseArray(realm, arr, func(i uint32, v adapter.Value) (kind.Kind, error) {
			order = append(order, i)
			return v.Kind(), nil
		})
		if err != nil {
			return err
		}
		assert.Equal(t, []uint32{0, 1, 2}, order)
		assert.Equal(t, []kind.Kind{kind.String, kind.Undefined, kind.String}, kinds)

		stop := errors.New("stop")
		order = order[:0]
		_, err = adapter.TraverseArray(realm, arr, func(i uint32, _ adapter.Value) (int, error) {
			order = append(order, i)
			if i == 1 {
				return 0, stop
			}
			return 0, nil
		})
		assert.Same(t, stop, err)
		assert.Equal(t, []uint32{0, 1}, order)

		_, err = realm.ArrayLength(mustInt(realm, 1))
		assert.ErrorIs(t, err, adapter.ErrTypeMismatch)
		obj, err := realm.ObjectCreate()
		if err != nil {
			return err
		}
		assert.ErrorIs(t, realm.ArrayTraverse(obj, func(uint32, adapter.Value) error { return nil }), adapter.ErrTypeMismatch)
		return nil
	})
}

func testCache(t *testing.T, b Backend) {
	rt := b.New(t)
	var id adapter.CacheID
	b.do(t, rt, func(realm adapter.Realm) error {
		obj, err := eval(realm, "({n: 1})")
		if err != nil {
			return err
		}
		id = realm.CacheAdd(obj)
		return nil
	})

	// the entry outlives the operation that produced it
	for i := 0; i < 3; i++ {
		b.do(t, rt, func(realm adapter.Realm) error {
			n := adapter.WithCached(realm, id, func(v adapter.Value) int32 {
				got, err := realm.ObjectGetProperty(v, "n")
				if !assert.NoError(t, err) {
					return -1
				}
				if err := realm.ObjectSetProperty(v, "n", mustInt(realm, got.ToInt32()+1)); !assert.NoError(t, err) {
					return -1
				}
				return got.ToInt32()
			})
			assert.Equal(t, int32(i+1), n, "same underlying value each time")
			return nil
		})
	}

	b.do(t, rt, func(realm adapter.Realm) error {
		v := realm.CacheConsume(id)
		n, err := realm.ObjectGetProperty(v, "n")
		if err != nil {
			return err
		}
		assert.Equal(t, int32(4), n.ToInt32())
		return nil
	})

	assertViolation(t, func() {
		_ = b.Do(rt, func() error {
			rt.MainRealm().CacheWith(id, func(adapter.Value) {})
			return nil
		})
	})
	assertViolation(t, func() {
		_ = b.Do(rt, func() error {
			rt.MainRealm().CacheConsume(id)
			return nil
		})
	})

	var disposed adapter.CacheID
	b.do(t, rt, func(realm adapter.Realm) error {
		disposed = realm.CacheAdd(mustInt(realm, 1))
		assert.NotEqual(t, id, disposed, "ids are not reused")
		realm.CacheDispose(disposed)
		return nil
	})
	assertViolation(t, func() {
		_ = b.Do(rt, func() error {
			rt.MainRealm().CacheDispose(disposed)
			return nil
		})
	})
	assertViolation(t, func() {
		_ = b.Do(rt, func() error {
			rt.MainRealm().CacheWith(adapter.CacheID(-5), func(adapter.Value) {})
			return nil
		})
	})
}

func testPromise(t *testing.T, b Backend) {
	rt := b.New(t)

	t.Run("resolve", func(t *testing.T) {
		var p adapter.Promise
		b.do(t, rt, func(realm adapter.Realm) error {
			var err error
			if p, err = realm.PromiseCreate(); err != nil {
				return err
			}
			assert.Equal(t, adapter.PromisePending, p.State())
			assert.Equal(t, kind.Promise, p.AsValue().Kind())
			if err := p.Resolve(realm, mustInt(realm, 7)); err != nil {
				return err
			}
			assert.Equal(t, adapter.PromiseFulfilled, p.State())
			assert.Equal(t, int32(7), p.Result().ToInt32())

			assert.ErrorIs(t, p.Resolve(realm, mustInt(realm, 8)), adapter.ErrInvalidState)
			assert.ErrorIs(t, p.Reject(realm, mustInt(realm, 8)), adapter.ErrInvalidState)
			assert.Equal(t, int32(7), p.Result().ToInt32())
			return nil
		})
	})

	t.Run("resolve with thenable", func(t *testing.T) {
		b.do(t, rt, func(realm adapter.Realm) error {
			p, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			other, err := eval(realm, "new Promise(() => {})")
			if err != nil {
				return err
			}
			thenable, err := eval(realm, "({then(resolve) { resolve(1) }})")
			if err != nil {
				return err
			}
			assert.ErrorIs(t, p.Resolve(realm, other), adapter.ErrTypeMismatch)
			assert.ErrorIs(t, p.Resolve(realm, thenable), adapter.ErrTypeMismatch)
			assert.Equal(t, adapter.PromisePending, p.State())

			// still settleable, and consistent once settled
			if err := p.Resolve(realm, mustInt(realm, 3)); err != nil {
				return err
			}
			assert.Equal(t, adapter.PromiseFulfilled, p.State())
			assert.Equal(t, int32(3), p.Result().ToInt32())

			// rejecting with a promise does not adopt it
			q, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			if err := q.Reject(realm, other); err != nil {
				return err
			}
			assert.Equal(t, adapter.PromiseRejected, q.State())
			assert.Equal(t, kind.Promise, q.Result().Kind())
			return q.AddReactions(realm, nil, func(adapter.Value) error { return nil }, nil)
		})
	})

	t.Run("reject reactions", func(t *testing.T) {
		var thens, catches, finals int
		var caught, finalArg string
		b.do(t, rt, func(realm adapter.Realm) error {
			p, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			err = p.AddReactions(realm,
				func(adapter.Value) error { thens++; return nil },
				func(v adapter.Value) error { catches++; caught = v.ToString(); return nil },
				func(v adapter.Value) error {
					finals++
					finalArg = v.ToString()
					assert.Equal(t, 1, catches, "finally runs after catch")
					return nil
				},
			)
			if err != nil {
				return err
			}
			b.flush(realm)
			assert.Zero(t, catches+finals, "no reaction before settlement")

			if err := p.Reject(realm, mustString(realm, "oops")); err != nil {
				return err
			}
			b.flush(realm)
			b.flush(realm)
			assert.Equal(t, adapter.PromiseRejected, p.State())
			assert.Equal(t, "oops", p.Result().ToString())
			return nil
		})
		assert.Equal(t, 0, thens)
		assert.Equal(t, 1, catches)
		assert.Equal(t, "oops", caught)
		assert.Equal(t, 1, finals)
		assert.Equal(t, "oops", finalArg)
	})

	t.Run("finally on resolve", func(t *testing.T) {
		var thens, catches, finals int
		b.do(t, rt, func(realm adapter.Realm) error {
			p, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			if err := p.Resolve(realm, mustInt(realm, 1)); err != nil {
				return err
			}
			// registered after settlement
			err = p.AddReactions(realm,
				func(v adapter.Value) error { thens++; assert.Equal(t, int32(1), v.ToInt32()); return nil },
				func(adapter.Value) error { catches++; return nil },
				func(adapter.Value) error { finals++; return nil },
			)
			if err != nil {
				return err
			}
			b.flush(realm)
			return nil
		})
		assert.Equal(t, 1, thens)
		assert.Equal(t, 0, catches)
		assert.Equal(t, 1, finals)
	})

	t.Run("nil reactions", func(t *testing.T) {
		var finals int
		b.do(t, rt, func(realm adapter.Realm) error {
			p, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			if err := p.AddReactions(realm, nil, nil, func(adapter.Value) error { finals++; return nil }); err != nil {
				return err
			}
			if err := p.Reject(realm, mustInt(realm, 1)); err != nil {
				return err
			}
			b.flush(realm)
			return nil
		})
		assert.Equal(t, 1, finals)
	})

	t.Run("visible to script", func(t *testing.T) {
		b.do(t, rt, func(realm adapter.Realm) error {
			p, err := realm.PromiseCreate()
			if err != nil {
				return err
			}
			global, err := realm.Namespace(nil)
			if err != nil {
				return err
			}
			if err := realm.ObjectSetProperty(global, "pending", p.AsValue()); err != nil {
				return err
			}
			if _, err := eval(realm, "globalThis.seen = 0; pending.then(v => { globalThis.seen = v })"); err != nil {
				return err
			}
			if err := p.Resolve(realm, mustInt(realm, 99)); err != nil {
				return err
			}
			b.flush(realm)
			v, err := eval(realm, "seen")
			if err != nil {
				return err
			}
			assert.Equal(t, int32(99), v.ToInt32())
			return nil
		})
	})

	t.Run("pending result", func(t *testing.T) {
		assertViolation(t, func() {
			_ = b.Do(rt, func() error {
				p, err := rt.MainRealm().PromiseCreate()
				if err != nil {
					return err
				}
				p.Result()
				return nil
			})
		})
	})
}

func testInstanceOf(t *testing.T, b Backend) {
	rt := b.New(t)
	b.do(t, rt, func(realm adapter.Realm) error {
		if _, err := eval(realm, `
			class Animal {}
			class Dog extends Animal {}
			class Puppy extends Dog {}
			class Cat extends Animal {}
			var pup = new Puppy();
			var plain = Object.create(null);
		`); err != nil {
			return err
		}
		get := func(name string) adapter.Value {
			v, err := eval(realm, name)
			assert.NoError(t, err)
			return v
		}
		pup := get("pup")
		assert.True(t, realm.InstanceOf(pup, get("Puppy")))
		assert.True(t, realm.InstanceOf(pup, get("Dog")))
		assert.True(t, realm.InstanceOf(pup, get("Animal")))
		assert.True(t, realm.InstanceOf(pup, get("Object")))
		assert.False(t, realm.InstanceOf(pup, get("Cat")))
		assert.False(t, realm.InstanceOf(get("plain"), get("Object")))
		assert.False(t, realm.InstanceOf(mustInt(realm, 1), get("Number")))
		assert.False(t, realm.InstanceOf(pup, mustInt(realm, 1)))
		assert.True(t, realm.InstanceOf(get("[]"), get("Array")))
		return nil
	})
}

func testProxy(t *testing.T, b Backend) {
	rt := b.New(t)
	type counter struct{ n int32 }
	instances := map[adapter.ProxyHandle]*counter{}
	var last adapter.ProxyHandle

	proxy := &adapter.Proxy{
		Namespace:   []string{"host"},
		Name:        "Counter",
		EventTarget: true,
		Constructor: func(realm adapter.Realm, h adapter.ProxyHandle, args []adapter.Value) error {
			start := int32(0)
			if len(args) > 0 {
				start = args[0].ToInt32()
			}
			if start < 0 {
				return errors.New("negative start")
			}
			instances[h] = &counter{n: start}
			last = h
			return nil
		},
		Methods: map[string]adapter.ProxyMethod{
			"inc": func(realm adapter.Realm, h adapter.ProxyHandle, _ []adapter.Value) (adapter.Value, error) {
				instances[h].n++
				return realm.Int32Create(instances[h].n)
			},
		},
		Accessors: map[string]adapter.ProxyAccessor{
			"value": {
				Get: func(realm adapter.Realm, h adapter.ProxyHandle) (adapter.Value, error) {
					return realm.Int32Create(instances[h].n)
				},
				Set: func(_ adapter.Realm, h adapter.ProxyHandle, v adapter.Value) error {
					instances[h].n = v.ToInt32()
					return nil
				},
			},
		},
		StaticMethods: map[string]adapter.HostFunc{
			"count": func(realm adapter.Realm, _ adapter.Value, _ []adapter.Value) (adapter.Value, error) {
				return realm.Int32Create(int32(len(instances)))
			},
		},
	}

	b.do(t, rt, func(realm adapter.Realm) error {
		if err := realm.ProxyInstall(proxy); err != nil {
			return err
		}

		v, err := eval(realm, `
			var c = new host.Counter(5);
			c.inc(); c.inc();
			c.value = c.value * 10;
			[c.value, host.Counter.count(), c instanceof host.Counter].join()
		`)
		if err != nil {
			return err
		}
		assert.Equal(t, "70,1,true", v.ToString())

		inst, err := realm.ProxyInstantiate([]string{"host"}, "Counter", []adapter.Value{mustInt(realm, 1)})
		if err != nil {
			return err
		}
		assert.Equal(t, 2, len(instances))
		out, err := realm.InvokeMemberByName(inst, "inc", nil)
		if err != nil {
			return err
		}
		assert.Equal(t, int32(2), out.ToInt32())
		assert.Equal(t, "host.Counter", last.Class)

		_, err = realm.ProxyInstantiate([]string{"host"}, "Counter", []adapter.Value{mustInt(realm, -1)})
		assert.ErrorIs(t, err, adapter.ErrInvocation)

		_, err = realm.ProxyInstantiate([]string{"host"}, "Missing", nil)
		assert.Error(t, err)

		// events reach only the listeners of the targeted instance
		global, err := realm.Namespace(nil)
		if err != nil {
			return err
		}
		if err := realm.ObjectSetProperty(global, "inst", inst); err != nil {
			return err
		}
		if _, err := eval(realm, `
			var got = [];
			function onTick(e) { got.push('inst:' + e.n) }
			inst.addEventListener('tick', onTick);
			inst.addEventListener('tick', e => { throw new Error('listener failure') });
			c.addEventListener('tick', e => got.push('c:' + e.n));
		`); err != nil {
			return err
		}
		event, err := eval(realm, "({n: 1})")
		if err != nil {
			return err
		}
		realm.ProxyInvokeEvent(last, "tick", event)
		realm.ProxyInvokeEvent(last, "other", event)
		if _, err := eval(realm, "inst.removeEventListener('tick', onTick)"); err != nil {
			return err
		}
		realm.ProxyInvokeEvent(last, "tick", event)
		// unknown handles are ignored
		realm.ProxyInvokeEvent(adapter.ProxyHandle{Class: "host.Counter", Instance: 1 << 40}, "tick", event)

		v, err = eval(realm, "got.join()")
		if err != nil {
			return err
		}
		assert.Equal(t, "inst:1", v.ToString())

		// a released instance drops its listeners and rejects member calls
		assert.True(t, realm.ProxyRelease(last))
		assert.False(t, realm.ProxyRelease(last))
		realm.ProxyInvokeEvent(last, "tick", event)
		_, err = realm.InvokeMemberByName(inst, "inc", nil)
		assert.ErrorIs(t, err, adapter.ErrInvocation)
		v, err = eval(realm, "got.join()")
		if err != nil {
			return err
		}
		assert.Equal(t, "inst:1", v.ToString())
		return nil
	})
}

func testStructuredFacade(t *testing.T, b Backend) {
	rt := b.New(t)
	want := facade.NewObject(
		facade.Field{Key: "a", Value: facade.Int32(1)},
		facade.Field{Key: "b", Value: facade.NewArray(facade.Int32(1), facade.String("x"), facade.Null{}, facade.Float64(2.5))},
		facade.Field{Key: "c", Value: facade.NewObject(facade.Field{Key: "d", Value: facade.Boolean(true)})},
		facade.Field{Key: "e", Value: facade.BigIntFromInt64(-12)},
		facade.Field{Key: "f", Value: facade.DateFromMillis(1_700_000_000_123)},
		facade.Field{Key: "g", Value: facade.Undefined{}},
	)

	var got facade.Value
	b.do(t, rt, func(realm adapter.Realm) error {
		v, err := eval(realm, `({
			a: 1,
			b: [1, 'x', null, 2.5],
			c: {d: true},
			e: -12n,
			f: new Date(1700000000123),
			g: undefined,
		})`)
		if err != nil {
			return err
		}
		got, err = adapter.ToFacade(realm, v)
		return err
	})
	assert.True(t, facade.Equal(want, got), "got %v", got)

	b.do(t, rt, func(realm adapter.Realm) error {
		v, err := adapter.FromFacade(realm, want)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Object, v.Kind())
		global, err := realm.Namespace(nil)
		if err != nil {
			return err
		}
		if err := realm.ObjectSetProperty(global, "copy", v); err != nil {
			return err
		}
		check, err := eval(realm, `[
			Object.keys(copy).join(),
			Array.isArray(copy.b),
			copy.b.length,
			copy.c.d,
			typeof copy.e,
			copy.e === -12n,
			copy.f instanceof Date,
			copy.f.getTime(),
			'g' in copy,
		].join('|')`)
		if err != nil {
			return err
		}
		assert.Equal(t, "a,b,c,e,f,g|true|4|true|bigint|true|true|1700000000123|true", check.ToString())

		invalid, err := adapter.FromFacade(realm, facade.InvalidDate())
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Date, invalid.Kind())
		back, err := adapter.ToFacade(realm, invalid)
		if err != nil {
			return err
		}
		assert.True(t, facade.Equal(facade.InvalidDate(), back))

		// shared references copy, cycles do not
		shared, err := eval(realm, "(() => { const s = {v: 1}; return {l: s, r: s} })()")
		if err != nil {
			return err
		}
		_, err = adapter.ToFacade(realm, shared)
		assert.NoError(t, err)

		cyclic, err := eval(realm, "(() => { const o = {}; o.self = o; return o })()")
		if err != nil {
			return err
		}
		_, err = adapter.ToFacade(realm, cyclic)
		assert.ErrorIs(t, err, adapter.ErrUnsupported)

		cyclicArr, err := eval(realm, "(() => { const a = []; a.push(a); return a })()")
		if err != nil {
			return err
		}
		_, err = adapter.ToFacade(realm, cyclicArr)
		assert.ErrorIs(t, err, adapter.ErrUnsupported)
		return nil
	})
}

func testFacadeFunction(t *testing.T, b Backend) {
	rt := b.New(t)
	var fn *facade.Function
	b.do(t, rt, func(realm adapter.Realm) error {
		v, err := eval(realm, "(function scale(x, y) { if (x < 0) throw new RangeError('neg'); return x * (y ?? 2) })")
		if err != nil {
			return err
		}
		fv, err := adapter.ToFacade(realm, v)
		if err != nil {
			return err
		}
		var ok bool
		fn, ok = fv.(*facade.Function)
		if !ok {
			return errors.New("expected *facade.Function")
		}
		return nil
	})
	assert.Equal(t, "scale", fn.Name())
	assert.Equal(t, uint32(2), fn.Arity())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// callable from a foreign goroutine
	out, err := fn.Call(ctx, facade.Int32(21))
	require.NoError(t, err)
	assert.Equal(t, facade.Int32(42), out)

	out, err = fn.Call(ctx, facade.Float64(1.5), facade.Int32(3))
	require.NoError(t, err)
	assert.Equal(t, facade.Float64(4.5), out)

	_, err = fn.Call(ctx, facade.Int32(-1))
	require.ErrorIs(t, err, adapter.ErrInvocation)
	var ae *adapter.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, facade.String("RangeError: neg"), ae.Reason)

	// host -> facade -> native
	double := facade.NewFunction(facade.FunctionSpec{
		Name:  "double",
		Arity: 1,
		Call: func(_ context.Context, args []facade.Value) (facade.Value, error) {
			if len(args) == 0 {
				return nil, errors.New("missing argument")
			}
			f, ok := facade.Export(args[0]).(float64)
			if !ok {
				return nil, errors.New("expected a float argument")
			}
			return facade.Number(2 * f), nil
		},
	})
	b.do(t, rt, func(realm adapter.Realm) error {
		native, err := adapter.FromFacade(realm, double)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Function, native.Kind())
		got, err := realm.Invoke(nil, native, []adapter.Value{mustFloat(realm, 10.5)})
		if err != nil {
			return err
		}
		assert.Equal(t, float64(21), got.ToFloat64())

		_, err = realm.Invoke(nil, native, nil)
		assert.ErrorIs(t, err, adapter.ErrInvocation)
		return nil
	})

	fn.Release()
	_, err = fn.Call(ctx, facade.Int32(1))
	assert.ErrorIs(t, err, facade.ErrReleased)
}

func testFacadePromise(t *testing.T, b Backend) {
	rt := b.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var settled, pending, failed *facade.Promise
	b.do(t, rt, func(realm adapter.Realm) error {
		for code, dst := range map[string]**facade.Promise{
			"Promise.resolve(7)":                          &settled,
			"new Promise(r => { globalThis.settle = r })": &pending,
			"Promise.reject(new Error('down'))":           &failed,
		} {
			v, err := eval(realm, code)
			if err != nil {
				return err
			}
			fv, err := adapter.ToFacade(realm, v)
			if err != nil {
				return err
			}
			p, ok := fv.(*facade.Promise)
			if !ok {
				return errors.New("expected *facade.Promise for " + code)
			}
			*dst = p
		}
		b.flush(realm)
		return nil
	})

	v, err := settled.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, facade.Int32(7), v)

	_, err = failed.Wait(ctx)
	var rejected *facade.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, facade.String("Error: down"), rejected.Reason)

	assert.Equal(t, facade.Pending, pending.State())
	b.do(t, rt, func(realm adapter.Realm) error {
		_, err := realm.InvokeByName(nil, "settle", []adapter.Value{mustString(realm, "later")})
		b.flush(realm)
		return err
	})
	v, err = pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, facade.String("later"), v)

	// host future -> native promise
	hostPromise, settler := facade.NewPromise()
	b.do(t, rt, func(realm adapter.Realm) error {
		native, err := adapter.FromFacade(realm, hostPromise)
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Promise, native.Kind())
		global, err := realm.Namespace(nil)
		if err != nil {
			return err
		}
		if err := realm.ObjectSetProperty(global, "hostPromise", native); err != nil {
			return err
		}
		_, err = eval(realm, "globalThis.fromHost = null; hostPromise.then(v => { globalThis.fromHost = v })")
		return err
	})
	require.True(t, settler.Resolve(facade.String("ready")))
	require.Eventually(t, func() bool {
		var got string
		_ = b.Do(rt, func() error {
			realm := rt.MainRealm()
			b.flush(realm)
			v, err := eval(realm, "String(globalThis.fromHost)")
			if err == nil {
				got = v.ToString()
			}
			return nil
		})
		return got == "ready"
	}, 5*time.Second, 10*time.Millisecond)
}

func assertViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Error("expected a contract violation panic")
			return
		}
		err, ok := r.(error)
		if !ok {
			t.Errorf("expected an error panic, got %T: %v", r, r)
			return
		}
		assert.ErrorIs(t, err, adapter.ErrContractViolation)
	}()
	fn()
}

func mustInt(realm adapter.Realm, n int32) adapter.Value {
	v, err := realm.Int32Create(n)
	if err != nil {
		panic(err)
	}
	return v
}

func mustFloat(realm adapter.Realm, f float64) adapter.Value {
	v, err := realm.Float64Create(f)
	if err != nil {
		panic(err)
	}
	return v
}

func mustString(realm adapter.Realm, s string) adapter.Value {
	v, err := realm.StringCreate(s)
	if err != nil {
		panic(err)
	}
	return v
}
