package gojs

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/config"
	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
	"github.com/joeycumines/jsadapter/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// do runs fn against realm on the engine goroutine, failing the test on
// error.
func do(t *testing.T, realm *Realm, fn func(r *Realm) error) {
	t.Helper()
	require.NoError(t, realm.Do(func(adapter.Realm) error {
		return fn(realm)
	}))
}

func evalString(r *Realm, code string) (string, error) {
	v, err := r.Eval(adapter.NewScript("test.js", code))
	if err != nil {
		return "", err
	}
	return v.ToString(), nil
}

func TestRealm_ConfinementCheck(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithConfinementChecks(true))

	defer func() {
		r := recover()
		err, ok := r.(error)
		require.True(t, ok, "expected an error panic, got %v", r)
		assert.ErrorIs(t, err, adapter.ErrContractViolation)
		assert.Contains(t, err.Error(), `Eval on realm "main"`)
	}()
	_, _ = rt.Main().Eval(adapter.NewScript("x.js", "1"))
}

func TestRealm_ConfinementCheckDisabled(t *testing.T) {
	t.Parallel()
	if confinementAlways {
		t.Skip("debug builds always check")
	}
	rt := newTestRuntime(t)

	// unchecked, so only safe because nothing else uses the runtime
	v, err := rt.Main().Int32Create(3)
	require.NoError(t, err)
	assert.Equal(t, kind.Int32, v.Kind())
}

func TestRealm_Console(t *testing.T) {
	t.Parallel()
	buf := logging.NewBufferHandler(10, slog.LevelDebug)
	rt := newTestRuntime(t, WithLogger(slog.New(buf)))

	do(t, rt.Main(), func(r *Realm) error {
		_, err := evalString(r, `console.log("hello", 1); console.warn("careful"); console.error("bad")`)
		return err
	})

	var console []logging.Entry
	for _, e := range buf.Entries() {
		if e.Attrs["source"] == "console" {
			console = append(console, e)
		}
	}
	require.Len(t, console, 3)
	assert.Equal(t, "hello 1", console[0].Message)
	assert.Equal(t, slog.LevelInfo, console[0].Level)
	assert.Equal(t, DefaultMainRealmID, console[0].Attrs["realm"])
	assert.Equal(t, slog.LevelWarn, console[1].Level)
	assert.Equal(t, "bad", console[2].Message)
	assert.Equal(t, slog.LevelError, console[2].Level)
}

func TestRealm_ConsoleDisabled(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithConsole(false))

	do(t, rt.Main(), func(r *Realm) error {
		got, err := evalString(r, "typeof console")
		assert.Equal(t, "undefined", got)
		return err
	})
}

func TestRealm_SecondaryTimers(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	worker, err := rt.NewRealm("worker")
	require.NoError(t, err)

	do(t, worker, func(r *Realm) error {
		_, err := evalString(r, `
			globalThis.fired = [];
			setTimeout((tag) => fired.push(tag), 1, "kept");
			const dropped = setTimeout(() => fired.push("dropped"), 1);
			clearTimeout(dropped);
		`)
		return err
	})

	require.Eventually(t, func() bool {
		var got string
		_ = worker.Do(func(adapter.Realm) error {
			got, _ = evalString(worker, "fired.join()")
			return nil
		})
		return got == "kept"
	}, defaultTimeout, 5*time.Millisecond)

	// the main realm's globals are untouched
	do(t, rt.Main(), func(r *Realm) error {
		got, err := evalString(r, "typeof fired")
		assert.Equal(t, "undefined", got)
		return err
	})
}

func TestRealm_Interrupt(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	realm := rt.Main()

	go func() {
		time.Sleep(10 * time.Millisecond)
		realm.Interrupt("stop")
	}()
	do(t, realm, func(r *Realm) error {
		_, err := r.Eval(adapter.NewScript("spin.js", "for (;;) {}"))
		assert.ErrorIs(t, err, adapter.ErrScript)
		var interrupted *goja.InterruptedError
		if assert.ErrorAs(t, err, &interrupted) {
			assert.Equal(t, "stop", interrupted.Value())
		}

		// cleared for the next evaluation
		got, err := evalString(r, "'alive'")
		assert.Equal(t, "alive", got)
		return err
	})
}

func TestRealm_Modules(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithModule("lib/greet.js", `module.exports = (n) => "hi " + n`))

	do(t, rt.Main(), func(r *Realm) error {
		got, err := evalString(r, `require("/lib/greet.js")("ann")`)
		assert.Equal(t, "hi ann", got)
		if err != nil {
			return err
		}

		// relative requires resolve against the module's path
		exports, err := r.EvalModule(adapter.NewScript("lib/app.js", `
			const greet = require("./greet.js");
			exports.run = () => greet("bo");
		`))
		if err != nil {
			return err
		}
		out, err := r.InvokeMemberByName(exports, "run", nil)
		if err != nil {
			return err
		}
		assert.Equal(t, "hi bo", out.ToString())

		_, err = r.Eval(adapter.NewScript("test.js", `require("/lib/missing.js")`))
		assert.ErrorIs(t, err, adapter.ErrScript)
		return nil
	})
}

func TestModulePath(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"a.js":         "/a.js",
		"lib/../b.js":  "/b.js",
		"/abs/c.js":    "/abs/c.js",
		"./dir/./d.js": "/dir/d.js",
		"":             "/",
	} {
		assert.Equal(t, want, modulePath(in), in)
	}
}

func TestRealm_ForeignValues(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	other, err := rt.NewRealm("other")
	require.NoError(t, err)

	do(t, rt.Main(), func(r *Realm) error {
		foreign, err := other.Int32Create(1)
		if err != nil {
			return err
		}
		global, err := r.Namespace(nil)
		if err != nil {
			return err
		}
		assert.ErrorIs(t, r.ObjectSetProperty(global, "x", foreign), adapter.ErrForeignValue)
		_, err = r.Invoke(nil, foreign, nil)
		assert.ErrorIs(t, err, adapter.ErrForeignValue)
		assert.False(t, r.InstanceOf(foreign, global))

		p, err := r.PromiseCreate()
		if err != nil {
			return err
		}
		assert.ErrorIs(t, p.Resolve(other, foreign), adapter.ErrForeignValue)
		assert.Equal(t, adapter.PromisePending, p.State())

		assert.Panics(t, func() { r.CacheAdd(foreign) })
		return nil
	})
}

func TestRealm_InstallIntoPrimitive(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		if _, err := evalString(r, "globalThis.n = 1"); err != nil {
			return err
		}
		noop := func(adapter.Realm, adapter.Value, []adapter.Value) (adapter.Value, error) { return nil, nil }
		err := r.InstallFunction([]string{"n", "inner"}, "f", noop, 0)
		assert.ErrorIs(t, err, adapter.ErrTypeMismatch)
		var ae *adapter.Error
		if assert.ErrorAs(t, err, &ae) {
			assert.Equal(t, []string{"n"}, ae.Path)
		}
		assert.ErrorIs(t, r.InstallFunction(nil, "f", nil, 0), adapter.ErrInvalidState)
		return nil
	})
}

func TestRealm_PromiseOf(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		v, err := r.Eval(adapter.NewScript("test.js", "new Promise(res => { globalThis.done = res })"))
		if err != nil {
			return err
		}
		p, err := r.PromiseOf(v)
		if err != nil {
			return err
		}
		var seen string
		if err := p.AddReactions(nil, func(v adapter.Value) error { seen = v.ToString(); return nil }, nil, nil); err != nil {
			return err
		}
		// not settleable from the host
		assert.ErrorIs(t, p.Resolve(r, nil), adapter.ErrInvalidState)

		if _, err := evalString(r, `done("yes")`); err != nil {
			return err
		}
		assert.Equal(t, adapter.PromiseFulfilled, p.State())
		assert.Equal(t, "yes", seen)

		_, err = r.PromiseOf(r.wrap(r.vm.NewObject()))
		assert.ErrorIs(t, err, adapter.ErrTypeMismatch)
		return nil
	})
}

func TestRealm_ReactionErrorsRejectTheChain(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		p, err := r.PromiseCreate()
		if err != nil {
			return err
		}
		var finals int
		err = p.AddReactions(r,
			func(adapter.Value) error { return errors.New("then failed") },
			nil,
			func(adapter.Value) error { finals++; return nil },
		)
		if err != nil {
			return err
		}
		if err := p.Resolve(r, nil); err != nil {
			return err
		}
		assert.Equal(t, 1, finals)
		assert.Equal(t, adapter.PromiseFulfilled, p.State())
		return nil
	})
}

func TestRealm_ProxyHandleOf(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		proxy := &adapter.Proxy{Name: "Thing", Methods: map[string]adapter.ProxyMethod{
			"id": func(realm adapter.Realm, h adapter.ProxyHandle, _ []adapter.Value) (adapter.Value, error) {
				return realm.StringCreate(h.String())
			},
		}}
		if err := r.ProxyInstall(proxy); err != nil {
			return err
		}
		assert.ErrorIs(t, r.ProxyInstall(proxy), adapter.ErrInvalidState, "reinstall")
		assert.ErrorIs(t, r.ProxyInstall(&adapter.Proxy{}), adapter.ErrInvalidState, "unnamed")

		inst, err := r.ProxyInstantiate(nil, "Thing", nil)
		if err != nil {
			return err
		}
		h, ok := r.ProxyHandleOf(inst)
		require.True(t, ok)
		assert.Equal(t, "Thing", h.Class)

		id, err := r.InvokeMemberByName(inst, "id", nil)
		if err != nil {
			return err
		}
		assert.Equal(t, h.String(), id.ToString())

		plain, err := r.ObjectCreate()
		if err != nil {
			return err
		}
		_, ok = r.ProxyHandleOf(plain)
		assert.False(t, ok)

		// methods reject foreign receivers
		got, err := evalString(r, `try { Thing.prototype.id.call({}) } catch (e) { e instanceof TypeError }`)
		assert.Equal(t, "true", got)
		return err
	})
}

func TestRealm_FacadeFunctionFromScriptCallback(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	var fn *facade.Function
	do(t, rt.Main(), func(r *Realm) error {
		v, err := r.Eval(adapter.NewScript("test.js", "(a, b) => [a, b]"))
		if err != nil {
			return err
		}
		fv, err := r.ToFacade(v)
		if err != nil {
			return err
		}
		fn = fv.(*facade.Function)

		// called on the engine goroutine, the call runs inline
		out, err := fn.Call(context.Background(), facade.String("x"))
		if err != nil {
			return err
		}
		assert.True(t, facade.Equal(facade.NewArray(facade.String("x"), facade.Undefined{}), out))
		return nil
	})
	fn.Release()

	// release is applied on the loop
	require.Eventually(t, func() bool {
		var n int
		_ = rt.RunOnLoopSync(func(*goja.Runtime) error {
			n = rt.Main().cache.Len()
			return nil
		})
		return n == 0
	}, defaultTimeout, 5*time.Millisecond)
}

func TestRealm_FacadePromiseFailure(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	failed, settler := facade.NewPromise()
	do(t, rt.Main(), func(r *Realm) error {
		native, err := r.FromFacade(failed)
		if err != nil {
			return err
		}
		global, err := r.Namespace(nil)
		if err != nil {
			return err
		}
		if err := r.ObjectSetProperty(global, "failed", native); err != nil {
			return err
		}
		_, err = evalString(r, `globalThis.reason = ""; failed.catch(e => { globalThis.reason = String(e) })`)
		return err
	})
	require.True(t, settler.Fail(errors.New("backend down")))

	require.Eventually(t, func() bool {
		var got string
		_ = rt.Main().Do(func(adapter.Realm) error {
			got, _ = evalString(rt.Main(), "reason")
			return nil
		})
		return strings.Contains(got, "backend down")
	}, defaultTimeout, 5*time.Millisecond)
}

func TestToInt32(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{math.Copysign(0, -1), 0},
		{1.9, 1},
		{-1.9, -1},
		{2147483648, -2147483648},
		{4294967295, -1},
		{4294967296, 0},
		{-4294967297, -1},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
		{1e20, 1661992960},
	} {
		assert.Equal(t, tc.want, toInt32(tc.in), "%v", tc.in)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(`
engine.sync-timeout 2s
engine.strict-properties true
engine.main-realm primary
engine.console false
engine.max-array-length 2
`))
	require.NoError(t, err)

	opts, err := OptionsFromConfig(cfg, discardLogger())
	require.NoError(t, err)
	rt, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Equal(t, 2*time.Second, rt.SyncTimeout())
	assert.Equal(t, "primary", rt.MainRealm().ID())

	do(t, rt.Main(), func(r *Realm) error {
		obj, err := r.ObjectCreate()
		if err != nil {
			return err
		}
		_, err = r.ObjectGetProperty(obj, "missing")
		assert.ErrorIs(t, err, adapter.ErrPropertyNotFound)

		arr, err := r.Eval(adapter.NewScript("test.js", "[1, 2, 3]"))
		if err != nil {
			return err
		}
		_, err = r.ToFacade(arr)
		assert.ErrorIs(t, err, adapter.ErrUnsupported)

		got, err := evalString(r, "typeof console")
		assert.Equal(t, "undefined", got)
		return err
	})

	for _, text := range []string{
		"engine.sync-timeout soon\n",
		"engine.max-array-length -1\n",
	} {
		bad, err := config.LoadFromReader(strings.NewReader(text))
		require.NoError(t, err)
		_, err = OptionsFromConfig(bad, nil)
		assert.Error(t, err, text)
	}
}

func TestRealm_PromiseKind(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		v, err := r.Eval(adapter.NewScript("test.js", "Promise.resolve(7)"))
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Promise, v.Kind())
		assert.Equal(t, "object", v.TypeOf())

		fv, err := r.ToFacade(v)
		if err != nil {
			return err
		}
		fp, ok := fv.(*facade.Promise)
		require.True(t, ok, "got %T", fv)
		got, ok, err := fp.Result()
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, facade.Int32(7), got)

		p, err := r.PromiseCreate()
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Promise, p.AsValue().Kind())

		// promise-like objects keep their own kind
		obj, err := r.Eval(adapter.NewScript("test.js", "({then() {}})"))
		if err != nil {
			return err
		}
		assert.Equal(t, kind.Object, obj.Kind())
		return nil
	})
}

func TestRealm_ArrayLengthLimit(t *testing.T) {
	t.Parallel()

	t.Run("sparse array at the default limit", func(t *testing.T) {
		t.Parallel()
		rt := newTestRuntime(t)
		do(t, rt.Main(), func(r *Realm) error {
			v, err := r.Eval(adapter.NewScript("test.js", "var a = []; a[4294967294] = 1; a"))
			if err != nil {
				return err
			}
			n, err := r.ArrayLength(v)
			require.NoError(t, err)
			assert.Equal(t, uint32(4294967295), n)

			_, err = r.ToFacade(v)
			assert.ErrorIs(t, err, adapter.ErrUnsupported)

			var visits int
			err = r.ArrayTraverse(v, func(uint32, adapter.Value) error {
				visits++
				return nil
			})
			assert.ErrorIs(t, err, adapter.ErrUnsupported)
			assert.Zero(t, visits)

			// nested arrays are bounded too
			nested, err := r.Eval(adapter.NewScript("test.js", "({a: a})"))
			if err != nil {
				return err
			}
			_, err = r.ToFacade(nested)
			assert.ErrorIs(t, err, adapter.ErrUnsupported)
			return nil
		})
	})

	t.Run("configured limit", func(t *testing.T) {
		t.Parallel()
		rt := newTestRuntime(t, WithMaxArrayLength(3))
		do(t, rt.Main(), func(r *Realm) error {
			ok, err := r.Eval(adapter.NewScript("test.js", "[1, 2, 3]"))
			if err != nil {
				return err
			}
			fv, err := r.ToFacade(ok)
			require.NoError(t, err)
			assert.True(t, facade.Equal(facade.NewArray(facade.Int32(1), facade.Int32(2), facade.Int32(3)), fv))

			long, err := r.Eval(adapter.NewScript("test.js", "[1, 2, 3, 4]"))
			if err != nil {
				return err
			}
			_, err = r.ToFacade(long)
			assert.ErrorIs(t, err, adapter.ErrUnsupported)
			return nil
		})
	})

	t.Run("unbounded", func(t *testing.T) {
		t.Parallel()
		rt := newTestRuntime(t, WithMaxArrayLength(0))
		do(t, rt.Main(), func(r *Realm) error {
			v, err := r.Eval(adapter.NewScript("test.js", "new Array(1048577).fill(0)"))
			if err != nil {
				return err
			}
			var visits int
			require.NoError(t, r.ArrayTraverse(v, func(uint32, adapter.Value) error {
				visits++
				return nil
			}))
			assert.Equal(t, 1048577, visits)
			return nil
		})
	})
}

func TestRealm_ProxyRelease(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	do(t, rt.Main(), func(r *Realm) error {
		proxy := &adapter.Proxy{Name: "Thing", EventTarget: true}
		if err := r.ProxyInstall(proxy); err != nil {
			return err
		}
		v, err := r.Eval(adapter.NewScript("test.js", `
			var things = [];
			for (var i = 0; i < 100; i++) {
				var t = new Thing();
				t.addEventListener('ping', function () {});
				things.push(t);
			}
			things
		`))
		if err != nil {
			return err
		}
		assert.Len(t, r.proxies.instances, 100)
		assert.Len(t, r.proxies.objects, 100)
		assert.Len(t, r.proxies.listeners, 100)

		err = r.ArrayTraverse(v, func(_ uint32, item adapter.Value) error {
			h, ok := r.ProxyHandleOf(item)
			require.True(t, ok)
			assert.True(t, r.ProxyRelease(h))
			_, ok = r.ProxyHandleOf(item)
			assert.False(t, ok)
			return nil
		})
		if err != nil {
			return err
		}
		assert.Empty(t, r.proxies.instances)
		assert.Empty(t, r.proxies.objects)
		assert.Empty(t, r.proxies.listeners)

		got, err := evalString(r, `try { things[0].addEventListener('ping', function () {}); 'ok' } catch (e) { e instanceof TypeError }`)
		assert.Equal(t, "true", got)
		return err
	})
}
