package gojs

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/kind"
	"github.com/joeycumines/jsadapter/internal/logging"
)

// drainProgram is run to flush the job queue at the top level.
var drainProgram = goja.MustCompile("<jobs>", "", false)

// Realm is an adapter.Realm backed by one goja.Runtime.
//
// ObjectGetProperty is lenient unless the runtime was created with
// WithStrictProperties: a missing key reads as undefined.
type Realm struct {
	rt     *Runtime
	id     string
	vm     *goja.Runtime
	req    *require.RequireModule
	logger *slog.Logger
	strict bool

	// set by Runtime.DestroyRealm, from any goroutine
	destroyed atomic.Bool

	// sources passed to EvalModule, by module path
	sources map[string]string
	cache   adapter.CacheTable[goja.Value]
	proxies proxyRegistry

	// captured at creation, unaffected by later script changes
	promiseThen goja.Callable
	bigInt      goja.Callable
	dateCtor    *goja.Object
}

var (
	_ adapter.Realm           = (*Realm)(nil)
	_ adapter.FacadeConverter = (*Realm)(nil)
)

func newRealm(rt *Runtime, id string, vm *goja.Runtime, timers bool) (*Realm, error) {
	r := &Realm{
		rt:      rt,
		id:      id,
		vm:      vm,
		logger:  rt.logger.With(slog.String("realm", id)),
		strict:  rt.opts.strictProperties,
		sources: make(map[string]string),
	}

	registry := require.NewRegistry(require.WithLoader(r.loadSource))
	if rt.opts.console {
		registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(logging.ConsolePrinter{Logger: r.logger}))
	}
	r.req = registry.Enable(vm)
	if rt.opts.console {
		console.Enable(vm)
	}
	if timers {
		if err := r.installTimers(); err != nil {
			return nil, err
		}
	}

	vm.SetPromiseRejectionTracker(r.trackRejection)

	if ex := vm.Try(r.captureIntrinsics); ex != nil {
		return nil, fmt.Errorf("failed to capture intrinsics: %w", ex)
	}
	return r, nil
}

func (r *Realm) captureIntrinsics() {
	var ok bool
	proto := r.vm.Get("Promise").ToObject(r.vm).Get("prototype").ToObject(r.vm)
	if r.promiseThen, ok = goja.AssertFunction(proto.Get("then")); !ok {
		panic(r.vm.NewTypeError("Promise.prototype.then is not a function"))
	}
	if r.bigInt, ok = goja.AssertFunction(r.vm.Get("BigInt")); !ok {
		panic(r.vm.NewTypeError("BigInt is not a function"))
	}
	r.dateCtor = r.vm.Get("Date").ToObject(r.vm)
}

// installTimers gives a secondary realm setTimeout and clearTimeout, backed
// by the shared event loop. The main realm has the loop's own.
func (r *Realm) installTimers() error {
	global := r.vm.GlobalObject()
	err := global.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(r.vm.NewTypeError("setTimeout: callback is not a function"))
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}
		timer := r.rt.loop.SetTimeout(func(*goja.Runtime) {
			if _, err := fn(goja.Undefined(), args...); err != nil {
				r.logger.Warn("timer callback failed", slog.Any("error", err))
			}
		}, delay)
		return r.vm.ToValue(timer)
	})
	if err != nil {
		return err
	}
	return global.Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		if timer, ok := call.Argument(0).Export().(*eventloop.Timer); ok {
			r.rt.loop.ClearTimeout(timer)
		}
		return goja.Undefined()
	})
}

func (r *Realm) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		r.logger.Debug("promise rejected without handler", slog.String("reason", r.wrap(p.Result()).ToString()))
	case goja.PromiseRejectionHandle:
		r.logger.Debug("promise rejection handled late")
	}
}

func (r *Realm) loadSource(p string) ([]byte, error) {
	if src, ok := r.sources[p]; ok {
		return []byte(src), nil
	}
	if src, ok := r.rt.opts.modules[p]; ok {
		return []byte(src), nil
	}
	return require.DefaultSourceLoader(p)
}

// confine enforces engine confinement when enabled.
func (r *Realm) confine(op string) {
	if (confinementAlways || r.rt.opts.confinementChecks) && !r.rt.owner.Held() {
		adapter.Violation("%s on realm %q called off the engine goroutine", op, r.id)
	}
}

// check is confine for operations that can fail: a destroyed realm is a
// KindInvalidState error.
func (r *Realm) check(op string) error {
	r.confine(op)
	if r.destroyed.Load() {
		return r.destroyedError(op)
	}
	return nil
}

// confineLive is check for operations that report misuse by panicking.
func (r *Realm) confineLive(op string) {
	if err := r.check(op); err != nil {
		adapter.Violation("%v", err)
	}
}

func (r *Realm) destroyedError(op string) error {
	return adapter.NewError(adapter.KindInvalidState, op, "realm %q destroyed", r.id)
}

func (r *Realm) ID() string {
	return r.id
}

// Runtime returns the owning runtime.
func (r *Realm) Runtime() *Runtime {
	return r.rt
}

// Do runs fn against the realm on the engine goroutine, directly if already
// there.
func (r *Realm) Do(fn func(realm adapter.Realm) error) error {
	return r.rt.TryRunOnLoopSync(r.rt.ctx, func(*goja.Runtime) error {
		return fn(r)
	})
}

// RunJobs drains the realm's pending promise jobs. Nested inside a running
// script it does nothing; the jobs run when the outermost call returns.
func (r *Realm) RunJobs() {
	r.confine("RunJobs")
	if r.destroyed.Load() {
		return
	}
	r.runJobs()
}

func (r *Realm) runJobs() {
	if _, err := r.vm.RunProgram(drainProgram); err != nil {
		r.logger.Debug("promise job failed", slog.Any("error", err))
	}
}

// Interrupt aborts the script currently running in the realm, which fails
// with a goja.InterruptedError carrying reason. It may be called from any
// goroutine. Interrupting an idle realm aborts its next evaluation.
func (r *Realm) Interrupt(reason any) {
	r.vm.Interrupt(reason)
}

func (r *Realm) scriptError(op, path string, err error) error {
	e := &adapter.Error{Kind: adapter.KindScript, Op: op, Detail: path, Cause: err}
	r.attachThrown(e, err)
	return e
}

func (r *Realm) invocationError(op string, err error) error {
	e := &adapter.Error{Kind: adapter.KindInvocation, Op: op, Cause: err}
	r.attachThrown(e, err)
	return e
}

func (r *Realm) attachThrown(e *adapter.Error, err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		e.Thrown = r.wrap(ex.Value())
		e.Reason = adapter.ThrownReason(e.Thrown)
		return
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && !r.rt.closing() && !r.destroyed.Load() {
		r.vm.ClearInterrupt()
	}
}

// throwable returns the value a failed host callback throws into script.
func (r *Realm) throwable(err error) goja.Value {
	var ae *adapter.Error
	if errors.As(err, &ae) && ae.Thrown != nil {
		if v, ok := ae.Thrown.(Value); ok && v.realm == r {
			return v.Native()
		}
	}
	return r.vm.NewGoError(err)
}

func (r *Realm) unwrap(op string, v adapter.Value) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Undefined(), nil
	case Value:
		if x.realm != r {
			return nil, adapter.NewError(adapter.KindForeignValue, op, "value belongs to another realm")
		}
		return x.Native(), nil
	default:
		return nil, adapter.NewError(adapter.KindForeignValue, op, "%T is not a goja value", v)
	}
}

func (r *Realm) unwrapAll(op string, vs []adapter.Value) ([]goja.Value, error) {
	out := make([]goja.Value, len(vs))
	for i, v := range vs {
		gv, err := r.unwrap(op, v)
		if err != nil {
			return nil, err
		}
		out[i] = gv
	}
	return out, nil
}

func (r *Realm) Eval(script adapter.Script) (adapter.Value, error) {
	if err := r.check("Eval"); err != nil {
		return nil, err
	}
	prg, err := goja.Compile(script.Path, script.Code, false)
	if err != nil {
		return nil, r.scriptError("Eval", script.Path, err)
	}
	v, err := r.vm.RunProgram(prg)
	if err != nil {
		return nil, r.scriptError("Eval", script.Path, err)
	}
	return r.wrap(v), nil
}

// EvalModule evaluates script as a CommonJS module registered under its
// path. Once a path has loaded, later calls return the same exports without
// evaluating again.
func (r *Realm) EvalModule(script adapter.Script) (adapter.Value, error) {
	if err := r.check("EvalModule"); err != nil {
		return nil, err
	}
	p := modulePath(script.Path)
	r.sources[p] = script.Code

	var exports goja.Value
	var err error
	if ex := r.vm.Try(func() {
		exports, err = r.req.Require(p)
	}); ex != nil {
		err = ex
	}
	r.runJobs()
	if err != nil {
		return nil, r.scriptError("EvalModule", script.Path, err)
	}
	return r.wrap(exports), nil
}

func (r *Realm) get(op string, obj *goja.Object, key string) (goja.Value, error) {
	var v goja.Value
	if ex := r.vm.Try(func() {
		v = obj.Get(key)
	}); ex != nil {
		return nil, r.invocationError(op, ex)
	}
	return v, nil
}

func (r *Realm) resolve(op string, path []string) (*goja.Object, error) {
	obj := r.vm.GlobalObject()
	for _, seg := range path {
		next, err := r.get(op, obj, seg)
		if err != nil {
			return nil, err
		}
		o, ok := next.(*goja.Object)
		if !ok {
			return nil, adapter.PropertyNotFound(op, path...)
		}
		obj = o
	}
	return obj, nil
}

func (r *Realm) ensureNamespace(op string, path []string) (*goja.Object, error) {
	obj := r.vm.GlobalObject()
	for i, seg := range path {
		next, err := r.get(op, obj, seg)
		if err != nil {
			return nil, err
		}
		if o, ok := next.(*goja.Object); ok {
			obj = o
			continue
		}
		if next != nil && !goja.IsUndefined(next) {
			e := adapter.TypeMismatch(op, classify(next), "namespace object")
			e.Path = append([]string(nil), path[:i+1]...)
			return nil, e
		}
		o := r.vm.NewObject()
		if err := obj.Set(seg, o); err != nil {
			return nil, r.invocationError(op, err)
		}
		obj = o
	}
	return obj, nil
}

func (r *Realm) Namespace(path []string) (adapter.Value, error) {
	if err := r.check("Namespace"); err != nil {
		return nil, err
	}
	obj, err := r.resolve("Namespace", path)
	if err != nil {
		return nil, err
	}
	return r.wrap(obj), nil
}

func (r *Realm) InstallFunction(namespace []string, name string, fn adapter.HostFunc, argCount uint32) error {
	return r.install("InstallFunction", namespace, name, fn, argCount)
}

// InstallClosure is identical to InstallFunction: a goja native function
// may capture anything.
func (r *Realm) InstallClosure(namespace []string, name string, fn adapter.HostFunc, argCount uint32) error {
	return r.install("InstallClosure", namespace, name, fn, argCount)
}

func (r *Realm) install(op string, namespace []string, name string, fn adapter.HostFunc, argCount uint32) error {
	if err := r.check(op); err != nil {
		return err
	}
	if fn == nil {
		return adapter.NewError(adapter.KindInvalidState, op, "nil function for %q", adapter.QualifiedName(namespace, name))
	}
	obj, err := r.ensureNamespace(op, namespace)
	if err != nil {
		return err
	}
	if err := obj.Set(name, r.hostFunction(name, fn, argCount)); err != nil {
		return r.invocationError(op, err)
	}
	return nil
}

func (r *Realm) hostFunction(name string, fn adapter.HostFunc, argCount uint32) *goja.Object {
	f := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.callHost(fn, call.This, call.Arguments)
	}).(*goja.Object)
	r.setShape(f, name, argCount)
	return f
}

func (r *Realm) setShape(f *goja.Object, name string, argCount uint32) {
	_ = f.DefineDataProperty("length", r.vm.ToValue(argCount), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	_ = f.DefineDataProperty("name", r.vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

// callHost runs a host callback from script, throwing its error.
func (r *Realm) callHost(fn adapter.HostFunc, this goja.Value, args []goja.Value) goja.Value {
	out, err := fn(r, r.wrap(this), r.wrapAll(args))
	if err != nil {
		panic(r.throwable(err))
	}
	if out == nil {
		return goja.Undefined()
	}
	v, err := r.unwrap("HostFunc", out)
	if err != nil {
		panic(r.vm.NewGoError(err))
	}
	return v
}

func (r *Realm) FunctionCreate(name string, fn adapter.HostFunc, argCount uint32) (adapter.Value, error) {
	if err := r.check("FunctionCreate"); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, adapter.NewError(adapter.KindInvalidState, "FunctionCreate", "nil function for %q", name)
	}
	return r.wrap(r.hostFunction(name, fn, argCount)), nil
}

func (r *Realm) Invoke(this, fn adapter.Value, args []adapter.Value) (adapter.Value, error) {
	const op = "Invoke"
	if err := r.check(op); err != nil {
		return nil, err
	}
	fv, err := r.unwrap(op, fn)
	if err != nil {
		return nil, err
	}
	callable, ok := goja.AssertFunction(fv)
	if !ok {
		return nil, &adapter.Error{Kind: adapter.KindNotCallable, Op: op, ValueKind: classify(fv)}
	}
	tv, err := r.unwrap(op, this)
	if err != nil {
		return nil, err
	}
	argv, err := r.unwrapAll(op, args)
	if err != nil {
		return nil, err
	}
	return r.call(op, callable, tv, argv)
}

func (r *Realm) call(op string, fn goja.Callable, this goja.Value, args []goja.Value) (adapter.Value, error) {
	out, err := fn(this, args...)
	if err != nil {
		return nil, r.invocationError(op, err)
	}
	return r.wrap(out), nil
}

// method looks up obj[name] as a callable.
func (r *Realm) method(op string, obj *goja.Object, name string, path []string) (goja.Callable, error) {
	mv, err := r.get(op, obj, name)
	if err != nil {
		return nil, err
	}
	if mv == nil || goja.IsUndefined(mv) {
		return nil, adapter.PropertyNotFound(op, path...)
	}
	fn, ok := goja.AssertFunction(mv)
	if !ok {
		return nil, &adapter.Error{Kind: adapter.KindNotCallable, Op: op, ValueKind: classify(mv), Path: path}
	}
	return fn, nil
}

func (r *Realm) InvokeByName(namespace []string, method string, args []adapter.Value) (adapter.Value, error) {
	const op = "InvokeByName"
	if err := r.check(op); err != nil {
		return nil, err
	}
	obj, err := r.resolve(op, namespace)
	if err != nil {
		return nil, err
	}
	fn, err := r.method(op, obj, method, append(append([]string(nil), namespace...), method))
	if err != nil {
		return nil, err
	}
	argv, err := r.unwrapAll(op, args)
	if err != nil {
		return nil, err
	}
	return r.call(op, fn, obj, argv)
}

func (r *Realm) InvokeMemberByName(this adapter.Value, method string, args []adapter.Value) (adapter.Value, error) {
	const op = "InvokeMemberByName"
	if err := r.check(op); err != nil {
		return nil, err
	}
	tv, err := r.unwrap(op, this)
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(tv) || goja.IsNull(tv) {
		return nil, adapter.TypeMismatch(op, classify(tv), "object")
	}
	var obj *goja.Object
	if ex := r.vm.Try(func() {
		obj = tv.ToObject(r.vm)
	}); ex != nil {
		return nil, r.invocationError(op, ex)
	}
	fn, err := r.method(op, obj, method, []string{method})
	if err != nil {
		return nil, err
	}
	argv, err := r.unwrapAll(op, args)
	if err != nil {
		return nil, err
	}
	return r.call(op, fn, tv, argv)
}

func (r *Realm) object(op string, v adapter.Value) (*goja.Object, error) {
	gv, err := r.unwrap(op, v)
	if err != nil {
		return nil, err
	}
	o, ok := gv.(*goja.Object)
	if !ok {
		return nil, adapter.TypeMismatch(op, classify(gv), "object")
	}
	return o, nil
}

func (r *Realm) ObjectCreate() (adapter.Value, error) {
	if err := r.check("ObjectCreate"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.NewObject()), nil
}

func (r *Realm) ObjectGetProperty(obj adapter.Value, key string) (adapter.Value, error) {
	const op = "ObjectGetProperty"
	if err := r.check(op); err != nil {
		return nil, err
	}
	o, err := r.object(op, obj)
	if err != nil {
		return nil, err
	}
	v, err := r.get(op, o, key)
	if err != nil {
		return nil, err
	}
	if v == nil && r.strict {
		return nil, adapter.PropertyNotFound(op, key)
	}
	return r.wrap(v), nil
}

func (r *Realm) ObjectSetProperty(obj adapter.Value, key string, v adapter.Value) error {
	const op = "ObjectSetProperty"
	if err := r.check(op); err != nil {
		return err
	}
	o, err := r.object(op, obj)
	if err != nil {
		return err
	}
	gv, err := r.unwrap(op, v)
	if err != nil {
		return err
	}
	if err := o.Set(key, gv); err != nil {
		return r.invocationError(op, err)
	}
	return nil
}

func (r *Realm) ObjectDeleteProperty(obj adapter.Value, key string) error {
	const op = "ObjectDeleteProperty"
	if err := r.check(op); err != nil {
		return err
	}
	o, err := r.object(op, obj)
	if err != nil {
		return err
	}
	if err := o.Delete(key); err != nil {
		return r.invocationError(op, err)
	}
	return nil
}

func (r *Realm) ObjectConstruct(constructor adapter.Value, args []adapter.Value) (adapter.Value, error) {
	const op = "ObjectConstruct"
	if err := r.check(op); err != nil {
		return nil, err
	}
	cv, err := r.unwrap(op, constructor)
	if err != nil {
		return nil, err
	}
	ctor, ok := goja.AssertConstructor(cv)
	if !ok {
		return nil, &adapter.Error{Kind: adapter.KindNotCallable, Op: op, ValueKind: classify(cv), Detail: "not a constructor"}
	}
	argv, err := r.unwrapAll(op, args)
	if err != nil {
		return nil, err
	}
	return r.construct(op, ctor, argv)
}

func (r *Realm) construct(op string, ctor goja.Constructor, args []goja.Value) (adapter.Value, error) {
	obj, err := ctor(nil, args...)
	r.runJobs()
	if err != nil {
		return nil, r.invocationError(op, err)
	}
	return r.wrap(obj), nil
}

func (r *Realm) ObjectProperties(obj adapter.Value) ([]string, error) {
	const op = "ObjectProperties"
	if err := r.check(op); err != nil {
		return nil, err
	}
	o, err := r.object(op, obj)
	if err != nil {
		return nil, err
	}
	return r.keys(op, o)
}

func (r *Realm) keys(op string, o *goja.Object) ([]string, error) {
	var keys []string
	if ex := r.vm.Try(func() {
		keys = o.Keys()
	}); ex != nil {
		return nil, r.invocationError(op, ex)
	}
	return keys, nil
}

func (r *Realm) ObjectTraverse(obj adapter.Value, visit func(key string, v adapter.Value) error) error {
	const op = "ObjectTraverse"
	if err := r.check(op); err != nil {
		return err
	}
	o, err := r.object(op, obj)
	if err != nil {
		return err
	}
	keys, err := r.keys(op, o)
	if err != nil {
		return err
	}
	for _, key := range keys {
		v, err := r.get(op, o, key)
		if err != nil {
			return err
		}
		if err := visit(key, r.wrap(v)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realm) array(op string, v adapter.Value) (*goja.Object, error) {
	gv, err := r.unwrap(op, v)
	if err != nil {
		return nil, err
	}
	if k := classify(gv); k != kind.Array {
		return nil, adapter.TypeMismatch(op, k, "array")
	}
	return gv.(*goja.Object), nil
}

func (r *Realm) length(op string, o *goja.Object) (uint32, error) {
	v, err := r.get(op, o, "length")
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return uint32(v.ToInteger()), nil
}

// boundedLength is length, failing for arrays longer than the configured
// maximum. Sparse arrays report their full length.
func (r *Realm) boundedLength(op string, o *goja.Object) (uint32, error) {
	n, err := r.length(op, o)
	if err != nil {
		return 0, err
	}
	if limit := r.rt.opts.maxArrayLength; limit > 0 && n > limit {
		return 0, adapter.NewError(adapter.KindUnsupported, op, "array length %d exceeds the limit of %d", n, limit)
	}
	return n, nil
}

func (r *Realm) ArrayCreate() (adapter.Value, error) {
	if err := r.check("ArrayCreate"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.NewArray()), nil
}

func (r *Realm) ArrayGetElement(arr adapter.Value, index uint32) (adapter.Value, error) {
	const op = "ArrayGetElement"
	if err := r.check(op); err != nil {
		return nil, err
	}
	o, err := r.array(op, arr)
	if err != nil {
		return nil, err
	}
	v, err := r.get(op, o, strconv.FormatUint(uint64(index), 10))
	if err != nil {
		return nil, err
	}
	return r.wrap(v), nil
}

func (r *Realm) ArraySetElement(arr adapter.Value, index uint32, v adapter.Value) error {
	const op = "ArraySetElement"
	if err := r.check(op); err != nil {
		return err
	}
	o, err := r.array(op, arr)
	if err != nil {
		return err
	}
	gv, err := r.unwrap(op, v)
	if err != nil {
		return err
	}
	if err := o.Set(strconv.FormatUint(uint64(index), 10), gv); err != nil {
		return r.invocationError(op, err)
	}
	return nil
}

func (r *Realm) ArrayLength(arr adapter.Value) (uint32, error) {
	const op = "ArrayLength"
	if err := r.check(op); err != nil {
		return 0, err
	}
	o, err := r.array(op, arr)
	if err != nil {
		return 0, err
	}
	return r.length(op, o)
}

func (r *Realm) ArrayTraverse(arr adapter.Value, visit func(index uint32, v adapter.Value) error) error {
	const op = "ArrayTraverse"
	if err := r.check(op); err != nil {
		return err
	}
	o, err := r.array(op, arr)
	if err != nil {
		return err
	}
	n, err := r.boundedLength(op, o)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		v, err := r.get(op, o, strconv.FormatUint(uint64(i), 10))
		if err != nil {
			return err
		}
		if err := visit(i, r.wrap(v)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realm) NullCreate() (adapter.Value, error) {
	if err := r.check("NullCreate"); err != nil {
		return nil, err
	}
	return r.wrap(goja.Null()), nil
}

func (r *Realm) UndefinedCreate() (adapter.Value, error) {
	if err := r.check("UndefinedCreate"); err != nil {
		return nil, err
	}
	return r.wrap(goja.Undefined()), nil
}

func (r *Realm) Int32Create(v int32) (adapter.Value, error) {
	if err := r.check("Int32Create"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.ToValue(v)), nil
}

func (r *Realm) StringCreate(v string) (adapter.Value, error) {
	if err := r.check("StringCreate"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.ToValue(v)), nil
}

func (r *Realm) BooleanCreate(v bool) (adapter.Value, error) {
	if err := r.check("BooleanCreate"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.ToValue(v)), nil
}

func (r *Realm) Float64Create(v float64) (adapter.Value, error) {
	if err := r.check("Float64Create"); err != nil {
		return nil, err
	}
	return r.wrap(r.vm.ToValue(v)), nil
}

func (r *Realm) PromiseCreate() (adapter.Promise, error) {
	if err := r.check("PromiseCreate"); err != nil {
		return nil, err
	}
	return r.newPromise(), nil
}

func (r *Realm) CacheAdd(v adapter.Value) adapter.CacheID {
	r.confineLive("CacheAdd")
	gv, err := r.unwrap("CacheAdd", v)
	if err != nil {
		adapter.Violation("CacheAdd: %v", err)
	}
	return r.cache.Add(gv)
}

func (r *Realm) CacheDispose(id adapter.CacheID) {
	r.confineLive("CacheDispose")
	r.cache.Take(id)
}

func (r *Realm) CacheWith(id adapter.CacheID, fn func(v adapter.Value)) {
	r.confineLive("CacheWith")
	fn(r.wrap(r.cache.Get(id)))
}

func (r *Realm) CacheConsume(id adapter.CacheID) adapter.Value {
	r.confineLive("CacheConsume")
	return r.wrap(r.cache.Take(id))
}

// InstanceOf is false, rather than an error, for a right operand that is not
// a constructor and for a throwing Symbol.hasInstance.
func (r *Realm) InstanceOf(obj, constructor adapter.Value) bool {
	r.confine("InstanceOf")
	if r.destroyed.Load() {
		return false
	}
	ov, err := r.unwrap("InstanceOf", obj)
	if err != nil {
		return false
	}
	cv, err := r.unwrap("InstanceOf", constructor)
	if err != nil {
		return false
	}
	ctor, ok := cv.(*goja.Object)
	if !ok {
		return false
	}
	var result bool
	if ex := r.vm.Try(func() {
		result = r.vm.InstanceOf(ov, ctor)
	}); ex != nil {
		return false
	}
	return result
}
