package gojs

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
)

func cyclic() error {
	return adapter.NewError(adapter.KindUnsupported, "ToFacade", "cyclic value")
}

// ToFacade detaches v. Objects and arrays are copied structurally; a
// reference cycle is a KindUnsupported error, while shared references are
// copied once per occurrence. Functions become handles that call back into
// the realm on the engine goroutine, and promises become futures settled by
// the realm.
func (r *Realm) ToFacade(v adapter.Value) (facade.Value, error) {
	if err := r.check("ToFacade"); err != nil {
		return nil, err
	}
	gv, err := r.unwrap("ToFacade", v)
	if err != nil {
		return nil, err
	}
	return r.toFacade(gv, make(map[*goja.Object]struct{}))
}

func (r *Realm) toFacade(gv goja.Value, path map[*goja.Object]struct{}) (facade.Value, error) {
	switch k := classify(gv); k {
	case kind.Int32, kind.Float64, kind.String, kind.Boolean, kind.Null, kind.Undefined:
		return adapter.DefaultToFacade(r.wrap(gv))

	case kind.BigInt:
		b, _ := gv.Export().(*big.Int)
		return facade.NewBigInt(b), nil

	case kind.Date:
		t, ok := gv.Export().(time.Time)
		if !ok {
			return facade.InvalidDate(), nil
		}
		return facade.NewDate(t), nil

	case kind.Function:
		return r.functionToFacade(gv.(*goja.Object)), nil

	case kind.Promise:
		return r.promiseToFacade(gv.(*goja.Object))

	case kind.Array:
		o := gv.(*goja.Object)
		if _, ok := path[o]; ok {
			return nil, cyclic()
		}
		path[o] = struct{}{}
		defer delete(path, o)

		n, err := r.boundedLength("ToFacade", o)
		if err != nil {
			return nil, err
		}
		items := make([]facade.Value, n)
		for i := range items {
			ev, err := r.get("ToFacade", o, strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			if items[i], err = r.toFacade(ev, path); err != nil {
				return nil, err
			}
		}
		return facade.NewArray(items...), nil

	case kind.Object:
		o, ok := gv.(*goja.Object)
		if !ok {
			return nil, adapter.NewError(adapter.KindUnsupported, "ToFacade", "symbols have no facade form")
		}
		if _, ok := path[o]; ok {
			return nil, cyclic()
		}
		path[o] = struct{}{}
		defer delete(path, o)

		keys, err := r.keys("ToFacade", o)
		if err != nil {
			return nil, err
		}
		fields := make([]facade.Field, 0, len(keys))
		for _, key := range keys {
			fv, err := r.get("ToFacade", o, key)
			if err != nil {
				return nil, err
			}
			out, err := r.toFacade(fv, path)
			if err != nil {
				return nil, err
			}
			fields = append(fields, facade.Field{Key: key, Value: out})
		}
		return facade.NewObject(fields...), nil

	default:
		return nil, adapter.UnimplementedKind("ToFacade", k)
	}
}

// functionToFacade caches fn until the facade function is released.
func (r *Realm) functionToFacade(fn *goja.Object) *facade.Function {
	id := r.cache.Add(fn)

	var name string
	var arity uint32
	r.vm.Try(func() {
		if v := fn.Get("name"); v != nil {
			name = v.String()
		}
		if v := fn.Get("length"); v != nil {
			arity = uint32(v.ToInteger())
		}
	})

	return facade.NewFunction(facade.FunctionSpec{
		Name:  name,
		Arity: arity,
		Call: func(ctx context.Context, args []facade.Value) (facade.Value, error) {
			var out facade.Value
			err := r.rt.TryRunOnLoopSync(ctx, func(*goja.Runtime) error {
				var err error
				out, err = r.callCached(id, args)
				return err
			})
			return out, err
		},
		Release: func() {
			r.rt.RunOnLoop(func(*goja.Runtime) {
				if _, ok := r.cache.Lookup(id); ok {
					r.cache.Take(id)
				}
			})
		},
	})
}

func (r *Realm) callCached(id adapter.CacheID, args []facade.Value) (facade.Value, error) {
	if r.destroyed.Load() {
		return nil, r.destroyedError("Call")
	}
	v, ok := r.cache.Lookup(id)
	if !ok {
		return nil, facade.ErrReleased
	}
	fn, _ := goja.AssertFunction(v)
	argv := make([]goja.Value, len(args))
	for i, a := range args {
		gv, err := r.fromFacade(a)
		if err != nil {
			return nil, err
		}
		argv[i] = gv
	}
	res, err := fn(goja.Undefined(), argv...)
	if err != nil {
		return nil, detach(r.invocationError("Call", err))
	}
	return r.toFacade(res, make(map[*goja.Object]struct{}))
}

// detach drops the native thrown value from an error leaving the engine
// goroutine. Reason keeps its rendering.
func detach(err error) error {
	var ae *adapter.Error
	if errors.As(err, &ae) && ae.Thrown != nil {
		cp := *ae
		cp.Thrown = nil
		return &cp
	}
	return err
}

func (r *Realm) promiseToFacade(o *goja.Object) (facade.Value, error) {
	gp, ok := o.Export().(*goja.Promise)
	if !ok {
		return nil, adapter.NewError(adapter.KindUnsupported, "ToFacade", "promise of class %s", o.ClassName())
	}
	fp, settler := facade.NewPromise()
	fulfil := func(v goja.Value) {
		out, err := r.toFacade(v, make(map[*goja.Object]struct{}))
		if err != nil {
			settler.Fail(err)
			return
		}
		settler.Resolve(out)
	}
	rejectWith := func(v goja.Value) {
		settler.Reject(adapter.ThrownReason(r.wrap(v)))
	}

	onFulfilled, onRejected := goja.Undefined(), goja.Undefined()
	switch gp.State() {
	case goja.PromiseStateFulfilled:
		fulfil(gp.Result())
		return fp, nil
	case goja.PromiseStateRejected:
		rejectWith(gp.Result())
		// observed, so not an unhandled rejection
		onRejected = r.vm.ToValue(func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	default:
		onFulfilled = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			fulfil(call.Argument(0))
			return goja.Undefined()
		})
		onRejected = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			rejectWith(call.Argument(0))
			return goja.Undefined()
		})
	}
	if _, err := r.promiseThen(o, onFulfilled, onRejected); err != nil {
		return nil, r.invocationError("ToFacade", err)
	}
	return fp, nil
}

// FromFacade materialises fv in the realm. Objects and arrays are copied,
// functions become native functions that call the facade function, and a
// pending facade promise becomes a native promise settled on the engine
// goroutine once the future completes.
func (r *Realm) FromFacade(fv facade.Value) (adapter.Value, error) {
	if err := r.check("FromFacade"); err != nil {
		return nil, err
	}
	gv, err := r.fromFacade(fv)
	if err != nil {
		return nil, err
	}
	return r.wrap(gv), nil
}

func (r *Realm) fromFacade(fv facade.Value) (goja.Value, error) {
	switch x := fv.(type) {
	case nil, facade.Undefined:
		return goja.Undefined(), nil
	case facade.Null:
		return goja.Null(), nil
	case facade.Int32:
		return r.vm.ToValue(int32(x)), nil
	case facade.Float64:
		return r.vm.ToValue(float64(x)), nil
	case facade.String:
		return r.vm.ToValue(string(x)), nil
	case facade.Boolean:
		return r.vm.ToValue(bool(x)), nil

	case *facade.BigInt:
		v, err := r.bigInt(goja.Undefined(), r.vm.ToValue(x.Int().String()))
		if err != nil {
			return nil, r.invocationError("FromFacade", err)
		}
		return v, nil

	case facade.Date:
		ms := math.NaN()
		if x.Valid() {
			ms = float64(x.UnixMilli())
		}
		var d *goja.Object
		var err error
		if ex := r.vm.Try(func() {
			d, err = r.vm.New(r.dateCtor, r.vm.ToValue(ms))
		}); ex != nil {
			err = ex
		}
		if err != nil {
			return nil, r.invocationError("FromFacade", err)
		}
		return d, nil

	case *facade.Object:
		o := r.vm.NewObject()
		for key, v := range x.Fields() {
			gv, err := r.fromFacade(v)
			if err != nil {
				return nil, err
			}
			if err := o.Set(key, gv); err != nil {
				return nil, r.invocationError("FromFacade", err)
			}
		}
		return o, nil

	case *facade.Array:
		items := make([]any, x.Len())
		for i, v := range x.All() {
			gv, err := r.fromFacade(v)
			if err != nil {
				return nil, err
			}
			items[i] = gv
		}
		return r.vm.NewArray(items...), nil

	case *facade.Function:
		return r.hostFunction(x.Name(), r.facadeCall(x), x.Arity()), nil

	case *facade.Promise:
		return r.promiseFromFacade(x), nil

	default:
		return nil, adapter.UnimplementedKind("FromFacade", fv.Kind())
	}
}

func (r *Realm) facadeCall(fn *facade.Function) adapter.HostFunc {
	return func(_ adapter.Realm, _ adapter.Value, args []adapter.Value) (adapter.Value, error) {
		fargs := make([]facade.Value, len(args))
		for i, a := range args {
			fa, err := r.ToFacade(a)
			if err != nil {
				return nil, err
			}
			fargs[i] = fa
		}
		out, err := fn.Call(r.rt.ctx, fargs...)
		if err != nil {
			return nil, err
		}
		return r.FromFacade(out)
	}
}

func (r *Realm) promiseFromFacade(fp *facade.Promise) *goja.Object {
	p := r.newPromise()
	if v, ok, err := fp.Result(); ok {
		r.settleFromFacade(p, v, err)
		return p.obj
	}
	go func() {
		select {
		case <-fp.Done():
		case <-r.rt.Done():
			return
		}
		if !r.rt.RunOnLoop(func(*goja.Runtime) {
			if r.destroyed.Load() {
				return
			}
			v, _, err := fp.Result()
			r.settleFromFacade(p, v, err)
		}) {
			r.logger.Debug("runtime closed before promise settled")
		}
	}()
	return p.obj
}

func (r *Realm) settleFromFacade(p *Promise, v facade.Value, err error) {
	p.settled = true
	if err != nil {
		var rejected *facade.RejectedError
		var reason goja.Value
		if errors.As(err, &rejected) {
			var cerr error
			if reason, cerr = r.fromFacade(rejected.Reason); cerr != nil {
				reason = r.vm.NewGoError(cerr)
			}
		} else {
			reason = r.vm.NewGoError(err)
		}
		p.reject(reason)
	} else if gv, cerr := r.fromFacade(v); cerr != nil {
		r.logger.Warn("promise value not convertible", slog.Any("error", cerr))
		p.reject(r.vm.NewGoError(cerr))
	} else {
		p.resolve(gv)
	}
	r.runJobs()
}
