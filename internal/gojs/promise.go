package gojs

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/jsadapter/internal/adapter"
)

// Promise is an adapter.Promise over a goja promise. Promises made by
// PromiseCreate can be settled from Go; those wrapping script promises, via
// Realm.PromiseOf, only observe.
type Promise struct {
	realm   *Realm
	p       *goja.Promise
	obj     *goja.Object
	resolve func(goja.Value)
	reject  func(goja.Value)
	settled bool
}

var _ adapter.Promise = (*Promise)(nil)

func (r *Realm) newPromise() *Promise {
	p, resolve, reject := r.vm.NewPromise()
	return &Promise{
		realm:   r,
		p:       p,
		obj:     r.vm.ToValue(p).(*goja.Object),
		resolve: func(v goja.Value) { resolve(v) },
		reject:  func(v goja.Value) { reject(v) },
	}
}

// PromiseOf wraps a promise created by script.
func (r *Realm) PromiseOf(v adapter.Value) (*Promise, error) {
	const op = "PromiseOf"
	if err := r.check(op); err != nil {
		return nil, err
	}
	o, err := r.object(op, v)
	if err != nil {
		return nil, err
	}
	p, ok := o.Export().(*goja.Promise)
	if !ok {
		return nil, adapter.TypeMismatch(op, classify(o), "promise")
	}
	return &Promise{realm: r, p: p, obj: o}, nil
}

func (p *Promise) own(op string, realm adapter.Realm) error {
	if r, ok := realm.(*Realm); realm != nil && (!ok || r != p.realm) {
		return adapter.NewError(adapter.KindForeignValue, op, "promise belongs to realm %q", p.realm.id)
	}
	return nil
}

// Resolve fulfils the promise with v. Thenables, including promises, are
// refused with adapter.KindTypeMismatch, so a resolved promise is never left
// pending.
func (p *Promise) Resolve(realm adapter.Realm, v adapter.Value) error {
	return p.settle("Resolve", realm, v, p.resolve)
}

func (p *Promise) Reject(realm adapter.Realm, v adapter.Value) error {
	return p.settle("Reject", realm, v, p.reject)
}

func (p *Promise) settle(op string, realm adapter.Realm, v adapter.Value, fn func(goja.Value)) error {
	r := p.realm
	if err := r.check(op); err != nil {
		return err
	}
	if err := p.own(op, realm); err != nil {
		return err
	}
	if fn == nil {
		return adapter.NewError(adapter.KindInvalidState, op, "promise is not settleable from the host")
	}
	if p.settled {
		return adapter.NewError(adapter.KindInvalidState, op, "promise already settled")
	}
	gv, err := r.unwrap(op, v)
	if err != nil {
		return err
	}
	// adopting a thenable would leave the promise pending after Resolve
	if op == "Resolve" && r.thenable(gv) {
		return adapter.TypeMismatch(op, classify(gv), "a value that is not a thenable")
	}
	p.settled = true
	fn(gv)
	r.runJobs()
	return nil
}

// thenable reports whether v has a callable then. A throwing then getter
// counts as not thenable; resolving with it rejects the promise instead.
func (r *Realm) thenable(v goja.Value) bool {
	o, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	var then goja.Value
	if ex := r.vm.Try(func() { then = o.Get("then") }); ex != nil {
		return false
	}
	_, ok = goja.AssertFunction(then)
	return ok
}

// AddReactions attaches the reactions with Promise.prototype.then. A
// reaction error rejects the derived promise, which nothing observes.
func (p *Promise) AddReactions(realm adapter.Realm, onThen, onCatch, onFinally adapter.Reaction) error {
	const op = "AddReactions"
	r := p.realm
	if err := r.check(op); err != nil {
		return err
	}
	if err := p.own(op, realm); err != nil {
		return err
	}
	if onThen == nil && onCatch == nil && onFinally == nil {
		return nil
	}

	handler := func(reaction adapter.Reaction) goja.Value {
		if reaction == nil && onFinally == nil {
			return goja.Undefined()
		}
		return r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			v := r.wrap(call.Argument(0))
			var err error
			if reaction != nil {
				err = reaction(v)
			}
			if onFinally != nil {
				if ferr := onFinally(v); err == nil {
					err = ferr
				}
			}
			if err != nil {
				panic(r.throwable(err))
			}
			return goja.Undefined()
		})
	}

	if _, err := r.promiseThen(p.obj, handler(onThen), handler(onCatch)); err != nil {
		return r.invocationError(op, err)
	}
	return nil
}

func (p *Promise) Result() adapter.Value {
	p.realm.confine("Result")
	if p.p.State() == goja.PromiseStatePending {
		adapter.Violation("Result of a pending promise")
	}
	return p.realm.wrap(p.p.Result())
}

func (p *Promise) State() adapter.PromiseState {
	switch p.p.State() {
	case goja.PromiseStateFulfilled:
		return adapter.PromiseFulfilled
	case goja.PromiseStateRejected:
		return adapter.PromiseRejected
	default:
		return adapter.PromisePending
	}
}

func (p *Promise) AsValue() adapter.Value {
	return p.realm.wrap(p.obj)
}
