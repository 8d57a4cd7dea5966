package gojs

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/dop251/goja"
	"github.com/joeycumines/jsadapter/internal/adapter"
)

type proxyRegistry struct {
	next      uint64
	classes   map[string]*goja.Object
	instances map[*goja.Object]adapter.ProxyHandle
	objects   map[adapter.ProxyHandle]*goja.Object
	listeners map[adapter.ProxyHandle]map[string][]goja.Value
}

func (p *proxyRegistry) init() {
	if p.classes == nil {
		p.classes = make(map[string]*goja.Object)
		p.instances = make(map[*goja.Object]adapter.ProxyHandle)
		p.objects = make(map[adapter.ProxyHandle]*goja.Object)
		p.listeners = make(map[adapter.ProxyHandle]map[string][]goja.Value)
	}
}

// ProxyInstall defines proxy as a JavaScript class. Methods and accessors
// live on the prototype and dispatch on the receiver's handle, so they
// throw a TypeError when called on anything that is not an instance.
func (r *Realm) ProxyInstall(proxy *adapter.Proxy) error {
	const op = "ProxyInstall"
	if err := r.check(op); err != nil {
		return err
	}
	if err := proxy.Validate(); err != nil {
		return err
	}
	r.proxies.init()
	class := proxy.QualifiedName()
	if _, ok := r.proxies.classes[class]; ok {
		return adapter.NewError(adapter.KindInvalidState, op, "proxy %q already installed", class)
	}
	ns, err := r.ensureNamespace(op, proxy.Namespace)
	if err != nil {
		return err
	}

	ctor := r.vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
		r.proxies.next++
		handle := adapter.ProxyHandle{Class: class, Instance: r.proxies.next}
		if proxy.Constructor != nil {
			if err := proxy.Constructor(r, handle, r.wrapAll(call.Arguments)); err != nil {
				panic(r.throwable(err))
			}
		}
		r.proxies.instances[call.This] = handle
		r.proxies.objects[handle] = call.This
		return nil
	}).(*goja.Object)
	r.setShape(ctor, proxy.Name, 0)

	proto, ok := ctor.Get("prototype").(*goja.Object)
	if !ok {
		proto = r.vm.NewObject()
		if err := ctor.Set("prototype", proto); err != nil {
			return r.invocationError(op, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(proxy.Methods)) {
		method := proxy.Methods[name]
		fn := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			handle := r.receiver(class, name, call.This)
			out, err := method(r, handle, r.wrapAll(call.Arguments))
			if err != nil {
				panic(r.throwable(err))
			}
			return r.returnValue(out)
		}).(*goja.Object)
		r.setShape(fn, name, 0)
		if err := proto.DefineDataProperty(name, fn, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
			return r.invocationError(op, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(proxy.Accessors)) {
		if err := r.defineAccessor(proto, class, name, proxy.Accessors[name]); err != nil {
			return r.invocationError(op, err)
		}
	}

	if proxy.EventTarget {
		if err := r.defineEventTarget(proto, class); err != nil {
			return r.invocationError(op, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(proxy.StaticMethods)) {
		if err := ctor.Set(name, r.hostFunction(name, proxy.StaticMethods[name], 0)); err != nil {
			return r.invocationError(op, err)
		}
	}

	if err := ns.Set(proxy.Name, ctor); err != nil {
		return r.invocationError(op, err)
	}
	r.proxies.classes[class] = ctor
	r.logger.Debug("proxy installed", slog.String("class", class))
	return nil
}

// receiver returns the handle of this, throwing if it is not an instance of
// class.
func (r *Realm) receiver(class, member string, this goja.Value) adapter.ProxyHandle {
	if o, ok := this.(*goja.Object); ok {
		if h, ok := r.proxies.instances[o]; ok && h.Class == class {
			return h
		}
	}
	panic(r.vm.NewTypeError("%s.%s called on an incompatible receiver", class, member))
}

func (r *Realm) returnValue(out adapter.Value) goja.Value {
	if out == nil {
		return goja.Undefined()
	}
	v, err := r.unwrap("HostFunc", out)
	if err != nil {
		panic(r.vm.NewGoError(err))
	}
	return v
}

func (r *Realm) defineAccessor(proto *goja.Object, class, name string, acc adapter.ProxyAccessor) error {
	var getter, setter goja.Value
	if acc.Get != nil {
		getter = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			out, err := acc.Get(r, r.receiver(class, name, call.This))
			if err != nil {
				panic(r.throwable(err))
			}
			return r.returnValue(out)
		})
	}
	if acc.Set != nil {
		setter = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if err := acc.Set(r, r.receiver(class, name, call.This), r.wrap(call.Argument(0))); err != nil {
				panic(r.throwable(err))
			}
			return goja.Undefined()
		})
	}
	return proto.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func (r *Realm) defineEventTarget(proto *goja.Object, class string) error {
	add := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		h := r.receiver(class, "addEventListener", call.This)
		event := call.Argument(0).String()
		listener := call.Argument(1)
		if _, ok := goja.AssertFunction(listener); !ok {
			return goja.Undefined()
		}
		byEvent := r.proxies.listeners[h]
		if byEvent == nil {
			byEvent = make(map[string][]goja.Value)
			r.proxies.listeners[h] = byEvent
		}
		if slices.ContainsFunc(byEvent[event], listener.StrictEquals) {
			return goja.Undefined()
		}
		byEvent[event] = append(byEvent[event], listener)
		return goja.Undefined()
	})
	remove := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		h := r.receiver(class, "removeEventListener", call.This)
		event := call.Argument(0).String()
		listener := call.Argument(1)
		if byEvent := r.proxies.listeners[h]; byEvent != nil {
			byEvent[event] = slices.DeleteFunc(byEvent[event], listener.StrictEquals)
		}
		return goja.Undefined()
	})
	if err := proto.DefineDataProperty("addEventListener", add, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return err
	}
	return proto.DefineDataProperty("removeEventListener", remove, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func (r *Realm) ProxyInstantiate(namespace []string, className string, args []adapter.Value) (adapter.Value, error) {
	const op = "ProxyInstantiate"
	if err := r.check(op); err != nil {
		return nil, err
	}
	r.proxies.init()
	ctor, ok := r.proxies.classes[adapter.QualifiedName(namespace, className)]
	if !ok {
		return nil, adapter.PropertyNotFound(op, append(append([]string(nil), namespace...), className)...)
	}
	argv, err := r.unwrapAll(op, args)
	if err != nil {
		return nil, err
	}
	construct, _ := goja.AssertConstructor(ctor)
	return r.construct(op, construct, argv)
}

// ProxyInvokeEvent calls the listeners registered for eventID on the
// instance, in registration order, with the instance as receiver. Listener
// errors are logged and do not stop dispatch.
func (r *Realm) ProxyInvokeEvent(handle adapter.ProxyHandle, eventID string, event adapter.Value) {
	const op = "ProxyInvokeEvent"
	if err := r.check(op); err != nil {
		r.logger.Debug("event dropped", slog.String("handle", handle.String()), slog.Any("error", err))
		return
	}
	this, ok := r.proxies.objects[handle]
	if !ok {
		r.logger.Debug("event for unknown proxy instance", slog.String("handle", handle.String()))
		return
	}
	ev, err := r.unwrap(op, event)
	if err != nil {
		r.logger.Warn("event dropped", slog.String("handle", handle.String()), slog.Any("error", err))
		return
	}
	for _, listener := range slices.Clone(r.proxies.listeners[handle][eventID]) {
		fn, _ := goja.AssertFunction(listener)
		if _, err := fn(this, ev); err != nil {
			r.logger.Warn("event listener failed",
				slog.String("handle", handle.String()),
				slog.String("event", eventID),
				slog.Any("error", err))
		}
	}
	r.runJobs()
}

func (r *Realm) ProxyRelease(handle adapter.ProxyHandle) bool {
	r.confine("ProxyRelease")
	o, ok := r.proxies.objects[handle]
	if !ok {
		return false
	}
	delete(r.proxies.objects, handle)
	delete(r.proxies.instances, o)
	delete(r.proxies.listeners, handle)
	return true
}

// ProxyHandleOf returns the handle of a proxy instance.
func (r *Realm) ProxyHandleOf(v adapter.Value) (adapter.ProxyHandle, bool) {
	r.confine("ProxyHandleOf")
	gv, err := r.unwrap("ProxyHandleOf", v)
	if err != nil {
		return adapter.ProxyHandle{}, false
	}
	o, ok := gv.(*goja.Object)
	if !ok {
		return adapter.ProxyHandle{}, false
	}
	h, ok := r.proxies.instances[o]
	return h, ok
}
