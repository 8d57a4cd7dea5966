package adapter

import (
	"fmt"
	"strings"
)

// ProxyHandle identifies one instance of an installed proxy class within a
// realm. It is plain data and may be stored and passed between goroutines,
// though it is only meaningful to the realm that issued it.
type ProxyHandle struct {
	// Class is the qualified class name, e.g. "net.Socket".
	Class string
	// Instance is unique per realm.
	Instance uint64
}

func (h ProxyHandle) String() string {
	return fmt.Sprintf("%s#%d", h.Class, h.Instance)
}

// ProxyConstructor initializes a new instance. Returning an error makes the
// JavaScript new expression throw.
type ProxyConstructor func(realm Realm, handle ProxyHandle, args []Value) error

// ProxyMethod implements an instance method.
type ProxyMethod func(realm Realm, handle ProxyHandle, args []Value) (Value, error)

// ProxyAccessor implements an instance property. Either side may be nil.
type ProxyAccessor struct {
	Get func(realm Realm, handle ProxyHandle) (Value, error)
	Set func(realm Realm, handle ProxyHandle, v Value) error
}

// Proxy is a host-defined class exposed into a realm. The adapter treats it
// as opaque data; the backend decides how the class is materialised.
type Proxy struct {
	Constructor   ProxyConstructor
	Methods       map[string]ProxyMethod
	Accessors     map[string]ProxyAccessor
	StaticMethods map[string]HostFunc
	// Namespace is where the class is installed, relative to the global
	// object. It is created if missing.
	Namespace []string
	Name      string
	// EventTarget gives instances addEventListener and removeEventListener,
	// the targets of Realm.ProxyInvokeEvent.
	EventTarget bool
}

// QualifiedName returns the namespace and name joined with dots.
func (p *Proxy) QualifiedName() string {
	return QualifiedName(p.Namespace, p.Name)
}

// Validate checks the definition is installable.
func (p *Proxy) Validate() error {
	if p == nil {
		return NewError(KindInvalidState, "ProxyInstall", "nil proxy")
	}
	if p.Name == "" {
		return NewError(KindInvalidState, "ProxyInstall", "proxy has no name")
	}
	for _, seg := range p.Namespace {
		if seg == "" {
			return NewError(KindInvalidState, "ProxyInstall", "empty namespace segment in %q", p.QualifiedName())
		}
	}
	return nil
}

// QualifiedName joins a namespace path and a name with dots.
func QualifiedName(namespace []string, name string) string {
	if len(namespace) == 0 {
		return name
	}
	return strings.Join(namespace, ".") + "." + name
}
