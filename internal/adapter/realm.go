package adapter

// HostFunc is a host callback exposed to script. this is the receiver of the
// call (Undefined for plain calls). A returned error is thrown into script;
// an *Error of KindInvocation whose Thrown value belongs to the realm is
// rethrown as-is. A nil Value result is returned to script as undefined.
type HostFunc func(realm Realm, this Value, args []Value) (Value, error)

// Realm is one JavaScript global execution context. Every operation must run
// on the engine goroutine that owns the realm, and every Value passed in must
// have been produced by the same realm.
type Realm interface {
	// ID returns the identifier the realm is registered under.
	ID() string

	// Eval evaluates a top-level script, returning its completion value.
	// Parse and runtime failures are KindScript errors.
	Eval(script Script) (Value, error)

	// EvalModule evaluates a script with module semantics, returning its
	// exports.
	EvalModule(script Script) (Value, error)

	// Namespace resolves a dotted path from the global object without
	// creating anything. An absent or non-object segment is a
	// KindPropertyNotFound error. The empty path is the global object.
	Namespace(path []string) (Value, error)

	// InstallFunction makes fn callable from script at namespace.name,
	// creating intermediate namespace objects. argCount is the declared
	// arity. fn should not capture state; see InstallClosure.
	InstallFunction(namespace []string, name string, fn HostFunc, argCount uint32) error

	// InstallClosure is InstallFunction for callbacks that capture host
	// state.
	InstallClosure(namespace []string, name string, fn HostFunc, argCount uint32) error

	// Invoke calls fn with the given receiver (nil means undefined).
	Invoke(this, fn Value, args []Value) (Value, error)

	// InvokeByName resolves namespace then calls its method.
	InvokeByName(namespace []string, method string, args []Value) (Value, error)

	// InvokeMemberByName calls this[method] with this as receiver.
	InvokeMemberByName(this Value, method string, args []Value) (Value, error)

	// FunctionCreate returns a callable bound to fn, without installing it.
	FunctionCreate(name string, fn HostFunc, argCount uint32) (Value, error)

	ObjectCreate() (Value, error)
	// ObjectGetProperty reads obj[key]. The backend documents whether a
	// missing key yields Undefined or KindPropertyNotFound.
	ObjectGetProperty(obj Value, key string) (Value, error)
	ObjectSetProperty(obj Value, key string, v Value) error
	ObjectDeleteProperty(obj Value, key string) error
	// ObjectConstruct applies JavaScript new.
	ObjectConstruct(constructor Value, args []Value) (Value, error)
	// ObjectProperties returns the own enumerable string keys, in order.
	ObjectProperties(obj Value) ([]string, error)
	// ObjectTraverse calls visit for each own enumerable property in
	// order, stopping at and returning the first visitor error.
	ObjectTraverse(obj Value, visit func(key string, v Value) error) error

	ArrayCreate() (Value, error)
	ArrayGetElement(arr Value, index uint32) (Value, error)
	ArraySetElement(arr Value, index uint32, v Value) error
	ArrayLength(arr Value) (uint32, error)
	// ArrayTraverse calls visit for each index in ascending order, stopping
	// at and returning the first visitor error.
	ArrayTraverse(arr Value, visit func(index uint32, v Value) error) error

	NullCreate() (Value, error)
	UndefinedCreate() (Value, error)
	Int32Create(v int32) (Value, error)
	StringCreate(v string) (Value, error)
	BooleanCreate(v bool) (Value, error)
	Float64Create(v float64) (Value, error)

	// PromiseCreate returns a new pending promise.
	PromiseCreate() (Promise, error)

	// CacheAdd registers v so that it outlives the current operation.
	CacheAdd(v Value) CacheID
	// CacheDispose drops an entry without retrieving it.
	CacheDispose(id CacheID)
	// CacheWith lends the cached value to fn. The entry remains.
	CacheWith(id CacheID, fn func(v Value))
	// CacheConsume removes the entry and returns its value.
	CacheConsume(id CacheID) Value

	// InstanceOf mirrors the JavaScript instanceof operator.
	InstanceOf(obj, constructor Value) bool

	// ProxyInstall exposes a host class in the realm.
	ProxyInstall(proxy *Proxy) error
	// ProxyInstantiate constructs an instance of an installed proxy class.
	ProxyInstantiate(namespace []string, className string, args []Value) (Value, error)
	// ProxyInvokeEvent dispatches an event to the listeners of one proxy
	// instance. Listener failures are not reported to the caller.
	ProxyInvokeEvent(handle ProxyHandle, eventID string, event Value)
	// ProxyRelease forgets a proxy instance and its listeners. Members
	// called on the released instance throw a TypeError. It reports whether
	// handle was live.
	ProxyRelease(handle ProxyHandle) bool
}
