package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/jsadapter/internal/kind"
)

// ErrReleased is returned by Function.Call after Release.
var ErrReleased = errors.New("facade: function released")

// CallFunc implements a Function. Implementations must be safe to call from
// any goroutine; engine backed functions marshal the call onto the engine.
type CallFunc func(ctx context.Context, args []Value) (Value, error)

// FunctionSpec describes a Function to NewFunction.
type FunctionSpec struct {
	// Name is the JavaScript name of the function, possibly empty.
	Name string
	// Arity is the declared parameter count (the JavaScript length).
	Arity uint32
	// Call is required.
	Call CallFunc
	// Release, if set, is called once, on the first Release of the Function.
	// Engine backed functions use it to drop their cached handle.
	Release func()
}

// Function is a detached, callable JavaScript function.
type Function struct {
	name    string
	arity   uint32
	call    CallFunc
	release func()

	mu       sync.Mutex
	released bool
}

// NewFunction builds a Function. It panics if def.Call is nil.
func NewFunction(def FunctionSpec) *Function {
	if def.Call == nil {
		panic("facade: nil CallFunc")
	}
	return &Function{
		name:    def.Name,
		arity:   def.Arity,
		call:    def.Call,
		release: def.Release,
	}
}

// Name returns the function name.
func (f *Function) Name() string { return f.name }

// Arity returns the declared parameter count.
func (f *Function) Arity() uint32 { return f.arity }

// Call invokes the function. A nil result is reported as Undefined.
func (f *Function) Call(ctx context.Context, args ...Value) (Value, error) {
	f.mu.Lock()
	released := f.released
	f.mu.Unlock()
	if released {
		return nil, ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := f.call(ctx, args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = Undefined{}
	}
	return v, nil
}

// Release drops any engine resources held by the function. Subsequent calls
// fail with ErrReleased. Release is idempotent.
func (f *Function) Release() {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	release := f.release
	f.mu.Unlock()
	if release != nil {
		release()
	}
}

func (*Function) Kind() kind.Kind { return kind.Function }

func (f *Function) String() string {
	return fmt.Sprintf("function %s(/* %d */)", f.name, f.arity)
}

func (*Function) isValue() {}
