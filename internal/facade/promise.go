package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/jsadapter/internal/kind"
)

// PromiseState is the settlement state of a Promise.
type PromiseState uint8

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("PromiseState(%d)", uint8(s))
	}
}

// RejectedError is returned by Promise.Wait when the promise was rejected
// with a JavaScript reason.
type RejectedError struct {
	Reason Value
}

func (e *RejectedError) Error() string {
	return "promise rejected: " + e.Reason.String()
}

// Promise is a detached future for a JavaScript promise. It settles exactly
// once, either with a value, a JavaScript rejection reason, or a host error
// (for instance when the settled value could not be converted).
type Promise struct {
	done chan struct{}
	once sync.Once

	state  PromiseState
	value  Value
	reason Value
	err    error
}

// Settler settles its Promise. Only the first settlement has any effect;
// each method reports whether it was the one that settled the promise.
type Settler struct {
	p *Promise
}

// NewPromise returns a pending Promise and its Settler.
func NewPromise() (*Promise, Settler) {
	p := &Promise{done: make(chan struct{})}
	return p, Settler{p: p}
}

// ResolvedPromise returns a Promise fulfilled with v.
func ResolvedPromise(v Value) *Promise {
	p, s := NewPromise()
	s.Resolve(v)
	return p
}

// RejectedPromise returns a Promise rejected with reason.
func RejectedPromise(reason Value) *Promise {
	p, s := NewPromise()
	s.Reject(reason)
	return p
}

func (p *Promise) settle(fn func()) bool {
	settled := false
	p.once.Do(func() {
		fn()
		settled = true
		close(p.done)
	})
	return settled
}

// Resolve fulfils the promise with v.
func (s Settler) Resolve(v Value) bool {
	if v == nil {
		v = Undefined{}
	}
	return s.p.settle(func() {
		s.p.state = Fulfilled
		s.p.value = v
	})
}

// Reject rejects the promise with a JavaScript reason.
func (s Settler) Reject(reason Value) bool {
	if reason == nil {
		reason = Undefined{}
	}
	return s.p.settle(func() {
		s.p.state = Rejected
		s.p.reason = reason
	})
}

// Fail rejects the promise with a host error.
func (s Settler) Fail(err error) bool {
	if err == nil {
		panic("facade: Fail with nil error")
	}
	return s.p.settle(func() {
		s.p.state = Rejected
		s.p.err = err
	})
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} { return p.done }

// State returns the current state.
func (p *Promise) State() PromiseState {
	select {
	case <-p.done:
		return p.state
	default:
		return Pending
	}
}

// Wait blocks until the promise settles or ctx is done. A JavaScript
// rejection is reported as *RejectedError.
func (p *Promise) Wait(ctx context.Context) (Value, error) {
	select {
	case <-p.done:
		return p.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled outcome without blocking. ok is false while
// pending.
func (p *Promise) Result() (v Value, ok bool, err error) {
	select {
	case <-p.done:
		v, err = p.result()
		return v, true, err
	default:
		return nil, false, nil
	}
}

func (p *Promise) result() (Value, error) {
	switch {
	case p.err != nil:
		return nil, p.err
	case p.state == Rejected:
		return nil, &RejectedError{Reason: p.reason}
	default:
		return p.value, nil
	}
}

func (*Promise) Kind() kind.Kind { return kind.Promise }

func (p *Promise) String() string {
	return "Promise { <" + p.State().String() + "> }"
}

func (*Promise) isValue() {}
