package adapter

import "fmt"

// PromiseState is the state of a native promise.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	default:
		return fmt.Sprintf("PromiseState(%d)", uint8(s))
	}
}

// Reaction is a promise reaction. It receives the settled value. A returned
// error is thrown into the derived promise chain.
type Reaction func(v Value) error

// Promise is a native engine promise, confined like Value.
type Promise interface {
	// Resolve fulfils a pending promise with v. Settling a promise that was
	// already resolved or rejected fails with KindInvalidState. A thenable v
	// fails with KindTypeMismatch and leaves the promise pending.
	Resolve(realm Realm, v Value) error

	// Reject rejects a pending promise with v. See Resolve.
	Reject(realm Realm, v Value) error

	// AddReactions registers reactions; nil reactions are skipped. Each
	// registered reaction runs at most once, on the engine goroutine, at or
	// after settlement. onFinally runs after onThen or onCatch, regardless of
	// outcome.
	AddReactions(realm Realm, onThen, onCatch, onFinally Reaction) error

	// Result returns the settled value or rejection reason. Calling it while
	// pending is a contract violation.
	Result() Value

	// State returns the current state.
	State() PromiseState

	// AsValue returns the promise object itself, e.g. to return it to script.
	AsValue() Value
}
