package gojs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/google/uuid"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/goroutineid"
)

var (
	// ErrNotRunning is returned when work is submitted to a closed runtime.
	ErrNotRunning = errors.New("gojs: event loop not running")

	// ErrStopped is returned by synchronous calls whose runtime closed while
	// they waited.
	ErrStopped = errors.New("gojs: runtime stopped before completion")

	errClosing = errors.New("gojs: runtime closing")
)

// Runtime is an adapter.Runtime backed by goja. Every realm it owns is
// driven by a single goja_nodejs event loop goroutine, the engine goroutine;
// realm operations must happen there, via RunOnLoop, RunOnLoopSync,
// TryRunOnLoopSync or Realm.Do.
//
// The main realm uses the event loop's own goja.Runtime, so it also has the
// loop's timers. Further realms are separate goja.Runtime instances sharing
// the loop.
type Runtime struct {
	loop   *eventloop.EventLoop
	opts   options
	logger *slog.Logger
	owner  goroutineid.Owner

	mu      sync.RWMutex
	stopped bool
	realms  map[string]*Realm
	order   []string
	main    *Realm

	ctx    context.Context
	cancel context.CancelFunc
}

var _ adapter.Runtime = (*Runtime)(nil)

// New starts a runtime and its main realm. Cancelling ctx closes the
// runtime; Close should still be called to release it promptly.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// console is provided per realm, routed to the logger
	loop := eventloop.NewEventLoop(eventloop.EnableConsole(false))

	lifeCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:   loop,
		opts:   o,
		logger: o.logger,
		realms: make(map[string]*Realm),
		ctx:    lifeCtx,
		cancel: cancel,
	}

	loop.Start()

	errCh := make(chan error, 1)
	ok := loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.owner.Bind()
		main, err := newRealm(rt, o.mainRealmID, vm, false)
		if err == nil {
			rt.main = main
			rt.realms[main.id] = main
			rt.order = append(rt.order, main.id)
		}
		errCh <- err
	})
	if !ok {
		cancel()
		return nil, fmt.Errorf("failed to initialize: %w", ErrNotRunning)
	}
	if err := <-errCh; err != nil {
		cancel()
		loop.Stop()
		return nil, fmt.Errorf("failed to initialize main realm: %w", err)
	}

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			_ = rt.Close()
		})
		context.AfterFunc(lifeCtx, func() { stop() })
	}

	rt.logger.Debug("runtime started", slog.String("main_realm", o.mainRealmID))
	return rt, nil
}

// Close interrupts any running script, stops the event loop and releases the
// runtime. It is safe to call more than once, and from the engine goroutine.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	realms := make([]*Realm, 0, len(rt.realms))
	for _, r := range rt.realms {
		realms = append(realms, r)
	}
	rt.mu.Unlock()

	for _, r := range realms {
		r.vm.Interrupt(errClosing)
	}

	// unblock waiters before stopping the loop
	rt.cancel()

	if rt.owner.Held() {
		rt.loop.StopNoWait()
	} else {
		rt.loop.Stop()
	}
	rt.logger.Debug("runtime stopped")
	return nil
}

// Done is closed once the runtime is closed.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// IsRunning reports whether the runtime has not been closed.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return !rt.stopped
}

func (rt *Runtime) closing() bool {
	return rt.ctx.Err() != nil
}

// SyncTimeout returns the wait limit of RunOnLoopSync.
func (rt *Runtime) SyncTimeout() time.Duration {
	return rt.opts.timeout
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// CreateRealm creates and registers a realm. An empty id is replaced by a
// random UUID. It fails with adapter.KindDuplicateRealm if id is taken.
func (rt *Runtime) CreateRealm(id string) (adapter.Realm, error) {
	r, err := rt.NewRealm(id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NewRealm is CreateRealm returning the concrete type.
func (rt *Runtime) NewRealm(id string) (*Realm, error) {
	if id == "" {
		id = uuid.NewString()
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped {
		return nil, ErrNotRunning
	}
	if _, ok := rt.realms[id]; ok {
		return nil, &adapter.Error{Kind: adapter.KindDuplicateRealm, Op: "CreateRealm", Detail: fmt.Sprintf("realm %q already exists", id)}
	}

	r, err := newRealm(rt, id, goja.New(), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create realm %q: %w", id, err)
	}
	rt.realms[id] = r
	rt.order = append(rt.order, id)
	rt.logger.Debug("realm created", slog.String("realm", id))
	return r, nil
}

// Realm looks up a realm by id.
func (rt *Runtime) Realm(id string) (adapter.Realm, bool) {
	r, ok := rt.Lookup(id)
	if !ok {
		return nil, false
	}
	return r, true
}

// Lookup is Realm returning the concrete type.
func (rt *Runtime) Lookup(id string) (*Realm, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	r, ok := rt.realms[id]
	return r, ok
}

// MainRealm returns the main realm.
func (rt *Runtime) MainRealm() adapter.Realm {
	return rt.main
}

// Main is MainRealm returning the concrete type.
func (rt *Runtime) Main() *Realm {
	return rt.main
}

// Realms lists realm ids in creation order.
func (rt *Runtime) Realms() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return append([]string(nil), rt.order...)
}

// DestroyRealm unregisters a realm and interrupts any script it is running.
// Later operations on the realm fail with adapter.KindInvalidState, and its
// values and cache entries become unusable. The main realm
// cannot be destroyed.
func (rt *Runtime) DestroyRealm(id string) bool {
	rt.mu.Lock()
	r, ok := rt.realms[id]
	if !ok || r == rt.main {
		rt.mu.Unlock()
		return false
	}
	delete(rt.realms, id)
	for i, v := range rt.order {
		if v == id {
			rt.order = append(rt.order[:i], rt.order[i+1:]...)
			break
		}
	}
	rt.mu.Unlock()

	r.destroyed.Store(true)
	r.vm.Interrupt(fmt.Errorf("gojs: realm %q destroyed", id))
	rt.logger.Debug("realm destroyed", slog.String("realm", id))
	return true
}

// RunOnLoop schedules fn on the engine goroutine. The goja.Runtime passed is
// the main realm's. It returns false if the runtime is closed.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	if !rt.IsRunning() {
		return false
	}
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync runs fn on the engine goroutine and waits for it, up to the
// configured sync timeout. A panic in fn is re-raised on the caller's
// goroutine. When the wait times out, fn may still run later.
//
// Calling RunOnLoopSync from the engine goroutine deadlocks until the
// timeout; use TryRunOnLoopSync where that may happen.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	return rt.RunOnLoopSyncContext(context.Background(), fn)
}

type loopResult struct {
	err      error
	panicked bool
	value    any
}

// RunOnLoopSyncContext is RunOnLoopSync that also stops waiting when ctx is
// done.
func (rt *Runtime) RunOnLoopSyncContext(ctx context.Context, fn func(*goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrNotRunning
	}

	resCh := make(chan loopResult, 1)
	ok := rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		var res loopResult
		defer func() {
			if r := recover(); r != nil {
				res = loopResult{panicked: true, value: r}
			}
			resCh <- res
		}()
		res.err = fn(vm)
	})
	if !ok {
		return ErrNotRunning
	}

	var timeout <-chan time.Time
	if rt.opts.timeout > 0 {
		timer := time.NewTimer(rt.opts.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-resCh:
		if res.panicked {
			panic(res.value)
		}
		return res.err
	case <-rt.Done():
		// the job may have completed just as the loop stopped
		select {
		case res := <-resCh:
			if res.panicked {
				panic(res.value)
			}
			return res.err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("gojs: operation timed out after %v", rt.opts.timeout)
	}
}

// TryRunOnLoopSync runs fn directly when called on the engine goroutine, and
// otherwise behaves as RunOnLoopSyncContext. Host callbacks that may be
// reached both from script and from other goroutines use it.
func (rt *Runtime) TryRunOnLoopSync(ctx context.Context, fn func(*goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrNotRunning
	}
	if rt.owner.Held() {
		return fn(rt.main.vm)
	}
	return rt.RunOnLoopSyncContext(ctx, fn)
}

// OnLoop reports whether the caller is the engine goroutine.
func (rt *Runtime) OnLoop() bool {
	return rt.owner.Held()
}
