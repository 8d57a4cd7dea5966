package gojs

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	if !rt.IsRunning() {
		t.Error("runtime should be running after creation")
	}
	if got := rt.MainRealm().ID(); got != DefaultMainRealmID {
		t.Errorf("main realm id = %q, want %q", got, DefaultMainRealmID)
	}
	assert.Equal(t, []string{DefaultMainRealmID}, rt.Realms())
	assert.Same(t, rt.Main(), rt.MainRealm())
	assert.Equal(t, defaultTimeout, rt.SyncTimeout())
}

func TestRuntime_Close(t *testing.T) {
	t.Parallel()
	rt, err := New(context.Background(), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := rt.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if rt.IsRunning() {
		t.Error("runtime should not be running after close")
	}
	// idempotent
	if err := rt.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case <-rt.Done():
	default:
		t.Error("Done channel should be closed after Close")
	}

	assert.False(t, rt.RunOnLoop(func(*goja.Runtime) {}))
	assert.ErrorIs(t, rt.RunOnLoopSync(func(*goja.Runtime) error { return nil }), ErrNotRunning)
	assert.ErrorIs(t, rt.Main().Do(func(adapter.Realm) error { return nil }), ErrNotRunning)
	_, err = rt.CreateRealm("late")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRuntime_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := New(ctx, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cancel()

	select {
	case <-rt.Done():
	case <-time.After(defaultTimeout):
		t.Fatal("runtime should stop when context is canceled")
	}
	assert.False(t, rt.IsRunning())
}

func TestRuntime_RunOnLoop(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	var executed atomic.Bool
	done := make(chan struct{})
	ok := rt.RunOnLoop(func(vm *goja.Runtime) {
		defer close(done)
		executed.Store(vm != nil && rt.OnLoop())
	})
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(defaultTimeout):
		t.Fatal("RunOnLoop callback did not run")
	}
	assert.True(t, executed.Load())
	assert.False(t, rt.OnLoop())
}

func TestRuntime_RunOnLoopSync(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	var result string
	err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		v, err := vm.RunString("'hello' + ' ' + 'world'")
		if err != nil {
			return err
		}
		result = v.String()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)

	sentinel := errors.New("sentinel")
	assert.Same(t, sentinel, rt.RunOnLoopSync(func(*goja.Runtime) error { return sentinel }))
}

func TestRuntime_RunOnLoopSyncPanic(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = rt.RunOnLoopSync(func(*goja.Runtime) error {
			panic("kaboom")
		})
	})

	// the loop survives
	assert.NoError(t, rt.RunOnLoopSync(func(*goja.Runtime) error { return nil }))
}

func TestRuntime_RunOnLoopSyncTimeout(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithSyncTimeout(20*time.Millisecond))

	release := make(chan struct{})
	err := rt.RunOnLoopSync(func(*goja.Runtime) error {
		<-release
		return nil
	})
	close(release)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timed out"), err.Error())
}

func TestRuntime_RunOnLoopSyncContext(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := rt.RunOnLoopSyncContext(ctx, func(*goja.Runtime) error {
		<-release
		return nil
	})
	close(release)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuntime_TryRunOnLoopSync(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	var depth int
	err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		depth++
		// re-entry runs inline instead of deadlocking on the loop
		return rt.TryRunOnLoopSync(context.Background(), func(inner *goja.Runtime) error {
			depth++
			assert.Same(t, vm, inner)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	// off the loop it schedules
	var onLoop bool
	require.NoError(t, rt.TryRunOnLoopSync(context.Background(), func(*goja.Runtime) error {
		onLoop = rt.OnLoop()
		return nil
	}))
	assert.True(t, onLoop)
}

func TestRuntime_CreateRealm(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	anon, err := rt.CreateRealm("")
	require.NoError(t, err)
	_, err = uuid.Parse(anon.ID())
	assert.NoError(t, err, "anonymous realms get a uuid")

	named, err := rt.NewRealm("worker")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultMainRealmID, anon.ID(), "worker"}, rt.Realms())

	got, ok := rt.Lookup("worker")
	require.True(t, ok)
	assert.Same(t, named, got)

	_, err = rt.CreateRealm("worker")
	var ae *adapter.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, adapter.KindDuplicateRealm, ae.Kind)
}

func TestRuntime_DestroyRealm(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	_, err := rt.CreateRealm("temp")
	require.NoError(t, err)

	assert.False(t, rt.DestroyRealm(DefaultMainRealmID), "main realm is permanent")
	assert.False(t, rt.DestroyRealm("unknown"))
	assert.True(t, rt.DestroyRealm("temp"))
	assert.False(t, rt.DestroyRealm("temp"))

	_, ok := rt.Realm("temp")
	assert.False(t, ok)
	assert.Equal(t, []string{DefaultMainRealmID}, rt.Realms())

	// the id is free again
	_, err = rt.CreateRealm("temp")
	assert.NoError(t, err)
}

func TestRuntime_DestroyRealmInvalidatesHandles(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	realm, err := rt.NewRealm("doomed")
	require.NoError(t, err)

	var fn *facade.Function
	do(t, realm, func(r *Realm) error {
		v, err := r.Eval(adapter.NewScript("test.js", "x => x + 1"))
		if err != nil {
			return err
		}
		fv, err := r.ToFacade(v)
		if err != nil {
			return err
		}
		fn = fv.(*facade.Function)
		return nil
	})

	out, err := fn.Call(context.Background(), facade.Int32(1))
	require.NoError(t, err)
	assert.Equal(t, facade.Int32(2), out)

	require.True(t, rt.DestroyRealm("doomed"))

	_, err = fn.Call(context.Background(), facade.Int32(1))
	assert.ErrorIs(t, err, adapter.ErrInvalidState)

	// every later operation keeps failing, not just the first
	for range 2 {
		err = realm.Do(func(r adapter.Realm) error {
			_, err := r.Eval(adapter.NewScript("test.js", "1"))
			return err
		})
		assert.ErrorIs(t, err, adapter.ErrInvalidState)
	}
	err = realm.Do(func(r adapter.Realm) error {
		_, err := r.ObjectCreate()
		return err
	})
	assert.ErrorIs(t, err, adapter.ErrInvalidState)
}

func TestRuntime_CloseInterruptsScript(t *testing.T) {
	t.Parallel()
	rt, err := New(context.Background(), WithLogger(discardLogger()))
	require.NoError(t, err)

	started := make(chan struct{})
	result := make(chan error, 1)
	require.True(t, rt.RunOnLoop(func(*goja.Runtime) {
		close(started)
		_, err := rt.Main().Eval(adapter.NewScript("spin.js", "for (;;) {}"))
		result <- err
	}))

	<-started
	require.NoError(t, rt.Close())

	select {
	case err := <-result:
		require.ErrorIs(t, err, adapter.ErrScript)
		var interrupted *goja.InterruptedError
		assert.ErrorAs(t, err, &interrupted)
	case <-time.After(defaultTimeout):
		t.Fatal("script was not interrupted")
	}
}

func TestRuntime_CloseFromLoop(t *testing.T) {
	t.Parallel()
	rt, err := New(context.Background(), WithLogger(discardLogger()))
	require.NoError(t, err)

	require.True(t, rt.RunOnLoop(func(*goja.Runtime) {
		_ = rt.Close()
	}))

	select {
	case <-rt.Done():
	case <-time.After(defaultTimeout):
		t.Fatal("Close from the loop goroutine did not complete")
	}
}
