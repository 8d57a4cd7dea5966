// Package goroutineid identifies goroutines, for the narrow purpose of
// asserting that engine-confined state is only touched by its owner.
package goroutineid

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var stackBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

// Get returns the id of the calling goroutine, or 0 if it cannot be
// determined.
func Get() int64 {
	bp := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(bp)
	// only the header line is needed, and it fits in the buffer
	n := runtime.Stack(*bp, false)
	return parse((*bp)[:n])
}

// parse reads the id from a stack header of the form
// "goroutine 123 [running]:". It does not allocate.
func parse(stack []byte) int64 {
	const prefix = "goroutine "
	if len(stack) <= len(prefix) || string(stack[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range stack[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}

// Owner records which goroutine owns a resource. The zero value is unbound.
type Owner struct {
	id atomic.Int64
}

// Bind makes the calling goroutine the owner.
func (o *Owner) Bind() {
	o.id.Store(Get())
}

// ID returns the owning goroutine id, or 0 if unbound.
func (o *Owner) ID() int64 {
	return o.id.Load()
}

// Held reports whether the calling goroutine is the owner. An unbound Owner
// is held by nobody.
func (o *Owner) Held() bool {
	id := o.id.Load()
	return id != 0 && id == Get()
}
