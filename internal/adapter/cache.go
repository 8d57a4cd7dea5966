package adapter

import "strconv"

// CacheID is an opaque key into a realm's instance cache. Ids are allocated
// by Realm.CacheAdd and are valid until consumed or disposed; a backend must
// never reuse an id within a realm.
type CacheID int32

func (id CacheID) String() string {
	return "cache#" + strconv.FormatInt(int64(id), 10)
}

// WithCached lends the value cached under id to fn, and returns fn's result.
func WithCached[R any](realm Realm, id CacheID, fn func(v Value) R) R {
	var out R
	realm.CacheWith(id, func(v Value) {
		out = fn(v)
	})
	return out
}

// CacheTable is an instance cache usable by backends. It enforces the id
// lifecycle, panicking with ErrContractViolation on misuse. It is not safe
// for concurrent use; like the realm that owns it, it is engine-confined.
type CacheTable[V any] struct {
	entries map[CacheID]V
	last    CacheID
}

// Add stores v and returns its new id.
func (c *CacheTable[V]) Add(v V) CacheID {
	if c.last == CacheID(1<<31-1) {
		Violation("cache id space exhausted")
	}
	if c.entries == nil {
		c.entries = make(map[CacheID]V)
	}
	c.last++
	c.entries[c.last] = v
	return c.last
}

// Get returns the entry for id.
func (c *CacheTable[V]) Get(id CacheID) V {
	v, ok := c.entries[id]
	if !ok {
		Violation("%v is not live (never added, disposed or consumed)", id)
	}
	return v
}

// Lookup returns the entry for id, and false if it is not live. Unlike Get
// it never panics, for handles that may have been released by another
// goroutine.
func (c *CacheTable[V]) Lookup(id CacheID) (V, bool) {
	v, ok := c.entries[id]
	return v, ok
}

// Take removes and returns the entry for id.
func (c *CacheTable[V]) Take(id CacheID) V {
	v := c.Get(id)
	delete(c.entries, id)
	return v
}

// Len returns the number of live entries.
func (c *CacheTable[V]) Len() int {
	return len(c.entries)
}
