package facade

import (
	"iter"
	"strings"

	"github.com/joeycumines/jsadapter/internal/kind"
)

// Field is a single named property of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a detached plain object: an ordered set of string-keyed
// properties. Keys keep their first insertion position; a repeated key
// replaces the earlier value in place, mirroring JavaScript assignment.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject builds an Object from fields, in order. Nil values are stored as
// Undefined.
func NewObject(fields ...Field) *Object {
	o := &Object{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		o.put(f.Key, f.Value)
	}
	return o
}

func (o *Object) put(key string, v Value) {
	if v == nil {
		v = Undefined{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Len returns the number of properties.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns a copy of the property names, in order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Get returns the value of key and whether it is present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Fields iterates over the properties in order.
func (o *Object) Fields() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range o.keys {
			if !yield(k, o.values[k]) {
				return
			}
		}
	}
}

// With returns a copy of o with key set to v.
func (o *Object) With(key string, v Value) *Object {
	c := NewObject()
	for k, val := range o.Fields() {
		c.put(k, val)
	}
	c.put(key, v)
	return c
}

func (*Object) Kind() kind.Kind { return kind.Object }

func (o *Object) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(o.values[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (*Object) isValue() {}

// Array is a detached dense JavaScript array.
type Array struct {
	items []Value
}

// NewArray builds an Array holding a copy of items. Nil items are stored as
// Undefined.
func NewArray(items ...Value) *Array {
	a := &Array{items: make([]Value, len(items))}
	for i, v := range items {
		if v == nil {
			v = Undefined{}
		}
		a.items[i] = v
	}
	return a
}

// Len returns the array length.
func (a *Array) Len() int { return len(a.items) }

// At returns the element at i. It panics if i is out of range.
func (a *Array) At(i int) Value { return a.items[i] }

// Items returns a copy of the elements.
func (a *Array) Items() []Value {
	return append([]Value(nil), a.items...)
}

// All iterates over the elements in index order.
func (a *Array) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, v := range a.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (*Array) Kind() kind.Kind { return kind.Array }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range a.items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (*Array) isValue() {}
