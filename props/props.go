// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package props is the shared state store. Every subsystem reads and writes
// typed fields in one hierarchical tree; there are no direct references
// between tasks.
package props

import (
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

type Kind int
const (
	Invalid Kind = iota
	Bool
	Int
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return "invalid"
}

type field struct {
	kind Kind
	val interface{}
}

// Tree is safe for concurrent use, but the control loop is expected to be
// the only writer.
type Tree struct {
	lock sync.RWMutex
	fields map[string]*field
}

func NewTree() *Tree {
	return &Tree{
		fields: make(map[string]*field),
	}
}

// Clean returns the canonical form of a node path: leading slash, no
// trailing slash, no empty segments.
func Clean(path string) string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return "/" + strings.Join(out, "/")
}

func join(path, name string) string {
	if path == "/" {
		return "/" + name
	}
	return path + "/" + name
}

// Node returns a handle for the branch at path. Branches don't need to be
// created, a handle to an empty branch reads as zero values.
func (t *Tree) Node(path string) *Node {
	return &Node{tree: t, path: Clean(path)}
}

func coerce(k Kind, v interface{}) interface{} {
	switch k {
	case Bool:
		return cast.ToBool(v)
	case Int:
		return cast.ToInt(v)
	case Float:
		return cast.ToFloat64(v)
	case String:
		return cast.ToString(v)
	}
	return v
}

// set stores v at key. The first write fixes the kind of the field, later
// writes of a different kind are converted.
func (t *Tree) set(key string, k Kind, v interface{}) {
	t.lock.Lock()
	defer t.lock.Unlock()

	f, ok := t.fields[key]
	if !ok {
		t.fields[key] = &field{kind: k, val: v}
		return
	}

	if f.kind != k {
		v = coerce(f.kind, v)
	}
	f.val = v
}

func (t *Tree) get(key string) (interface{}, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	f, ok := t.fields[key]
	if !ok {
		return nil, false
	}
	return f.val, true
}

// KindOf returns the kind a field was first written with, or Invalid.
func (t *Tree) KindOf(path string) Kind {
	t.lock.RLock()
	defer t.lock.RUnlock()

	f, ok := t.fields[Clean(path)]
	if !ok {
		return Invalid
	}
	return f.kind
}

// Reset drops every field, including their kinds.
func (t *Tree) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.fields = make(map[string]*field)
}

// Snapshot returns a copy of every field under prefix, keyed by full path.
func (t *Tree) Snapshot(prefix string) map[string]interface{} {
	prefix = Clean(prefix)

	t.lock.RLock()
	defer t.lock.RUnlock()

	ret := make(map[string]interface{})
	for k, f := range t.fields {
		if prefix == "/" || k == prefix || strings.HasPrefix(k, prefix + "/") {
			ret[k] = f.val
		}
	}

	return ret
}

// Paths returns every field path in sorted order.
func (t *Tree) Paths() []string {
	t.lock.RLock()
	defer t.lock.RUnlock()

	ret := make([]string, 0, len(t.fields))
	for k := range t.fields {
		ret = append(ret, k)
	}
	sort.Strings(ret)

	return ret
}

// Nested returns the tree as nested maps, suitable for encoding.
func (t *Tree) Nested() map[string]interface{} {
	root := make(map[string]interface{})

	for k, v := range t.Snapshot("/") {
		parts := strings.Split(strings.TrimPrefix(k, "/"), "/")
		m := root
		for _, p := range parts[:len(parts) - 1] {
			child, ok := m[p].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				m[p] = child
			}
			m = child
		}
		m[parts[len(parts) - 1]] = v
	}

	return root
}
