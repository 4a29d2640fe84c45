package graph

import "maps"

// State is a read-only snapshot of the state container handed to nodes and routers.
// Nodes must not modify it; they return an Update instead.
type State map[string]any

// Update is a partial state returned by a node. Only the fields present are merged.
type Update map[string]any

// Clone returns a shallow copy of the snapshot.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Get returns the value stored under key as T, or the zero value if the key is
// absent or holds another type.
func Get[T any](s State, key string) T {
	v, _ := Lookup[T](s, key)
	return v
}

// Lookup is like Get but reports whether a value of type T was present.
func Lookup[T any](s State, key string) (T, bool) {
	var zero T
	raw, ok := s[key]
	if !ok || raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
