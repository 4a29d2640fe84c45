package graph

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
)

// ErrUnknownField is returned when an update names a field the schema does not declare.
var ErrUnknownField = errors.New("unknown state field")

// Reducer defines how a field's current value is combined with an update.
type Reducer int

const (
	// Replace overwrites the current value with the update.
	Replace Reducer = iota
	// Append concatenates the update (a slice or a single element) onto the current slice.
	Append
)

func (r Reducer) String() string {
	switch r {
	case Replace:
		return "replace"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("reducer(%d)", int(r))
	}
}

// Apply merges update into current.
func (r Reducer) Apply(current, update any) (any, error) {
	switch r {
	case Replace:
		return update, nil
	case Append:
		return appendValues(current, update)
	default:
		return nil, fmt.Errorf("unsupported reducer %s", r)
	}
}

// Overwrite wraps a value so that it replaces the field regardless of the field's reducer.
// It is how an append-reduced field is reset.
type Overwrite struct {
	Value any
}

// Field declares one key of the state and how updates to it are merged.
type Field struct {
	Name    string
	Reducer Reducer
	// Default builds the initial value. A nil Default leaves the key absent.
	Default func() any
}

// Schema is the declared set of fields of a state container.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema creates a schema from the given field declarations.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", ErrInvalidGraph)
		}
		if _, dup := s.fields[f.Name]; dup {
			return nil, fmt.Errorf("%w: field %q declared twice", ErrInvalidGraph, f.Name)
		}
		if f.Reducer != Replace && f.Reducer != Append {
			return nil, fmt.Errorf("%w: field %q has unsupported reducer %s", ErrInvalidGraph, f.Name, f.Reducer)
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.order...)
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Init returns a fresh state built from field defaults.
func (s *Schema) Init() State {
	st := make(State, len(s.order))
	for _, name := range s.order {
		if d := s.fields[name].Default; d != nil {
			st[name] = d()
		}
	}
	return st
}

// Merge folds update into current and returns the result as a new State.
// current is never modified; on error current is returned unchanged.
func (s *Schema) Merge(current State, update Update) (State, error) {
	result := make(State, len(current)+len(update))
	maps.Copy(result, current)

	for k, v := range update {
		f, ok := s.fields[k]
		if !ok {
			return current, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		if ow, ok := v.(Overwrite); ok {
			result[k] = ow.Value
			continue
		}
		merged, err := f.Reducer.Apply(result[k], v)
		if err != nil {
			return current, fmt.Errorf("failed to reduce key %s: %w", k, err)
		}
		result[k] = merged
	}
	return result, nil
}

// appendValues always returns a freshly allocated slice so snapshots never share
// a backing array with later states.
func appendValues(current, update any) (any, error) {
	if update == nil {
		return current, nil
	}
	newVal := reflect.ValueOf(update)

	if current == nil {
		if newVal.Kind() == reflect.Slice {
			out := reflect.MakeSlice(newVal.Type(), newVal.Len(), newVal.Len())
			reflect.Copy(out, newVal)
			return out.Interface(), nil
		}
		out := reflect.MakeSlice(reflect.SliceOf(newVal.Type()), 0, 1)
		return reflect.Append(out, newVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}
	elem := currVal.Type().Elem()

	var extra reflect.Value
	switch {
	case newVal.Kind() == reflect.Slice && newVal.Type().Elem().AssignableTo(elem):
		extra = newVal
	case newVal.Type().AssignableTo(elem):
		extra = reflect.MakeSlice(currVal.Type(), 1, 1)
		extra.Index(0).Set(newVal)
	default:
		return nil, fmt.Errorf("cannot append %s to %s", newVal.Type(), currVal.Type())
	}

	out := reflect.MakeSlice(currVal.Type(), 0, currVal.Len()+extra.Len())
	out = reflect.AppendSlice(out, currVal)
	for i := 0; i < extra.Len(); i++ {
		out = reflect.Append(out, extra.Index(i))
	}
	return out.Interface(), nil
}
