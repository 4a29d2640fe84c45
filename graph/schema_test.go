package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		Field{Name: "count", Reducer: Replace, Default: func() any { return 0 }},
		Field{Name: "logs", Reducer: Append, Default: func() any { return []string{} }},
		Field{Name: "name", Reducer: Replace},
	)
	require.NoError(t, err)
	return s
}

func TestNewSchema(t *testing.T) {
	t.Run("Duplicate field", func(t *testing.T) {
		_, err := NewSchema(Field{Name: "a"}, Field{Name: "a"})
		assert.ErrorIs(t, err, ErrInvalidGraph)
	})

	t.Run("Empty name", func(t *testing.T) {
		_, err := NewSchema(Field{Name: ""})
		assert.Error(t, err)
	})

	t.Run("Unsupported reducer", func(t *testing.T) {
		_, err := NewSchema(Field{Name: "a", Reducer: Reducer(7)})
		assert.Error(t, err)
	})

	t.Run("Fields keep declaration order", func(t *testing.T) {
		s := testSchema(t)
		assert.Equal(t, []string{"count", "logs", "name"}, s.Fields())
	})
}

func TestSchema_Init(t *testing.T) {
	s := testSchema(t)
	st := s.Init()
	assert.Equal(t, 0, st["count"])
	assert.Equal(t, []string{}, st["logs"])
	_, ok := st["name"]
	assert.False(t, ok, "fields without default stay absent")
}

func TestSchema_Merge(t *testing.T) {
	s := testSchema(t)

	t.Run("Replace and append", func(t *testing.T) {
		st := s.Init()
		next, err := s.Merge(st, Update{"count": 2, "logs": []string{"a", "b"}})
		require.NoError(t, err)
		next, err = s.Merge(next, Update{"count": 3, "logs": "c"})
		require.NoError(t, err)

		assert.Equal(t, 3, next["count"])
		assert.Equal(t, []string{"a", "b", "c"}, next["logs"])
	})

	t.Run("Input is not modified", func(t *testing.T) {
		st := s.Init()
		st["logs"] = []string{"a"}
		_, err := s.Merge(st, Update{"count": 9, "logs": "b"})
		require.NoError(t, err)
		assert.Equal(t, 0, st["count"])
		assert.Equal(t, []string{"a"}, st["logs"])
	})

	t.Run("Appended slices do not alias snapshots", func(t *testing.T) {
		base := make([]string, 1, 10)
		base[0] = "a"
		st := State{"logs": base}

		left, err := s.Merge(st, Update{"logs": "left"})
		require.NoError(t, err)
		right, err := s.Merge(st, Update{"logs": "right"})
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "left"}, left["logs"])
		assert.Equal(t, []string{"a", "right"}, right["logs"])
	})

	t.Run("Unknown field rejected", func(t *testing.T) {
		st := s.Init()
		got, err := s.Merge(st, Update{"count": 1, "bogus": true})
		assert.True(t, errors.Is(err, ErrUnknownField))
		assert.Equal(t, st, got)
	})

	t.Run("Overwrite resets append field", func(t *testing.T) {
		st := State{"logs": []string{"a", "b"}}
		next, err := s.Merge(st, Update{"logs": Overwrite{Value: []string{}}})
		require.NoError(t, err)
		assert.Empty(t, next["logs"])
	})

	t.Run("Append type mismatch", func(t *testing.T) {
		st := State{"logs": []string{"a"}}
		_, err := s.Merge(st, Update{"logs": 42})
		assert.Error(t, err)
	})
}

func TestAppendReducer(t *testing.T) {
	t.Run("Nil current with element", func(t *testing.T) {
		got, err := Append.Apply(nil, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, got)
	})

	t.Run("Nil current with slice", func(t *testing.T) {
		in := []int{1, 2}
		got, err := Append.Apply(nil, in)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, got)
		in[0] = 99
		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("Interface slice accepts any element", func(t *testing.T) {
		got, err := Append.Apply([]any{1}, []string{"x"})
		require.NoError(t, err)
		assert.Equal(t, []any{1, "x"}, got)
	})

	t.Run("Current not a slice", func(t *testing.T) {
		_, err := Append.Apply(5, 1)
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	st := State{"n": 3, "s": "x"}
	assert.Equal(t, 3, Get[int](st, "n"))
	assert.Equal(t, "", Get[string](st, "n"))
	assert.Equal(t, 0, Get[int](st, "missing"))

	v, ok := Lookup[string](st, "s")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}
