package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/leadgraph/lead"
)

func seed() *Source {
	return New(
		lead.Record{ID: "a", Name: "Ada", Email: "ada@acme.io"},
		lead.Record{ID: "b", Name: "Bob", Email: "bob@beta.io", Status: lead.StatusAttemptedContact},
		lead.Record{ID: "c", Name: "Cy", Email: "cy@gamma.io"},
	)
}

func TestFetch_ByIDsReturnsOnlyExisting(t *testing.T) {
	s := seed()
	got, err := s.Fetch(context.Background(), lead.FetchOptions{IDs: []string{"c", "missing", "a"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestFetch_RepeatedIDs(t *testing.T) {
	s := seed()
	got, err := s.Fetch(context.Background(), lead.FetchOptions{IDs: []string{"a", "a", "c", "a"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestFetch_DefaultStatusIsNew(t *testing.T) {
	s := seed()
	got, err := s.Fetch(context.Background(), lead.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "c"}, []string{got[0].ID, got[1].ID})

	got, err = s.Fetch(context.Background(), lead.FetchOptions{Status: lead.StatusAttemptedContact})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestUpdate(t *testing.T) {
	s := seed()
	ctx := context.Background()
	fields := map[string]any{lead.FieldStatus: lead.StatusAttemptedContact, lead.FieldScore: "7.5"}

	first, err := s.Update(ctx, "a", fields)
	require.NoError(t, err)
	second, err := s.Update(ctx, "a", fields)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, lead.StatusAttemptedContact, stored.Status)
	assert.Equal(t, "7.5", stored.Fields[lead.FieldScore])

	_, err = s.Update(ctx, "zzz", fields)
	assert.True(t, errors.Is(err, lead.ErrRecordNotFound))
}

func TestFetch_ReturnsCopies(t *testing.T) {
	s := New(lead.Record{ID: "a", Fields: map[string]string{"k": "v"}})
	got, err := s.Fetch(context.Background(), lead.FetchOptions{IDs: []string{"a"}})
	require.NoError(t, err)
	got[0].Fields["k"] = "changed"

	stored, _ := s.Get("a")
	assert.Equal(t, "v", stored.Fields["k"])
	assert.Len(t, s.All(), 1)
}
