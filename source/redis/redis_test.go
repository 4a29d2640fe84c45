package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/leadgraph/lead"
)

func newTestSource(t *testing.T) (*Source, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	src := New(Options{Addr: mr.Addr()})
	t.Cleanup(func() { src.Close() })

	ctx := context.Background()
	require.NoError(t, src.Insert(ctx, lead.Record{ID: "b", Name: "Bob", Email: "bob@beta.io"}))
	require.NoError(t, src.Insert(ctx, lead.Record{ID: "a", Name: "Ada", Email: "ada@acme.io", Fields: map[string]string{"Industry": "Retail"}}))
	require.NoError(t, src.Insert(ctx, lead.Record{ID: "c", Name: "Cy", Status: lead.StatusUnqualified}))
	return src, mr
}

func TestSource_Fetch(t *testing.T) {
	src, _ := newTestSource(t)
	ctx := context.Background()

	fresh, err := src.Fetch(ctx, lead.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "a", fresh[0].ID)
	assert.Equal(t, "Retail", fresh[0].Fields["Industry"])
	assert.Equal(t, "b", fresh[1].ID)

	byID, err := src.Fetch(ctx, lead.FetchOptions{IDs: []string{"c", "ghost", "a"}})
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, "c", byID[0].ID)
	assert.Equal(t, "a", byID[1].ID)

	repeated, err := src.Fetch(ctx, lead.FetchOptions{IDs: []string{"a", "a", "b", "a"}})
	require.NoError(t, err)
	require.Len(t, repeated, 2)
	assert.Equal(t, "a", repeated[0].ID)
	assert.Equal(t, "b", repeated[1].ID)
}

func TestSource_UpdateMovesStatus(t *testing.T) {
	src, mr := newTestSource(t)
	ctx := context.Background()
	fields := map[string]any{lead.FieldStatus: lead.StatusAttemptedContact, lead.FieldScore: 8.5}

	first, err := src.Update(ctx, "a", fields)
	require.NoError(t, err)
	second, err := src.Update(ctx, "a", fields)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "8.5", second.Fields[lead.FieldScore])

	members, err := mr.Members("leadgraph:status:" + lead.StatusAttemptedContact)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	fresh, err := src.Fetch(ctx, lead.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "b", fresh[0].ID)
}

func TestSource_UpdateUnknown(t *testing.T) {
	src, _ := newTestSource(t)
	_, err := src.Update(context.Background(), "ghost", nil)
	assert.True(t, errors.Is(err, lead.ErrRecordNotFound))
}
