package lead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyFields(t *testing.T) {
	rec := Record{ID: "1", Name: "Ada Lovelace", Status: StatusNew}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	got := ApplyFields(rec, map[string]any{
		FieldStatus:        StatusAttemptedContact,
		FieldScore:         "8.5",
		FieldLastContacted: day.Format(time.DateOnly),
		"attempts":         2,
	})

	assert.Equal(t, StatusAttemptedContact, got.Status)
	assert.Equal(t, "8.5", got.Fields[FieldScore])
	assert.Equal(t, "2024-05-01", got.Fields[FieldLastContacted])
	assert.Equal(t, "2", got.Fields["attempts"])

	assert.Equal(t, StatusNew, rec.Status, "input untouched")
	assert.Nil(t, rec.Fields)

	again := ApplyFields(got, map[string]any{FieldStatus: StatusAttemptedContact, FieldScore: "8.5"})
	assert.Equal(t, got, again, "idempotent")
}

func TestFindReport(t *testing.T) {
	reports := []Report{
		{Title: ReportBlog, Content: "old"},
		{Title: ReportNews, Content: "news"},
		{Title: ReportBlog, Content: "new"},
	}
	c, ok := FindReport(reports, ReportBlog)
	assert.True(t, ok)
	assert.Equal(t, "new", c)

	_, ok = FindReport(reports, ReportYouTube)
	assert.False(t, ok)
	assert.Equal(t, "", ReportContent(nil, ReportNews))
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("  Grace  Brewster Hopper ")
	assert.Equal(t, "Grace", first)
	assert.Equal(t, "Brewster Hopper", last)
	assert.Equal(t, "Cher", Record{Name: "Cher"}.FirstName())
}

func TestFetchOptions_StatusOrDefault(t *testing.T) {
	assert.Equal(t, StatusNew, FetchOptions{}.StatusOrDefault())
	assert.Equal(t, "HOT", FetchOptions{Status: "HOT"}.StatusOrDefault())
}

func TestFetchOptions_UniqueIDs(t *testing.T) {
	opts := FetchOptions{IDs: []string{"b", "a", "b", "c", "a"}}
	assert.Equal(t, []string{"b", "a", "c"}, opts.UniqueIDs())
	assert.Empty(t, FetchOptions{}.UniqueIDs())
}
