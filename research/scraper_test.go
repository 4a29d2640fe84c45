package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homePage = `<html><head><title> Acme Widgets </title><style>body{color:red}</style></head>
<body>
<h1>Welcome to Acme</h1>
<script>alert("hi")</script>
<p>We build <a href="/products">widgets</a>.</p>
<a href="/blog/">Blog</a>
<a href="https://www.youtube.com/@acme">YouTube</a>
<a href="https://twitter.com/acme">Twitter</a>
<a href="/products#top">Products again</a>
<a href="mailto:hi@acme.io">Mail</a>
</body></html>`

func TestHTTPScraper_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/":
			w.Write([]byte(homePage))
		case "/empty":
			w.Write([]byte(`<html><body><script>x()</script></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewHTTPScraper(WithUserAgent("test-agent"))
	page, err := s.Scrape(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "Acme Widgets", page.Title)
	assert.Contains(t, page.Markdown, "# Welcome to Acme")
	assert.NotContains(t, page.Markdown, "alert")
	assert.NotContains(t, page.Markdown, "color:red")
	assert.Equal(t, []string{
		srv.URL + "/products",
		srv.URL + "/blog/",
		"https://www.youtube.com/@acme",
		"https://twitter.com/acme",
	}, page.Links)

	_, err = s.Scrape(context.Background(), srv.URL+"/empty")
	assert.True(t, errors.Is(err, ErrNoContent))

	_, err = s.Scrape(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}

func TestSocialLinks(t *testing.T) {
	blog, youtube, facebook, twitter := SocialLinks("https://www.acme.io", []string{
		"https://acme.io/pricing",
		"https://acme.io/blog/launch",
		"https://www.youtube.com/@acme",
		"https://x.com/acme",
		"https://twitter.com/acme_old",
	})
	assert.Equal(t, "https://acme.io/blog/launch", blog)
	assert.Equal(t, "https://www.youtube.com/@acme", youtube)
	assert.Empty(t, facebook)
	assert.Equal(t, "https://x.com/acme", twitter)
}
