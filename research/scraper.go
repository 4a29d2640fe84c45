package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

// ErrNoContent is returned when a page has no readable text.
var ErrNoContent = errors.New("page has no content")

// Page is a scraped web page.
type Page struct {
	URL      string
	Title    string
	Markdown string
	// Links are absolute http(s) links found on the page, in document order
	// without duplicates.
	Links []string
}

// Scraper fetches a page and renders it as markdown.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Page, error)
}

// HTTPScraper is a Scraper using net/http, goquery and html-to-markdown.
type HTTPScraper struct {
	Client    *http.Client
	UserAgent string
	// MaxBytes caps the body read from the server.
	MaxBytes int64
}

var _ Scraper = (*HTTPScraper)(nil)

type ScraperOption func(*HTTPScraper)

// WithScraperClient sets the HTTP client.
func WithScraperClient(c *http.Client) ScraperOption {
	return func(s *HTTPScraper) { s.Client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ScraperOption {
	return func(s *HTTPScraper) { s.UserAgent = ua }
}

// WithMaxBytes caps the response size.
func WithMaxBytes(n int64) ScraperOption {
	return func(s *HTTPScraper) { s.MaxBytes = n }
}

// NewHTTPScraper creates a scraper with a browser-like user agent and a 5 MiB
// body limit.
func NewHTTPScraper(opts ...ScraperOption) *HTTPScraper {
	s := &HTTPScraper{
		Client:    http.DefaultClient,
		UserAgent: "Mozilla/5.0 (compatible; leadgraph/1.0)",
		MaxBytes:  5 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape implements Scraper.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (Page, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.Client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetching %s returned status: %d", rawURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if s.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, s.MaxBytes)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()

	page := Page{
		URL:   rawURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Links: collectLinks(doc, base),
	}
	if strings.TrimSpace(doc.Find("body").Text()) == "" {
		return page, fmt.Errorf("%w: %s", ErrNoContent, rawURL)
	}

	md, err := htmltomarkdown.ConvertNode(doc.Nodes[0], converter.WithDomain(base.Scheme+"://"+base.Host))
	if err != nil {
		return page, fmt.Errorf("failed to convert %s: %w", rawURL, err)
	}
	page.Markdown = strings.TrimSpace(string(md))
	if page.Markdown == "" {
		return page, fmt.Errorf("%w: %s", ErrNoContent, rawURL)
	}
	return page, nil
}

func collectLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		link := u.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}

// SocialLinks picks the first blog, YouTube, Facebook and Twitter/X link
// from links. A blog is a same-site link whose path starts with /blog or a
// blog. subdomain of site.
func SocialLinks(site string, links []string) (blog, youtube, facebook, twitter string) {
	siteHost := ""
	if u, err := url.Parse(site); err == nil {
		siteHost = strings.TrimPrefix(u.Hostname(), "www.")
	}
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		switch {
		case host == "youtube.com" || host == "m.youtube.com":
			if youtube == "" {
				youtube = link
			}
		case host == "facebook.com" || host == "m.facebook.com":
			if facebook == "" {
				facebook = link
			}
		case host == "twitter.com" || host == "x.com":
			if twitter == "" {
				twitter = link
			}
		case siteHost != "" && blog == "" &&
			((host == siteHost && strings.HasPrefix(u.Path, "/blog")) || host == "blog."+siteHost):
			blog = link
		}
	}
	return blog, youtube, facebook, twitter
}
