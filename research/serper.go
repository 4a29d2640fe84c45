package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// SerperSearch queries Google through the serper.dev API.
type SerperSearch struct {
	APIKey  string
	BaseURL string
	Count   int
	Country string
	Client  *http.Client
}

var (
	_ Searcher     = (*SerperSearch)(nil)
	_ NewsSearcher = (*SerperSearch)(nil)
)

type SerperOption func(*SerperSearch)

// WithSerperBaseURL sets the API root (default https://google.serper.dev).
func WithSerperBaseURL(baseURL string) SerperOption {
	return func(s *SerperSearch) { s.BaseURL = strings.TrimRight(baseURL, "/") }
}

// WithSerperCount sets the number of results per query.
func WithSerperCount(n int) SerperOption {
	return func(s *SerperSearch) { s.Count = max(n, 1) }
}

// WithSerperCountry sets the gl parameter (e.g., "us").
func WithSerperCountry(country string) SerperOption {
	return func(s *SerperSearch) { s.Country = country }
}

// NewSerperSearch creates a Serper client.
// If apiKey is empty, it tries to read from SERPER_API_KEY environment variable.
func NewSerperSearch(apiKey string, opts ...SerperOption) (*SerperSearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("SERPER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY not set")
	}
	s := &SerperSearch{
		APIKey:  apiKey,
		BaseURL: "https://google.serper.dev",
		Count:   10,
		Client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type serperResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

// Search implements Searcher using the web endpoint.
func (s *SerperSearch) Search(ctx context.Context, query string) ([]Hit, error) {
	var body struct {
		Organic []serperResult `json:"organic"`
	}
	if err := s.post(ctx, "/search", query, "", &body); err != nil {
		return nil, err
	}
	return toHits(body.Organic), nil
}

// SearchNews implements NewsSearcher using the news endpoint. since is a
// Google time filter such as "qdr:m6".
func (s *SerperSearch) SearchNews(ctx context.Context, query, since string) ([]Hit, error) {
	var body struct {
		News []serperResult `json:"news"`
	}
	if err := s.post(ctx, "/news", query, since, &body); err != nil {
		return nil, err
	}
	return toHits(body.News), nil
}

func (s *SerperSearch) post(ctx context.Context, path, query, since string, out any) error {
	payload := map[string]any{"q": query, "num": s.Count}
	if s.Country != "" {
		payload["gl"] = s.Country
	}
	if since != "" {
		payload["tbs"] = since
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("serper api returned status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toHits(results []serperResult) []Hit {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit(r))
	}
	return hits
}
