// Package apollo reads records from the Apollo.io people API.
//
// The API has no notion of a pipeline status, so updates are kept locally:
// once a person has been fetched, later Update calls and status filters are
// answered from that local copy.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/smallnest/leadgraph/lead"
)

// DefaultBaseURL is the public Apollo API root.
const DefaultBaseURL = "https://api.apollo.io/v1"

// Extra fields copied from the organization into Record.Fields.
const (
	FieldCompanyLinkedIn = "company_linkedin"
	FieldIndustry        = "industry"
)

// Source implements lead.Source on the Apollo API.
type Source struct {
	APIKey  string
	BaseURL string
	PerPage int
	Client  *http.Client

	mu    sync.Mutex
	local map[string]lead.Record
}

var _ lead.Source = (*Source)(nil)

type Option func(*Source)

// WithBaseURL sets the API root, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *Source) {
		s.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.Client = c
	}
}

// WithPerPage sets the search page size (1-100).
func WithPerPage(n int) Option {
	return func(s *Source) {
		s.PerPage = min(max(n, 1), 100)
	}
}

// New creates an Apollo source.
// If apiKey is empty, it tries to read from APOLLO_API_KEY environment variable.
func New(apiKey string, opts ...Option) (*Source, error) {
	if apiKey == "" {
		apiKey = os.Getenv("APOLLO_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("APOLLO_API_KEY not set")
	}

	s := &Source{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		PerPage: 100,
		Client:  http.DefaultClient,
		local:   make(map[string]lead.Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type organization struct {
	Name        string `json:"name"`
	WebsiteURL  string `json:"website_url"`
	LinkedInURL string `json:"linkedin_url"`
	Industry    string `json:"industry"`
}

type phoneNumber struct {
	RawNumber string `json:"raw_number"`
}

type person struct {
	ID           string        `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Email        string        `json:"email"`
	Title        string        `json:"title"`
	LinkedInURL  string        `json:"linkedin_url"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	PhoneNumbers []phoneNumber `json:"phone_numbers"`
	Organization *organization `json:"organization"`
}

func (p person) record() lead.Record {
	r := lead.Record{
		ID:       p.ID,
		Name:     strings.TrimSpace(p.FirstName + " " + p.LastName),
		Email:    p.Email,
		Title:    p.Title,
		LinkedIn: p.LinkedInURL,
		Address:  strings.Trim(p.City+", "+p.State, ", "),
		Status:   lead.StatusNew,
	}
	if len(p.PhoneNumbers) > 0 {
		r.Phone = p.PhoneNumbers[0].RawNumber
	}
	if o := p.Organization; o != nil {
		r.Company = o.Name
		r.Website = o.WebsiteURL
		extra := map[string]string{}
		if o.LinkedInURL != "" {
			extra[FieldCompanyLinkedIn] = o.LinkedInURL
		}
		if o.Industry != "" {
			extra[FieldIndustry] = o.Industry
		}
		if len(extra) > 0 {
			r.Fields = extra
		}
	}
	return r
}

// Fetch implements lead.Source. Ids the API does not know are skipped.
func (s *Source) Fetch(ctx context.Context, opts lead.FetchOptions) ([]lead.Record, error) {
	if len(opts.IDs) > 0 {
		var out []lead.Record
		for _, id := range opts.UniqueIDs() {
			rec, ok, err := s.get(ctx, id)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	people, err := s.search(ctx)
	if err != nil {
		return nil, err
	}
	status := opts.StatusOrDefault()
	var out []lead.Record
	for _, p := range people {
		if rec := s.remember(p.record()); rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Update implements lead.Source. Changes are tracked locally.
func (s *Source) Update(ctx context.Context, id string, fields map[string]any) (lead.Record, error) {
	if _, ok, err := s.get(ctx, id); err != nil {
		return lead.Record{}, err
	} else if !ok {
		return lead.Record{}, fmt.Errorf("%w: %s", lead.ErrRecordNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := lead.ApplyFields(s.local[id], fields)
	s.local[id] = rec
	return rec.Clone(), nil
}

// get returns the local copy of id, loading it from the API on first use.
func (s *Source) get(ctx context.Context, id string) (lead.Record, bool, error) {
	s.mu.Lock()
	rec, ok := s.local[id]
	s.mu.Unlock()
	if ok {
		return rec.Clone(), true, nil
	}

	var body struct {
		Person person `json:"person"`
	}
	found, err := s.do(ctx, http.MethodGet, "/people/"+url.PathEscape(id), nil, &body)
	if err != nil || !found {
		return lead.Record{}, false, err
	}
	if body.Person.ID == "" {
		body.Person.ID = id
	}
	return s.remember(body.Person.record()), true, nil
}

func (s *Source) search(ctx context.Context) ([]person, error) {
	payload := map[string]any{"page": 1, "per_page": s.PerPage}
	var body struct {
		People []person `json:"people"`
	}
	if _, err := s.do(ctx, http.MethodPost, "/mixed_people/search", payload, &body); err != nil {
		return nil, err
	}
	return body.People, nil
}

// remember stores rec unless a local copy already exists, and returns the
// local copy.
func (s *Source) remember(rec lead.Record) lead.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.local[rec.ID]; ok {
		return existing.Clone()
	}
	s.local[rec.ID] = rec
	return rec.Clone()
}

// do sends a request and decodes the response into out. A 404 reports
// found=false without an error.
func (s *Source) do(ctx context.Context, method, path string, payload, out any) (found bool, err error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return false, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("apollo api returned status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}
