// Package memory provides an in-process record source.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/leadgraph/lead"
)

// Source keeps records in insertion order. It is safe for concurrent use.
type Source struct {
	mu      sync.RWMutex
	records map[string]lead.Record
	order   []string
}

var _ lead.Source = (*Source)(nil)

// New creates a source holding the given records. Records without a status
// are treated as new.
func New(records ...lead.Record) *Source {
	s := &Source{records: make(map[string]lead.Record)}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// Put inserts or replaces a record.
func (s *Source) Put(r lead.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status == "" {
		r.Status = lead.StatusNew
	}
	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r.Clone()
}

// Fetch implements lead.Source.
func (s *Source) Fetch(ctx context.Context, opts lead.FetchOptions) ([]lead.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lead.Record
	if len(opts.IDs) > 0 {
		for _, id := range opts.UniqueIDs() {
			if r, ok := s.records[id]; ok {
				out = append(out, r.Clone())
			}
		}
		return out, nil
	}

	status := opts.StatusOrDefault()
	for _, id := range s.order {
		if r := s.records[id]; r.Status == status {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Update implements lead.Source.
func (s *Source) Update(ctx context.Context, id string, fields map[string]any) (lead.Record, error) {
	if err := ctx.Err(); err != nil {
		return lead.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return lead.Record{}, fmt.Errorf("%w: %s", lead.ErrRecordNotFound, id)
	}
	r = lead.ApplyFields(r, fields)
	s.records[id] = r
	return r.Clone(), nil
}

// All returns every record in insertion order.
func (s *Source) All() []lead.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lead.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Get returns the record with the given id.
func (s *Source) Get(id string) (lead.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r.Clone(), ok
}

// Insert is Put with the signature shared by the persistent sources.
func (s *Source) Insert(ctx context.Context, r lead.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Put(r)
	return nil
}
