package lead

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Record statuses.
const (
	StatusNew              = "NEW"
	StatusAttemptedContact = "ATTEMPTED_TO_CONTACT"
	StatusUnqualified      = "UNQUALIFIED"
)

// Field names accepted by Source.Update.
const (
	FieldStatus        = "status"
	FieldProfile       = "profile"
	FieldScore         = "score"
	FieldReportsLink   = "analysis_reports"
	FieldOutreachLink  = "outreach_report"
	FieldLastContacted = "last_contacted"
	FieldEmailStatus   = "email_status"
)

// ErrRecordNotFound is returned by Update for an unknown id.
var ErrRecordNotFound = errors.New("record not found")

// Record is one prospective contact.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Status   string `json:"status"`
	// Profile is free text, usually filled in by research.
	Profile string `json:"profile,omitempty"`
	// Fields holds everything else written through Update.
	Fields map[string]string `json:"fields,omitempty"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// SocialLinks are the content channels discovered for an organization.
type SocialLinks struct {
	Blog     string `json:"blog"`
	YouTube  string `json:"youtube"`
	Facebook string `json:"facebook"`
	Twitter  string `json:"twitter"`
}

// Company is the organization profile of the current record.
type Company struct {
	Name     string      `json:"name"`
	Website  string      `json:"website"`
	LinkedIn string      `json:"linkedin"`
	Social   SocialLinks `json:"social"`
	Profile  string      `json:"profile"`
}

// FetchOptions selects records. IDs win over Status when both are set.
type FetchOptions struct {
	IDs    []string
	Status string
}

// StatusOrDefault returns the status filter, defaulting to StatusNew.
func (o FetchOptions) StatusOrDefault() string {
	if o.Status == "" {
		return StatusNew
	}
	return o.Status
}

// UniqueIDs returns IDs without repeats, keeping the first occurrence of each.
func (o FetchOptions) UniqueIDs() []string {
	seen := make(map[string]struct{}, len(o.IDs))
	out := make([]string, 0, len(o.IDs))
	for _, id := range o.IDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Source reads records and writes back their progress.
//
// Fetch with explicit IDs returns exactly the records among them that exist,
// in the order given. Otherwise it returns every record whose status matches
// the filter. Update is idempotent for the same id and fields.
type Source interface {
	Fetch(ctx context.Context, opts FetchOptions) ([]Record, error)
	Update(ctx context.Context, id string, fields map[string]any) (Record, error)
}

// Changes is the normalized form of an Update field map.
type Changes struct {
	// Status and Profile are empty when unchanged.
	Status  string
	Profile string
	Fields  map[string]string
}

// Normalize splits an Update field map into struct fields and free-form text
// fields. FieldStatus and FieldProfile map to their struct fields; everything
// else is stringified.
func Normalize(fields map[string]any) Changes {
	var c Changes
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v := stringify(fields[k])
		switch k {
		case FieldStatus:
			c.Status = v
		case FieldProfile:
			c.Profile = v
		default:
			if c.Fields == nil {
				c.Fields = make(map[string]string)
			}
			c.Fields[k] = v
		}
	}
	return c
}

// ApplyFields writes fields into a copy of rec.
func ApplyFields(rec Record, fields map[string]any) Record {
	return Normalize(fields).Apply(rec)
}

// Apply writes the changes into a copy of rec.
func (c Changes) Apply(rec Record) Record {
	rec = rec.Clone()
	if c.Status != "" {
		rec.Status = c.Status
	}
	if c.Profile != "" {
		rec.Profile = c.Profile
	}
	if len(c.Fields) > 0 && rec.Fields == nil {
		rec.Fields = make(map[string]string, len(c.Fields))
	}
	maps.Copy(rec.Fields, c.Fields)
	return rec
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// SplitName returns first and last name, splitting on the first space.
func SplitName(name string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}

// FirstName returns the first word of the record's name.
func (r Record) FirstName() string {
	first, _ := SplitName(r.Name)
	return first
}
