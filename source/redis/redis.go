package redis

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/leadgraph/lead"
)

// Source implements lead.Source using Redis. Each record is a hash and every
// status has a set indexing the ids that currently carry it.
type Source struct {
	client *redis.Client
	prefix string
}

var _ lead.Source = (*Source)(nil)

// Options configuration for Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "leadgraph:"
}

// extra record fields are stored under this hash field prefix
const fieldPrefix = "f:"

// New creates a new Redis record source
func New(opts Options) *Source {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "leadgraph:"
	}

	return &Source{
		client: client,
		prefix: prefix,
	}
}

func (s *Source) recordKey(id string) string {
	return fmt.Sprintf("%srecord:%s", s.prefix, id)
}

func (s *Source) statusKey(status string) string {
	return fmt.Sprintf("%sstatus:%s", s.prefix, status)
}

// Close closes the client.
func (s *Source) Close() error {
	return s.client.Close()
}

// Insert stores a record and indexes it by status, replacing any record with
// the same id.
func (s *Source) Insert(ctx context.Context, rec lead.Record) error {
	if rec.Status == "" {
		rec.Status = lead.StatusNew
	}
	key := s.recordKey(rec.ID)
	old, err := s.client.HGet(ctx, key, "status").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read record %s: %w", rec.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHash(rec))
		if old != "" && old != rec.Status {
			pipe.SRem(ctx, s.statusKey(old), rec.ID)
		}
		pipe.SAdd(ctx, s.statusKey(rec.Status), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s to redis: %w", rec.ID, err)
	}
	return nil
}

// Fetch implements lead.Source.
func (s *Source) Fetch(ctx context.Context, opts lead.FetchOptions) ([]lead.Record, error) {
	ids := opts.UniqueIDs()
	if len(ids) == 0 {
		members, err := s.client.SMembers(ctx, s.statusKey(opts.StatusOrDefault())).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		slices.Sort(members)
		ids = members
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	var out []lead.Record
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		out = append(out, fromHash(h))
	}
	return out, nil
}

// Update implements lead.Source.
func (s *Source) Update(ctx context.Context, id string, fields map[string]any) (lead.Record, error) {
	key := s.recordKey(id)
	h, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return lead.Record{}, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if len(h) == 0 {
		return lead.Record{}, fmt.Errorf("%w: %s", lead.ErrRecordNotFound, id)
	}

	before := fromHash(h)
	after := lead.ApplyFields(before, fields)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, toHash(after))
		if after.Status != before.Status {
			pipe.SRem(ctx, s.statusKey(before.Status), id)
			pipe.SAdd(ctx, s.statusKey(after.Status), id)
		}
		return nil
	})
	if err != nil {
		return lead.Record{}, fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return after, nil
}

func toHash(r lead.Record) map[string]any {
	h := map[string]any{
		"id":       r.ID,
		"name":     r.Name,
		"email":    r.Email,
		"phone":    r.Phone,
		"address":  r.Address,
		"title":    r.Title,
		"company":  r.Company,
		"website":  r.Website,
		"linkedin": r.LinkedIn,
		"status":   r.Status,
		"profile":  r.Profile,
	}
	for k, v := range r.Fields {
		h[fieldPrefix+k] = v
	}
	return h
}

func fromHash(h map[string]string) lead.Record {
	r := lead.Record{
		ID:       h["id"],
		Name:     h["name"],
		Email:    h["email"],
		Phone:    h["phone"],
		Address:  h["address"],
		Title:    h["title"],
		Company:  h["company"],
		Website:  h["website"],
		LinkedIn: h["linkedin"],
		Status:   h["status"],
		Profile:  h["profile"],
	}
	for k, v := range h {
		if name, ok := strings.CutPrefix(k, fieldPrefix); ok {
			if r.Fields == nil {
				r.Fields = make(map[string]string)
			}
			r.Fields[name] = v
		}
	}
	return r
}
