package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/leadgraph/lead"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "leads"
}

// Source implements lead.Source on a PostgreSQL table.
type Source struct {
	pool      DBPool
	tableName string
}

var _ lead.Source = (*Source)(nil)

const columns = "id, name, email, phone, address, title, company, website, linkedin, status, profile, fields"

// New connects to Postgres and returns a source over opts.TableName.
func New(ctx context.Context, opts Options) (*Source, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewWithPool(pool, opts.TableName), nil
}

// NewWithPool creates a source on an existing pool.
// Useful for testing with mocks
func NewWithPool(pool DBPool, tableName string) *Source {
	if tableName == "" {
		tableName = "leads"
	}
	return &Source{pool: pool, tableName: tableName}
}

// InitSchema creates the records table if it doesn't exist
func (s *Source) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			linkedin TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'NEW',
			profile TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Source) Close() {
	s.pool.Close()
}

// Fetch implements lead.Source.
func (s *Source) Fetch(ctx context.Context, opts lead.FetchOptions) ([]lead.Record, error) {
	var (
		rows pgx.Rows
		err  error
	)
	ids := opts.UniqueIDs()
	if len(ids) > 0 {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", columns, s.tableName)
		rows, err = s.pool.Query(ctx, query, ids)
	} else {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE status = $1 ORDER BY id", columns, s.tableName)
		rows, err = s.pool.Query(ctx, query, opts.StatusOrDefault())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	var out []lead.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	if len(ids) > 0 {
		out = inRequestOrder(out, ids)
	}
	return out, nil
}

// Update implements lead.Source. Text fields are merged into the JSONB
// column, so repeating an update leaves the row unchanged.
func (s *Source) Update(ctx context.Context, id string, fields map[string]any) (lead.Record, error) {
	c := lead.Normalize(fields)
	extra, err := json.Marshal(nonNil(c.Fields))
	if err != nil {
		return lead.Record{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			status = COALESCE(NULLIF($2, ''), status),
			profile = COALESCE(NULLIF($3, ''), profile),
			fields = fields || $4::jsonb,
			updated_at = $5
		WHERE id = $1
		RETURNING %s
	`, s.tableName, columns)

	rec, err := scan(s.pool.QueryRow(ctx, query, id, c.Status, c.Profile, extra, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lead.Record{}, fmt.Errorf("%w: %s", lead.ErrRecordNotFound, id)
		}
		return lead.Record{}, fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return rec, nil
}

// Insert stores a record, replacing any record with the same id.
func (s *Source) Insert(ctx context.Context, rec lead.Record) error {
	if rec.Status == "" {
		rec.Status = lead.StatusNew
	}
	extra, err := json.Marshal(nonNil(rec.Fields))
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			website = EXCLUDED.website,
			linkedin = EXCLUDED.linkedin,
			status = EXCLUDED.status,
			profile = EXCLUDED.profile,
			fields = EXCLUDED.fields
	`, s.tableName, columns)

	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Phone, rec.Address, rec.Title,
		rec.Company, rec.Website, rec.LinkedIn, rec.Status, rec.Profile, extra,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

func scan(row pgx.Row) (lead.Record, error) {
	var (
		rec    lead.Record
		fields []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.Phone, &rec.Address, &rec.Title,
		&rec.Company, &rec.Website, &rec.LinkedIn, &rec.Status, &rec.Profile, &fields,
	)
	if err != nil {
		return lead.Record{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &rec.Fields); err != nil {
			return lead.Record{}, fmt.Errorf("failed to unmarshal fields of %s: %w", rec.ID, err)
		}
		if len(rec.Fields) == 0 {
			rec.Fields = nil
		}
	}
	return rec, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func inRequestOrder(records []lead.Record, ids []string) []lead.Record {
	byID := make(map[string]lead.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	out := make([]lead.Record, 0, len(records))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out
}
