package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/leadgraph/lead"
)

// Options configures the SQLite database.
type Options struct {
	Path      string
	TableName string // Default "leads"
}

// Source implements lead.Source on a SQLite table.
type Source struct {
	db        *sql.DB
	tableName string
}

var _ lead.Source = (*Source)(nil)

const columns = "id, name, email, phone, address, title, company, website, linkedin, status, profile, fields"

// New opens the database at opts.Path and creates the table if needed.
func New(opts Options) (*Source, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "leads"
	}
	s := &Source{db: db, tableName: tableName}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
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
			fields TEXT NOT NULL DEFAULT '{}',
			updated_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Source) Close() error {
	return s.db.Close()
}

// Fetch implements lead.Source.
func (s *Source) Fetch(ctx context.Context, opts lead.FetchOptions) ([]lead.Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	ids := opts.UniqueIDs()
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		query := fmt.Sprintf("SELECT %s FROM %s WHERE id IN (%s)", columns, s.tableName, placeholders)
		rows, err = s.db.QueryContext(ctx, query, args...)
	} else {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE status = ? ORDER BY id", columns, s.tableName)
		rows, err = s.db.QueryContext(ctx, query, opts.StatusOrDefault())
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
		byID := make(map[string]lead.Record, len(out))
		for _, r := range out {
			byID[r.ID] = r
		}
		ordered := out[:0]
		for _, id := range ids {
			if r, ok := byID[id]; ok {
				ordered = append(ordered, r)
				delete(byID, id)
			}
		}
		out = ordered
	}
	return out, nil
}

// Update implements lead.Source.
func (s *Source) Update(ctx context.Context, id string, fields map[string]any) (lead.Record, error) {
	c := lead.Normalize(fields)
	patch := []byte("{}")
	if len(c.Fields) > 0 {
		var err error
		if patch, err = json.Marshal(c.Fields); err != nil {
			return lead.Record{}, fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			status = COALESCE(NULLIF(?, ''), status),
			profile = COALESCE(NULLIF(?, ''), profile),
			fields = json_patch(fields, ?),
			updated_at = ?
		WHERE id = ?
		RETURNING %s
	`, s.tableName, columns)

	row := s.db.QueryRowContext(ctx, query, c.Status, c.Profile, string(patch), time.Now().UTC(), id)
	rec, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	fields := []byte("{}")
	if len(rec.Fields) > 0 {
		var err error
		if fields, err = json.Marshal(rec.Fields); err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (%s, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName, columns)

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Phone, rec.Address, rec.Title,
		rec.Company, rec.Website, rec.LinkedIn, rec.Status, rec.Profile, string(fields), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (lead.Record, error) {
	var (
		rec    lead.Record
		fields string
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.Phone, &rec.Address, &rec.Title,
		&rec.Company, &rec.Website, &rec.LinkedIn, &rec.Status, &rec.Profile, &fields,
	)
	if err != nil {
		return lead.Record{}, err
	}
	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return lead.Record{}, fmt.Errorf("failed to unmarshal fields of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
