// Package source opens a lead.Source by kind and copies records between
// sources.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/source/apollo"
	"github.com/smallnest/leadgraph/source/csv"
	"github.com/smallnest/leadgraph/source/memory"
	"github.com/smallnest/leadgraph/source/postgres"
	"github.com/smallnest/leadgraph/source/redis"
	"github.com/smallnest/leadgraph/source/sqlite"
)

// Source kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindCSV      = "csv"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindRedis    = "redis"
	KindApollo   = "apollo"
)

// ErrUnknownKind is returned by Open for an unsupported kind.
var ErrUnknownKind = errors.New("unknown source kind")

// Config selects and configures a source. Only the fields of the chosen kind
// are read.
type Config struct {
	Kind string `yaml:"kind"`

	// csv and sqlite
	Path string `yaml:"path"`
	// WriteBack makes Close export a csv source to Path.
	WriteBack bool `yaml:"write_back"`

	// postgres
	ConnString string `yaml:"conn_string"`
	// postgres and sqlite
	TableName string `yaml:"table"`

	// redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`

	// apollo
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Source is an opened record source. Close releases its connection and, for
// csv with WriteBack, saves the updated records.
type Source interface {
	lead.Source
	Close() error
}

// Inserter stores records. Every persistent source in this module is one.
type Inserter interface {
	Insert(ctx context.Context, rec lead.Record) error
}

// Open creates the source described by cfg.
func Open(ctx context.Context, cfg Config) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", KindMemory:
		return nopCloser{memory.New()}, nil

	case KindCSV:
		src, err := csv.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		if !cfg.WriteBack {
			return nopCloser{src}, nil
		}
		return closer{src, func() error { return src.Export(src.Path()) }}, nil

	case KindPostgres:
		src, err := postgres.New(ctx, postgres.Options{ConnString: cfg.ConnString, TableName: cfg.TableName})
		if err != nil {
			return nil, err
		}
		if err := src.InitSchema(ctx); err != nil {
			src.Close()
			return nil, err
		}
		return closer{src, func() error { src.Close(); return nil }}, nil

	case KindSQLite:
		src, err := sqlite.New(sqlite.Options{Path: cfg.Path, TableName: cfg.TableName})
		if err != nil {
			return nil, err
		}
		return src, nil

	case KindRedis:
		return redis.New(redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
		}), nil

	case KindApollo:
		var opts []apollo.Option
		if cfg.BaseURL != "" {
			opts = append(opts, apollo.WithBaseURL(cfg.BaseURL))
		}
		src, err := apollo.New(cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return nopCloser{src}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}

// Import copies the records of from selected by opts into to, returning the
// number copied. Records keep their status.
func Import(ctx context.Context, from lead.Source, to Inserter, opts lead.FetchOptions) (int, error) {
	records, err := from.Fetch(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch records to import: %w", err)
	}
	for i, rec := range records {
		if err := to.Insert(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

type nopCloser struct {
	lead.Source
}

func (nopCloser) Close() error { return nil }

type closer struct {
	lead.Source
	close func() error
}

func (c closer) Close() error { return c.close() }

// AsInserter returns the Inserter behind s, looking through the wrappers
// Open adds.
func AsInserter(s lead.Source) (Inserter, bool) {
	switch w := s.(type) {
	case nopCloser:
		s = w.Source
	case closer:
		s = w.Source
	}
	in, ok := s.(Inserter)
	return in, ok
}
