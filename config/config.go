// Package config loads the leadgraph command configuration from a YAML file.
//
// A .env file in the working directory is loaded first, and ${VAR} references
// in the YAML are expanded from the environment, so secrets can stay out of the
// configuration file:
//
//	source:
//	  kind: postgres
//	  conn_string: ${DATABASE_URL}
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	  api_key: ${OPENAI_API_KEY}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/leadgraph/log"
	"github.com/smallnest/leadgraph/outreach"
	"github.com/smallnest/leadgraph/pipeline"
	"github.com/smallnest/leadgraph/source"
)

// LLM providers.
const (
	ProviderOpenAI          = "openai"
	ProviderLangChainOpenAI = "langchain-openai"
	ProviderOllama          = "ollama"
)

// Search providers.
const (
	SearchSerper = "serper"
	SearchBrave  = "brave"
)

// Config is the complete command configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Source    source.Config   `yaml:"source"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Mail      MailConfig      `yaml:"mail"`
	ExportDir string          `yaml:"export_dir"`
	Pipeline  pipeline.Config `yaml:"pipeline"`
	StepBound int             `yaml:"step_bound"`
}

// LLMConfig selects the narrative backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	// Retries is the number of attempts per call. Zero or one disables retrying.
	Retries int `yaml:"retries"`
}

// SearchConfig selects the web search backend.
type SearchConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Country  string `yaml:"country"`
}

// MailConfig configures drafting and dispatch. Without SMTP.Host messages are
// only drafted.
type MailConfig struct {
	From           string              `yaml:"from"`
	FromName       string              `yaml:"from_name"`
	ReplyTo        string              `yaml:"reply_to"`
	DraftDir       string              `yaml:"draft_dir"`
	TrackingDomain string              `yaml:"tracking_domain"`
	SMTP           outreach.SMTPConfig `yaml:"smtp"`
}

// Default returns the configuration used for everything a file leaves out.
func Default() Config {
	return Config{
		LogLevel: "info",
		Source:   source.Config{Kind: source.KindCSV, Path: "leads.csv", WriteBack: true},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			Retries:     3,
		},
		Search:    SearchConfig{Provider: SearchSerper},
		Mail:      MailConfig{DraftDir: "drafts"},
		ExportDir: "reports",
		Pipeline:  pipeline.DefaultConfig(),
	}
}

// Load reads .env (when present) and the YAML file at path. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Source.Kind) {
	case "", source.KindMemory, source.KindCSV, source.KindPostgres, source.KindSQLite, source.KindRedis, source.KindApollo:
	default:
		errs = append(errs, fmt.Errorf("source.kind %q: %w", c.Source.Kind, source.ErrUnknownKind))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case ProviderOpenAI, ProviderLangChainOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openai, langchain-openai, ollama", c.LLM.Provider))
	}
	switch strings.ToLower(c.Search.Provider) {
	case SearchSerper, SearchBrave:
	default:
		errs = append(errs, fmt.Errorf("search.provider %q is not one of serper, brave", c.Search.Provider))
	}
	switch c.Pipeline.NotQualifiedRoute {
	case "", pipeline.RouteUpdate, pipeline.RouteSkip:
	default:
		errs = append(errs, fmt.Errorf("pipeline.not_qualified_route %q is not one of update, skip", c.Pipeline.NotQualifiedRoute))
	}
	if c.Pipeline.SendDirectly && c.Mail.SMTP.Host == "" {
		errs = append(errs, errors.New("pipeline.send_directly requires mail.smtp.host"))
	}
	if c.StepBound < 0 {
		errs = append(errs, errors.New("step_bound must not be negative"))
	}
	return errors.Join(errs...)
}
