package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/leadgraph/export"
	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/narrative"
	"github.com/smallnest/leadgraph/outreach"
	"github.com/smallnest/leadgraph/research"
)

// Narrator builds the configured narrative backend, wrapped with retries
// when Retries > 1.
func (c LLMConfig) Narrator() (narrative.Narrator, error) {
	var (
		n   narrative.Narrator
		err error
	)
	switch strings.ToLower(c.Provider) {
	case ProviderOpenAI:
		opts := []narrative.OpenAIOption{narrative.WithTemperature(float32(c.Temperature))}
		if c.Model != "" {
			opts = append(opts, narrative.WithModel(c.Model))
		}
		if c.APIKey != "" {
			opts = append(opts, narrative.WithAPIKey(c.APIKey))
		}
		if c.BaseURL != "" {
			opts = append(opts, narrative.WithBaseURL(c.BaseURL))
		}
		n, err = narrative.NewOpenAI(opts...)

	case ProviderLangChainOpenAI:
		opts := []lcopenai.Option{lcopenai.WithModel(c.Model)}
		if c.APIKey != "" {
			opts = append(opts, lcopenai.WithToken(c.APIKey))
		}
		if c.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(c.BaseURL))
		}
		var model *lcopenai.LLM
		if model, err = lcopenai.New(opts...); err == nil {
			n = narrative.NewLangChain(model, llms.WithTemperature(c.Temperature))
		}

	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(c.Model)}
		if c.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(c.BaseURL))
		}
		var model *ollama.LLM
		if model, err = ollama.New(opts...); err == nil {
			n = narrative.NewLangChain(model, llms.WithTemperature(c.Temperature))
		}

	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s narrator: %w", c.Provider, err)
	}

	if c.Retries > 1 {
		rc := graph.DefaultRetryConfig()
		rc.MaxAttempts = c.Retries
		rc.InitialDelay = time.Second
		rc.MaxDelay = 30 * time.Second
		n = narrative.WithRetry(n, rc)
	}
	return n, nil
}

// Searcher builds the configured web search client.
func (c SearchConfig) Searcher() (research.Searcher, error) {
	switch strings.ToLower(c.Provider) {
	case SearchSerper:
		var opts []research.SerperOption
		if c.Country != "" {
			opts = append(opts, research.WithSerperCountry(c.Country))
		}
		s, err := research.NewSerperSearch(c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case SearchBrave:
		var opts []research.BraveOption
		if c.Country != "" {
			opts = append(opts, research.WithBraveCountry(c.Country))
		}
		s, err := research.NewBraveSearch(c.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown search provider %q", c.Provider)
}

// Deliverer builds the mailer. dryRun returns an in-memory outbox instead.
func (c MailConfig) Deliverer(dryRun bool) outreach.Deliverer {
	if dryRun {
		return &outreach.Outbox{}
	}
	var m *outreach.Mailer
	if c.SMTP.Host != "" {
		m = outreach.NewSMTPMailer(c.From, c.FromName, c.DraftDir, c.SMTP)
	} else {
		m = outreach.NewMailer(c.From, c.FromName, c.DraftDir, nil)
	}
	m.ReplyTo = c.ReplyTo
	m.TrackingDomain = c.TrackingDomain
	return m
}

// Exporter returns the report exporter, or nil when ExportDir is empty.
func (c Config) Exporter() export.Exporter {
	if c.ExportDir == "" {
		return nil
	}
	return export.NewLocalDir(c.ExportDir)
}
