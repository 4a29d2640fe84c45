package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/leadgraph/outreach"
	"github.com/smallnest/leadgraph/pipeline"
	"github.com/smallnest/leadgraph/research"
	"github.com/smallnest/leadgraph/source"
)

func TestParse(t *testing.T) {
	t.Setenv("LEADGRAPH_TEST_DSN", "postgres://u:p@localhost/leads")

	cfg, err := Parse(strings.NewReader(`
log_level: debug
source:
  kind: postgres
  conn_string: ${LEADGRAPH_TEST_DSN}
llm:
  provider: ollama
  model: llama3
pipeline:
  qualify_threshold: 8.5
  not_qualified_route: skip
  node_timeout: 90s
  case_study_link: https://example.com/case
step_bound: 500
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, source.KindPostgres, cfg.Source.Kind)
	assert.Equal(t, "postgres://u:p@localhost/leads", cfg.Source.ConnString)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.Retries, "unset keys keep their defaults")
	require.NotNil(t, cfg.Pipeline.QualifyThreshold)
	assert.Equal(t, 8.5, *cfg.Pipeline.QualifyThreshold)
	assert.Equal(t, pipeline.RouteSkip, cfg.Pipeline.NotQualifiedRoute)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.NodeTimeout)
	assert.Equal(t, 6, cfg.Pipeline.NewsWindowMonths)
	assert.NotNil(t, cfg.Pipeline.ScoreExtractor)
	assert.Equal(t, 500, cfg.StepBound)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Source, cfg.Source)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("sauce:\n  kind: csv\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sauce")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Source.Kind = "spreadsheet"
	cfg.LLM.Provider = "magic"
	cfg.Pipeline.SendDirectly = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrUnknownKind)
	assert.Contains(t, err.Error(), "llm.provider")
	assert.Contains(t, err.Error(), "smtp.host")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leadgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export_dir: out\nsearch:\n  provider: brave\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.ExportDir)
	assert.Equal(t, SearchBrave, cfg.Search.Provider)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestBuilders(t *testing.T) {
	n, err := LLMConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Retries: 2}.Narrator()
	require.NoError(t, err)
	assert.NotNil(t, n)

	_, err = LLMConfig{Provider: "magic"}.Narrator()
	assert.Error(t, err)

	s, err := SearchConfig{Provider: SearchSerper, APIKey: "key"}.Searcher()
	require.NoError(t, err)
	assert.IsType(t, &research.SerperSearch{}, s)

	assert.IsType(t, &outreach.Outbox{}, MailConfig{}.Deliverer(true))
	m := MailConfig{From: "me@example.com", TrackingDomain: "https://t.example.com"}.Deliverer(false)
	require.IsType(t, &outreach.Mailer{}, m)
	assert.Equal(t, "https://t.example.com", m.(*outreach.Mailer).TrackingDomain)

	assert.Nil(t, Config{}.Exporter())
	assert.NotNil(t, Config{ExportDir: t.TempDir()}.Exporter())
}
