package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/pipeline"
)

const testCSV = `# Id,Name,Email,Company,Status
1,Ada Lovelace,ada@acme.io,Acme,NEW
2,Grace Hopper,grace@navy.mil,Navy,ATTEMPTED_TO_CONTACT
3,Alan Turing,alan@bletchley.uk,Bletchley,NEW
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leadgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		rootFlags.configPath, rootFlags.logLevel = "", ""
		leadsFlags.ids, leadsFlags.status = nil, lead.StatusNew
		graphFlags.format = "mermaid"
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, pipeline.NodeFetchLeads)
	assert.Contains(t, out, pipeline.NodeScoreLead)

	out, err = execute(t, "graph", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	_, err = execute(t, "graph", "--format", "svg")
	assert.Error(t, err)
}

func TestLeadsCommand(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf("source:\n  kind: csv\n  path: %s\n", writeCSV(t)))

	out, err := execute(t, "leads", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "Alan Turing")
	assert.NotContains(t, out, "Grace Hopper")
	assert.Contains(t, out, "2 lead(s)")

	out, err = execute(t, "leads", "--config", cfg, "--ids", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace Hopper")
	assert.Contains(t, out, "1 lead(s)")
}

func TestImportCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leads.db")
	cfg := writeConfig(t, fmt.Sprintf("source:\n  kind: sqlite\n  path: %s\n", db))

	out, err := execute(t, "import", "--config", cfg, "--from-kind", "csv", "--from-path", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 lead(s)")

	out, err = execute(t, "leads", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "2 lead(s)")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "llm:\n  provider: magic\n")
	_, err := execute(t, "run", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(pipeline.Summary{
		Processed: []string{"3", "1"},
		LastScore: "**Final Score: 8.5**",
	}, pipeline.DefaultConfig(), nil)

	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "8.5")
	assert.Contains(t, out, "3, 1")

	out = renderSummary(pipeline.Summary{Remaining: 2}, pipeline.Config{}, assert.AnError)
	assert.Contains(t, out, "aborted")
	assert.Contains(t, out, "n/a")
}
