package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/graph"
)

// setupProject runs from a fresh directory with an isolated HOME.
func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Set("config_file", "")
	root := t.TempDir()
	t.Chdir(root)
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "bizgraph %s", strings.Join(args, " "))
	return out
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func decodeFragment(t *testing.T, out string) *graph.Fragment {
	t.Helper()
	frag := graph.NewFragment()
	require.NoError(t, json.Unmarshal([]byte(out), frag), out)
	return frag
}

func nodeIDs(frag *graph.Fragment) []string {
	ids := make([]string, 0, len(frag.Nodes))
	for _, n := range frag.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

const sampleGraph = `{
  "nodes": [
    {"id": "A", "label": "Alfa s.r.o.", "type": "company", "country": "SK", "risk_score": 3},
    {"id": "B", "label": "Jan Novak", "type": "person"},
    {"id": "C", "label": "Eva Kovac", "type": "person", "country": "CZ", "risk_score": 8},
    {"id": "D", "label": "Delta a.s.", "type": "company"}
  ],
  "edges": [
    {"source": "A", "target": "B", "type": "OWNED_BY"},
    {"source": "A", "target": "C", "type": "MANAGED_BY"}
  ]
}`

func TestInitCreatesProject(t *testing.T) {
	root := setupProject(t)

	out := mustRun(t, "init", "--name", "audit", "--inbox", "inbox")
	assert.Contains(t, out, "Registered project \"audit\"")

	for _, p := range []string{
		filepath.Join(root, config.ProjectDirName, config.ProjectConfigFile),
		filepath.Join(root, config.ProjectDirName, config.DefaultPresetsFile),
		filepath.Join(root, ".env"),
		filepath.Join(root, "inbox"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	entry, ok := config.LookupProject(root)
	require.True(t, ok)
	assert.Equal(t, "audit", entry.Name)

	_, err := run(t, "init")
	assert.Error(t, err, "second init should fail")
}

func TestImportStatusAndExport(t *testing.T) {
	root := setupProject(t)
	mustRun(t, "init")

	csvPath := filepath.Join(root, "firmy.csv")
	writeTestFile(t, csvPath, "Názov,IČO\nAlfa s.r.o.,11111111\nBeta a.s.,22222222\n")
	jsonPath := filepath.Join(root, "graph.json")
	writeTestFile(t, jsonPath, sampleGraph)

	out := mustRun(t, "import", csvPath)
	assert.Contains(t, out, "firmy.csv")
	assert.Contains(t, out, "nodes=2")

	mustRun(t, "import", "--mode", "merge", jsonPath)

	out = mustRun(t, "status")
	assert.Contains(t, out, "Total nodes")
	assert.Contains(t, out, "6")
	assert.Contains(t, out, "Recent imports")
	assert.Contains(t, out, "graph.json")

	out = mustRun(t, "export", "--format", "json", "-o", "-")
	frag := decodeFragment(t, out)
	assert.Len(t, frag.Nodes, 6)
	assert.Len(t, frag.Edges, 2)

	// Replace drops everything imported before.
	mustRun(t, "import", jsonPath)
	out = mustRun(t, "export", "--format", "json", "-o", "-")
	assert.Len(t, decodeFragment(t, out).Nodes, 4)
}

func TestImportDryRunAndErrors(t *testing.T) {
	root := setupProject(t)

	jsonPath := filepath.Join(root, "graph.json")
	writeTestFile(t, jsonPath, sampleGraph)
	out := mustRun(t, "import", "--dry-run", jsonPath)
	assert.Len(t, decodeFragment(t, out).Nodes, 4)

	txtPath := filepath.Join(root, "notes.txt")
	writeTestFile(t, txtPath, "hello")
	_, err := run(t, "import", "--dry-run", txtPath)
	assert.Error(t, err)

	_, err = run(t, "import", "--mode", "append", jsonPath)
	assert.Error(t, err, "import without a project or valid mode should fail")
}

func TestFilterFromInput(t *testing.T) {
	root := setupProject(t)
	input := filepath.Join(root, "graph.json")
	writeTestFile(t, input, sampleGraph)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"defaults", nil, []string{"A", "B", "C"}},
		{"ownership off", []string{"--ownership=false"}, []string{"A", "C"}},
		{"focus on isolated node", []string{"--focus", "D"}, []string{"A", "B", "C", "D"}},
		{"risk range", []string{"--risk-max", "5"}, []string{"A", "B"}},
		{"countries", []string{"--countries", "sk"}, []string{"A", "B"}},
		{"preset", []string{"--preset", "high-risk"}, []string{"C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"filter", "--input", input}, tt.args...)
			frag := decodeFragment(t, mustRun(t, args...))
			assert.Equal(t, tt.want, nodeIDs(frag))
		})
	}

	_, err := run(t, "filter", "--input", input, "--preset", "nope")
	assert.Error(t, err)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	root := setupProject(t)
	mustRun(t, "init")
	writeTestFile(t, filepath.Join(root, config.ProjectConfFile), "export_file: data/graph.jsonl\n")

	jsonPath := filepath.Join(root, "graph.json")
	writeTestFile(t, jsonPath, sampleGraph)
	mustRun(t, "import", jsonPath)

	mustRun(t, "export")
	exported := filepath.Join(root, "data", "graph.jsonl")
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(data), "\n"))

	mustRun(t, "workspaces", "delete", "default", "--yes")
	out := mustRun(t, "export", "--format", "json", "-o", "-")
	assert.Empty(t, decodeFragment(t, out).Nodes)

	out = mustRun(t, "export", "restore")
	assert.Contains(t, out, "4 nodes, 2 edges")
}

func TestWorkspaces(t *testing.T) {
	root := setupProject(t)
	mustRun(t, "init")
	jsonPath := filepath.Join(root, "graph.json")
	writeTestFile(t, jsonPath, sampleGraph)

	mustRun(t, "import", "-w", "first", jsonPath)
	mustRun(t, "import", "-w", "second", jsonPath)

	out := mustRun(t, "workspaces", "-w", "second")
	assert.Contains(t, out, "  first")
	assert.Contains(t, out, "* second")

	_, err := run(t, "workspaces", "delete", "first")
	assert.Error(t, err, "delete without --yes should fail")

	mustRun(t, "workspaces", "delete", "first", "--yes")
	out = mustRun(t, "workspaces", "list")
	assert.NotContains(t, out, "first")
}

func TestConfigViewAndVersion(t *testing.T) {
	setupProject(t)
	mustRun(t, "init", "--name", "registry-audit")

	out := mustRun(t, "config")
	assert.Contains(t, out, "registry-audit")
	assert.Contains(t, out, "Default Filter")

	out = mustRun(t, "filter", "presets")
	for _, name := range []string{"all", "debts", "high-risk", "ownership"} {
		assert.Contains(t, out, name)
	}

	out = mustRun(t, "version")
	assert.True(t, strings.HasPrefix(out, "bizgraph version "), out)
}

func TestCompletion(t *testing.T) {
	root := setupProject(t)

	out := mustRun(t, "completion", "bash")
	assert.Contains(t, out, "bizgraph")

	target := filepath.Join(root, "completions", "_bizgraph")
	out = mustRun(t, "completion", "zsh", "-o", target)
	assert.Contains(t, out, target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#compdef bizgraph")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}
