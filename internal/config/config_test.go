package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/imyousuf/bizgraph/internal/filter"
)

// isolate points HOME and the working directory at fresh temp dirs and clears
// the global config_file override.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.GetViper().Set("config_file", "")
	t.Cleanup(func() { viper.GetViper().Set("config_file", "") })
	root := t.TempDir()
	t.Chdir(root)
	return root
}

func writeProjectConfig(t *testing.T, root, body string) string {
	t.Helper()
	dir := filepath.Join(root, ProjectDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const sampleConfig = `
project:
  name: vazby-sk
workspace: audit
graph:
  neo4j_uri: bolt://localhost:7687
import:
  mode: merge
  inbox: inbox
filter:
  show_debts: false
  risk_score_min: 3.5
  countries: [SK]
server:
  addr: ":9090"
  cors_origins:
    - http://localhost:5173
log:
  mode: prod
  level: warn
`

func TestLoadFromProjectDir(t *testing.T) {
	root := isolate(t)
	dir := writeProjectConfig(t, root, sampleConfig)

	sub := filepath.Join(root, "exports", "2026")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	wantDir, _ := filepath.EvalSymlinks(dir)
	gotDir, _ := filepath.EvalSymlinks(cfg.ConfigDir)
	if gotDir != wantDir {
		t.Errorf("ConfigDir = %q, want %q", cfg.ConfigDir, dir)
	}
	if cfg.Project.Name != "vazby-sk" {
		t.Errorf("Project.Name = %q", cfg.Project.Name)
	}
	if cfg.Workspace != "audit" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.Graph.Neo4jURI != "bolt://localhost:7687" || cfg.Graph.Neo4jUser != "neo4j" {
		t.Errorf("Graph = %+v", cfg.Graph)
	}
	if cfg.Import.Mode != "merge" {
		t.Errorf("Import.Mode = %q", cfg.Import.Mode)
	}
	if len(cfg.Import.Exclude) == 0 {
		t.Error("Import.Exclude defaults missing")
	}
	if cfg.Filter.ShowDebts || !cfg.Filter.ShowOwnership {
		t.Errorf("Filter toggles = %+v", cfg.Filter)
	}
	if cfg.Filter.RiskScoreMin != 3.5 || cfg.Filter.RiskScoreMax != filter.MaxRiskScore {
		t.Errorf("Filter risk window = [%g, %g]", cfg.Filter.RiskScoreMin, cfg.Filter.RiskScoreMax)
	}
	if len(cfg.Filter.Countries) != 1 || cfg.Filter.Countries[0] != "SK" {
		t.Errorf("Filter.Countries = %v", cfg.Filter.Countries)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Log.Mode != "prod" || cfg.Log.Level != "warn" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if got, want := cfg.InboxPath(), filepath.Join(filepath.Dir(cfg.ConfigDir), "inbox"); got != want {
		t.Errorf("InboxPath() = %q, want %q", got, want)
	}
}

func TestLoadFromExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("workspace: explicit\n"), 0644); err != nil {
		t.Fatal(err)
	}
	viper.GetViper().Set("config_file", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workspace != "explicit" {
		t.Errorf("Workspace = %q, want explicit", cfg.Workspace)
	}
	if cfg.ConfigDir != filepath.Dir(path) {
		t.Errorf("ConfigDir = %q", cfg.ConfigDir)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigDir != "" {
		t.Errorf("ConfigDir = %q, want empty outside a project", cfg.ConfigDir)
	}
	if cfg.Workspace != "default" {
		t.Errorf("Workspace = %q, want default", cfg.Workspace)
	}
	if cfg.Import.Mode != "replace" {
		t.Errorf("Import.Mode = %q, want replace", cfg.Import.Mode)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	def := filter.DefaultConfig()
	if cfg.Filter.ShowOwnership != def.ShowOwnership || cfg.Filter.RiskScoreMax != def.RiskScoreMax {
		t.Errorf("Filter = %+v, want defaults", cfg.Filter)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.ResolveDBPath("") != "" || cfg.PresetsPath() != "" || cfg.HistoryPath() != "" {
		t.Error("paths should be empty without a project")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	root := isolate(t)
	writeProjectConfig(t, root, sampleConfig)
	t.Setenv("BIZGRAPH_WORKSPACE", "fromenv")
	t.Setenv("BIZGRAPH_SERVER_ADDR", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workspace != "fromenv" {
		t.Errorf("Workspace = %q, want fromenv", cfg.Workspace)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want :7000", cfg.Server.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	root := isolate(t)
	writeProjectConfig(t, root, sampleConfig)
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("BIZGRAPH_GRAPH_NEO4J_PASSWORD=s3cret\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BIZGRAPH_GRAPH_NEO4J_PASSWORD") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Graph.Neo4jPassword != "s3cret" {
		t.Errorf("Neo4jPassword = %q, want value from .env", cfg.Graph.Neo4jPassword)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	root := isolate(t)
	writeProjectConfig(t, root, "workspace: [unterminated\n")

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad workspace", mutate: func(c *Config) { c.Workspace = "  " }, wantErr: "workspace"},
		{name: "bad mode", mutate: func(c *Config) { c.Import.Mode = "append" }, wantErr: "import"},
		{
			name:    "inverted risk window",
			mutate:  func(c *Config) { c.Filter.RiskScoreMin, c.Filter.RiskScoreMax = 8, 2 },
			wantErr: "filter",
		},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = " " }, wantErr: "addr"},
		{name: "bad log mode", mutate: func(c *Config) { c.Log.Mode = "verbose" }, wantErr: "log mode"},
		{
			name:    "neo4j without user",
			mutate:  func(c *Config) { c.Graph.Neo4jURI, c.Graph.Neo4jUser = "bolt://x", "" },
			wantErr: "neo4j_user",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.ConfigDir = "/proj/.bizgraph"

	if got := cfg.ResolveDBPath(""); got != "/proj/.bizgraph/graph.db" {
		t.Errorf("ResolveDBPath() = %q", got)
	}
	if got := cfg.ResolveDBPath("/tmp/flag.db"); got != "/tmp/flag.db" {
		t.Errorf("ResolveDBPath(flag) = %q", got)
	}
	cfg.Graph.DBPath = "data/graph.db"
	if got := cfg.ResolveDBPath(""); got != "/proj/data/graph.db" {
		t.Errorf("ResolveDBPath(relative) = %q", got)
	}
	if got := cfg.PresetsPath(); got != "/proj/.bizgraph/presets.toml" {
		t.Errorf("PresetsPath() = %q", got)
	}
	cfg.Import.PresetsFile = "/etc/bizgraph/presets.toml"
	if got := cfg.PresetsPath(); got != "/etc/bizgraph/presets.toml" {
		t.Errorf("PresetsPath(absolute) = %q", got)
	}
	if got := cfg.HistoryPath(); got != "/proj/.bizgraph/imports.json" {
		t.Errorf("HistoryPath() = %q", got)
	}
}

func TestDiscoverProjectDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ProjectDirName)
	deep := filepath.Join(root, "a", "b")
	for _, d := range []string{dir, deep} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	if got := DiscoverProjectDir(deep); got != dir {
		t.Errorf("DiscoverProjectDir(deep) = %q, want %q", got, dir)
	}
	if got := DiscoverProjectDir(t.TempDir()); got != "" {
		t.Errorf("DiscoverProjectDir(unrelated) = %q, want empty", got)
	}
}

func TestDiscoverProjectConf(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "x", "y")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}

	path, conf, err := DiscoverProjectConf(deep)
	if err != nil || conf != nil || path != "" {
		t.Fatalf("DiscoverProjectConf(no file) = %q, %v, %v", path, conf, err)
	}

	confPath := filepath.Join(root, ProjectConfFile)
	if err := os.WriteFile(confPath, []byte("export_file: graph/export.jsonl\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path, conf, err = DiscoverProjectConf(deep)
	if err != nil {
		t.Fatalf("DiscoverProjectConf() error: %v", err)
	}
	if path != confPath {
		t.Errorf("path = %q, want %q", path, confPath)
	}
	if conf == nil || conf.ExportFile != "graph/export.jsonl" {
		t.Fatalf("conf = %+v", conf)
	}

	if err := os.WriteFile(confPath, []byte("export_file: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := DiscoverProjectConf(deep); err == nil {
		t.Error("expected error for malformed project file")
	}
}

func TestExportFilePath(t *testing.T) {
	tests := []struct {
		name string
		conf *ProjectConf
		want string
	}{
		{name: "nil", conf: nil, want: ""},
		{name: "unset", conf: &ProjectConf{}, want: ""},
		{name: "relative", conf: &ProjectConf{ExportFile: "out/graph.jsonl"}, want: "/proj/out/graph.jsonl"},
		{name: "absolute", conf: &ProjectConf{ExportFile: "/abs/graph.jsonl"}, want: "/abs/graph.jsonl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExportFilePath("/proj", tt.conf); got != tt.want {
				t.Errorf("ExportFilePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteConfig(t *testing.T) {
	cfg := Default()
	cfg.Project.Name = "roundtrip"
	cfg.Graph.Neo4jURI = "bolt://db:7687"
	cfg.Graph.Neo4jPassword = "do-not-persist"
	cfg.Filter.ShowLocation = false

	path := filepath.Join(t.TempDir(), ProjectDirName, ProjectConfigFile)
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# bizgraph configuration") {
		t.Errorf("missing header:\n%s", text)
	}
	if strings.Contains(text, "do-not-persist") {
		t.Error("neo4j password written to disk")
	}
	for _, want := range []string{"name: roundtrip", "neo4j_uri: bolt://db:7687", "show_location: false"} {
		if !strings.Contains(text, want) {
			t.Errorf("written config missing %q:\n%s", want, text)
		}
	}
}
