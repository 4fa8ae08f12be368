// Package config handles configuration loading and validation for bizgraph.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/imyousuf/bizgraph/internal/filter"
	"github.com/imyousuf/bizgraph/internal/graph/embedded"
	"github.com/imyousuf/bizgraph/internal/ingest"
)

const (
	// ProjectDirName is the per-project state directory.
	ProjectDirName = ".bizgraph"
	// ProjectConfigFile is the configuration file inside ProjectDirName.
	ProjectConfigFile = "config.yaml"
	// ProjectConfFile is the shareable project file at the project root.
	ProjectConfFile = ".bizgraph.conf"
	// DefaultDBDir is the embedded store directory inside ProjectDirName.
	DefaultDBDir = "graph.db"
	// DefaultPresetsFile holds filter presets inside ProjectDirName.
	DefaultPresetsFile = "presets.toml"
	// DefaultHistoryFile holds the import history inside ProjectDirName.
	DefaultHistoryFile = "imports.json"
	// EnvPrefix prefixes environment overrides, e.g. BIZGRAPH_GRAPH_NEO4J_PASSWORD.
	EnvPrefix = "BIZGRAPH"
)

// Config holds all configuration for bizgraph.
type Config struct {
	// Project contains project metadata.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Workspace is the default workspace inside the store.
	Workspace string `mapstructure:"workspace" yaml:"workspace"`
	// Graph contains graph storage configuration.
	Graph GraphConfig `mapstructure:"graph" yaml:"graph"`
	// Import contains ingestion configuration.
	Import ImportConfig `mapstructure:"import" yaml:"import"`
	// Filter is the filter configuration applied when none is given.
	Filter filter.Config `mapstructure:"filter" yaml:"filter"`
	// Server contains HTTP server configuration.
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	// Log contains logging configuration.
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// ConfigDir is the discovered project directory. Not persisted.
	ConfigDir string `mapstructure:"-" yaml:"-"`
}

// ProjectConfig holds project metadata.
type ProjectConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// GraphConfig holds graph storage configuration.
type GraphConfig struct {
	// DBPath overrides the embedded store location.
	DBPath string `mapstructure:"db_path" yaml:"db_path,omitempty"`
	// Neo4jURI enables `bizgraph sync` when set.
	Neo4jURI      string `mapstructure:"neo4j_uri" yaml:"neo4j_uri,omitempty"`
	Neo4jUser     string `mapstructure:"neo4j_user" yaml:"neo4j_user,omitempty"`
	Neo4jPassword string `mapstructure:"neo4j_password" yaml:"-"`
	Neo4jDatabase string `mapstructure:"neo4j_database" yaml:"neo4j_database,omitempty"`
}

// ImportConfig holds ingestion configuration.
type ImportConfig struct {
	// Mode is the default import mode (replace or merge).
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Inbox is the directory watched by `bizgraph watch`.
	Inbox string `mapstructure:"inbox" yaml:"inbox,omitempty"`
	// Exclude lists glob patterns ignored by the inbox watcher.
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	// PresetsFile overrides the filter preset file location.
	PresetsFile string `mapstructure:"presets_file" yaml:"presets_file,omitempty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Mode is dev or prod.
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
}

// Load loads configuration from file, .env, environment variables and defaults.
// The project directory is discovered by walking up from the working directory.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var configDir string
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
		configDir = filepath.Dir(configFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		configDir = DiscoverProjectDir(cwd)
		if configDir == "" {
			if entry, ok := LookupProject(cwd); ok {
				configDir = entry.ConfigDir
			}
		}
		if configDir != "" {
			v.SetConfigFile(filepath.Join(configDir, ProjectConfigFile))
		}
	}

	if configDir != "" {
		if err := loadDotEnv(filepath.Dir(configDir)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.ConfigDir = configDir
	return &cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := embedded.ValidateWorkspace(c.Workspace); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if _, err := ingest.ParseMode(c.Import.Mode); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server addr is required")
	}
	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("log mode must be 'dev' or 'prod', got %q", c.Log.Mode)
	}
	if c.Graph.Neo4jURI != "" && c.Graph.Neo4jUser == "" {
		return fmt.Errorf("neo4j_user is required when neo4j_uri is set")
	}
	return nil
}

// ResolveDBPath returns the embedded store path: the flag value if set, then
// graph.db_path, then graph.db inside the project directory.
func (c *Config) ResolveDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.Graph.DBPath != "" {
		return c.resolve(c.Graph.DBPath)
	}
	if c.ConfigDir != "" {
		return filepath.Join(c.ConfigDir, DefaultDBDir)
	}
	return ""
}

// PresetsPath returns the filter preset file location, or "" without a project.
func (c *Config) PresetsPath() string {
	if c.Import.PresetsFile != "" {
		return c.resolve(c.Import.PresetsFile)
	}
	if c.ConfigDir != "" {
		return filepath.Join(c.ConfigDir, DefaultPresetsFile)
	}
	return ""
}

// HistoryPath returns the import history file location, or "" without a project.
func (c *Config) HistoryPath() string {
	if c.ConfigDir == "" {
		return ""
	}
	return filepath.Join(c.ConfigDir, DefaultHistoryFile)
}

// InboxPath returns the watched inbox directory, relative paths resolved
// against the project root.
func (c *Config) InboxPath() string {
	if c.Import.Inbox == "" {
		return ""
	}
	return c.resolve(c.Import.Inbox)
}

// resolve anchors a relative path at the project root (the parent of ConfigDir).
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.ConfigDir == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.ConfigDir), p)
}

// DiscoverProjectDir walks up from start looking for a ProjectDirName
// directory and returns its path, or "" when none exists.
func DiscoverProjectDir(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		dir = start
	}
	for {
		candidate := filepath.Join(dir, ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ProjectConf is the shareable project file committed next to the data.
type ProjectConf struct {
	// ExportFile is the JSON-lines graph export, relative to the project root.
	ExportFile string `yaml:"export_file"`
}

// DiscoverProjectConf walks up from start looking for ProjectConfFile.
// Returns a nil conf (no error) when none exists.
func DiscoverProjectConf(start string) (string, *ProjectConf, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		dir = start
	}
	for {
		candidate := filepath.Join(dir, ProjectConfFile)
		data, err := os.ReadFile(candidate)
		if err == nil {
			var conf ProjectConf
			if err := yaml.Unmarshal(data, &conf); err != nil {
				return candidate, nil, fmt.Errorf("parse %s: %w", candidate, err)
			}
			return candidate, &conf, nil
		}
		if !os.IsNotExist(err) {
			return candidate, nil, fmt.Errorf("read %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// ExportFilePath returns the absolute export file path, or "" when unset.
func ExportFilePath(projectRoot string, conf *ProjectConf) string {
	if conf == nil || conf.ExportFile == "" {
		return ""
	}
	if filepath.IsAbs(conf.ExportFile) {
		return conf.ExportFile
	}
	return filepath.Join(projectRoot, conf.ExportFile)
}

// loadDotEnv loads root/.env into the process environment without
// overriding variables that are already set.
func loadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")
	v.SetDefault("workspace", embedded.DefaultWorkspace)

	v.SetDefault("graph.db_path", "")
	v.SetDefault("graph.neo4j_uri", "")
	v.SetDefault("graph.neo4j_user", "neo4j")
	v.SetDefault("graph.neo4j_password", "")
	v.SetDefault("graph.neo4j_database", "")

	v.SetDefault("import.mode", string(ingest.ModeReplace))
	v.SetDefault("import.inbox", "")
	v.SetDefault("import.exclude", []string{"~$*", ".~lock.*", "*.tmp", "*.part"})
	v.SetDefault("import.presets_file", "")

	def := filter.DefaultConfig()
	v.SetDefault("filter.show_ownership", def.ShowOwnership)
	v.SetDefault("filter.show_management", def.ShowManagement)
	v.SetDefault("filter.show_location", def.ShowLocation)
	v.SetDefault("filter.show_debts", def.ShowDebts)
	v.SetDefault("filter.risk_score_min", def.RiskScoreMin)
	v.SetDefault("filter.risk_score_max", def.RiskScoreMax)
	v.SetDefault("filter.countries", def.Countries)

	v.SetDefault("server.addr", "127.0.0.1:8080")

	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
}
