package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Presets maps preset names to filter configurations.
type Presets map[string]Config

// presetEntry mirrors Config with optional fields so a preset file only
// needs to name what differs from DefaultConfig.
type presetEntry struct {
	ShowOwnership  *bool    `toml:"show_ownership"`
	ShowManagement *bool    `toml:"show_management"`
	ShowLocation   *bool    `toml:"show_location"`
	ShowDebts      *bool    `toml:"show_debts"`
	RiskScoreMin   *float64 `toml:"risk_score_min"`
	RiskScoreMax   *float64 `toml:"risk_score_max"`
	Countries      []string `toml:"countries"`
}

type presetFile struct {
	Presets map[string]presetEntry `toml:"presets"`
}

type encodedPresets struct {
	Presets map[string]Config `toml:"presets"`
}

// BuiltinPresets returns the presets available without a preset file.
func BuiltinPresets() Presets {
	ownership := DefaultConfig()
	ownership.ShowManagement = false
	ownership.ShowLocation = false
	ownership.ShowDebts = false

	risky := DefaultConfig()
	risky.RiskScoreMin = 7

	debts := DefaultConfig()
	debts.ShowOwnership = false
	debts.ShowManagement = false
	debts.ShowLocation = false

	return Presets{
		"all":       DefaultConfig(),
		"ownership": ownership,
		"high-risk": risky,
		"debts":     debts,
	}
}

// ParsePresets decodes a TOML preset document. Missing fields take their
// DefaultConfig value.
func ParsePresets(data []byte) (Presets, error) {
	var doc presetFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	out := make(Presets, len(doc.Presets))
	for name, e := range doc.Presets {
		cfg := DefaultConfig()
		setBool(&cfg.ShowOwnership, e.ShowOwnership)
		setBool(&cfg.ShowManagement, e.ShowManagement)
		setBool(&cfg.ShowLocation, e.ShowLocation)
		setBool(&cfg.ShowDebts, e.ShowDebts)
		if e.RiskScoreMin != nil {
			cfg.RiskScoreMin = *e.RiskScoreMin
		}
		if e.RiskScoreMax != nil {
			cfg.RiskScoreMax = *e.RiskScoreMax
		}
		if e.Countries != nil {
			cfg.Countries = e.Countries
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		out[name] = cfg
	}
	return out, nil
}

// LoadPresets reads the preset file at path merged over the built-in presets.
// A missing file yields the built-in presets.
func LoadPresets(path string) (Presets, error) {
	presets := BuiltinPresets()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return presets, nil
		}
		return nil, fmt.Errorf("failed to read preset file '%s': %w", path, err)
	}
	loaded, err := ParsePresets(data)
	if err != nil {
		return nil, err
	}
	for name, cfg := range loaded {
		presets[name] = cfg
	}
	return presets, nil
}

// Save writes the presets to path as TOML.
func (p Presets) Save(path string) error {
	data, err := toml.Marshal(encodedPresets{Presets: p})
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create preset dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named preset.
func (p Presets) Get(name string) (Config, error) {
	cfg, ok := p[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown filter preset %q", name)
	}
	return cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
