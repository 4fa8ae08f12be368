package filter

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const presetTOML = `
[presets.investigation]
show_location = false
risk_score_min = 4.5
countries = ["SK", "CZ"]

[presets.everything]
`

func TestParsePresets(t *testing.T) {
	presets, err := ParsePresets([]byte(presetTOML))
	if err != nil {
		t.Fatalf("ParsePresets: %v", err)
	}
	if !reflect.DeepEqual(presets.Names(), []string{"everything", "investigation"}) {
		t.Errorf("Names = %v", presets.Names())
	}

	inv, err := presets.Get("investigation")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := DefaultConfig()
	want.ShowLocation = false
	want.RiskScoreMin = 4.5
	want.Countries = []string{"SK", "CZ"}
	if !reflect.DeepEqual(inv, want) {
		t.Errorf("investigation = %+v, want %+v", inv, want)
	}

	if got := presets["everything"]; !reflect.DeepEqual(got, DefaultConfig()) {
		t.Errorf("empty preset = %+v, want defaults", got)
	}
	if _, err := presets.Get("missing"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestParsePresetsErrors(t *testing.T) {
	for name, input := range map[string]string{
		"syntax":          "[presets.x\nshow_debts = true",
		"inverted window": "[presets.x]\nrisk_score_min = 9\nrisk_score_max = 1\n",
		"wrong type":      "[presets.x]\nshow_debts = \"yes\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePresets([]byte(input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadPresetsMergesBuiltins(t *testing.T) {
	dir := t.TempDir()

	presets, err := LoadPresets(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadPresets missing file: %v", err)
	}
	if !reflect.DeepEqual(presets.Names(), BuiltinPresets().Names()) {
		t.Errorf("Names = %v, want built-ins", presets.Names())
	}

	path := filepath.Join(dir, "presets.toml")
	if err := os.WriteFile(path, []byte("[presets.all]\nshow_debts = false\n"+presetTOML), 0644); err != nil {
		t.Fatal(err)
	}
	presets, err = LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if presets["all"].ShowDebts {
		t.Error("file preset should override the built-in of the same name")
	}
	if _, ok := presets["high-risk"]; !ok {
		t.Error("built-in preset missing after load")
	}
	if _, ok := presets["investigation"]; !ok {
		t.Error("file preset missing after load")
	}
}

func TestPresetsSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "presets.toml")
	original := BuiltinPresets()
	if err := original.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := ParsePresets(data)
	if err != nil {
		t.Fatalf("ParsePresets: %v", err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Errorf("round trip mismatch:\n got: %+v\nwant: %+v", loaded, original)
	}
}

func TestBuiltinPresetsAreValid(t *testing.T) {
	for name, cfg := range BuiltinPresets() {
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
}
