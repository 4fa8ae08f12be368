package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/filter"
	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/metrics"
)

func newFilterCmd() *cobra.Command {
	var (
		preset     string
		focus      string
		input      string
		ownership  bool
		management bool
		location   bool
		debts      bool
		riskMin    float64
		riskMax    float64
		countries  []string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the visible subgraph for a filter",
		Long: `Compute the visible subgraph and print it as JSON.

The filter starts from the configured default (or --preset) and is then
adjusted by any toggle flags given explicitly. The graph is read from the
workspace store, or from a {nodes, edges} JSON document with --input.
With --focus the focused node stays visible even when filters would hide it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fc := cfg.Filter
			if preset != "" {
				presets, err := loadPresets(cfg)
				if err != nil {
					return err
				}
				if fc, err = presets.Get(preset); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("ownership") {
				fc.ShowOwnership = ownership
			}
			if flags.Changed("management") {
				fc.ShowManagement = management
			}
			if flags.Changed("location") {
				fc.ShowLocation = location
			}
			if flags.Changed("debts") {
				fc.ShowDebts = debts
			}
			if flags.Changed("risk-min") {
				fc.RiskScoreMin = riskMin
			}
			if flags.Changed("risk-max") {
				fc.RiskScoreMax = riskMax
			}
			if flags.Changed("countries") {
				fc.Countries = normalizeCountries(countries)
			}

			full, err := loadFullGraph(cmd.Context(), cfg, input)
			if err != nil {
				return err
			}

			timer := prometheus.NewTimer(metrics.FilterDuration)
			visible := filter.ComputeVisibleSubgraph(full, fc, focus)
			timer.ObserveDuration()

			return writeJSON(cmd.OutOrStdout(), visible)
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", "", "start from a named filter preset")
	cmd.Flags().StringVarP(&focus, "focus", "f", "", "node ID that stays visible regardless of filters")
	cmd.Flags().StringVarP(&input, "input", "i", "", "read the graph from a JSON file instead of the store")
	cmd.Flags().BoolVar(&ownership, "ownership", true, "show OWNED_BY edges")
	cmd.Flags().BoolVar(&management, "management", true, "show MANAGED_BY edges")
	cmd.Flags().BoolVar(&location, "location", true, "show LOCATED_AT edges")
	cmd.Flags().BoolVar(&debts, "debts", true, "show HAS_DEBT edges")
	cmd.Flags().Float64Var(&riskMin, "risk-min", filter.MinRiskScore, "minimum risk score")
	cmd.Flags().Float64Var(&riskMax, "risk-max", filter.MaxRiskScore, "maximum risk score")
	cmd.Flags().StringSliceVar(&countries, "countries", nil, "allowed country codes, e.g. SK,CZ")

	cmd.AddCommand(newFilterPresetsCmd())
	return cmd
}

func newFilterPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available filter presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			presets, err := loadPresets(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range presets.Names() {
				printSection(out, name)
				printFilter(out, presets[name])
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func loadPresets(cfg *config.Config) (filter.Presets, error) {
	path := cfg.PresetsPath()
	if path == "" {
		return filter.BuiltinPresets(), nil
	}
	return filter.LoadPresets(path)
}

// loadFullGraph reads the graph from a JSON fragment file, or from the
// workspace store when path is empty.
func loadFullGraph(ctx context.Context, cfg *config.Config, path string) (*graph.Fragment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read graph file: %w", err)
		}
		frag := graph.NewFragment()
		if err := json.Unmarshal(data, frag); err != nil {
			return nil, fmt.Errorf("decode graph file %s: %w", path, err)
		}
		return frag, nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadGraph(ctx)
}

func normalizeCountries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}
