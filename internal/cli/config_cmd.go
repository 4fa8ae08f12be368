package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/filter"
	"github.com/imyousuf/bizgraph/internal/graph"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit project configuration",
		Long: `View or edit bizgraph project configuration.

By default, displays the current configuration in a pretty-printed format.
Use 'config edit' to edit configuration interactively.`,
		RunE: runConfigView,
	}

	cmd.AddCommand(newConfigEditCmd())

	return cmd
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	fmt.Fprintln(out, headerStyle.Render("bizgraph Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 22)))
	fmt.Fprintln(out)

	printSection(out, "Project")
	printKV(out, "Name", cfg.Project.Name)
	printKV(out, "Workspace", cfg.Workspace)
	if cfg.ConfigDir != "" {
		printKV(out, "Config dir", cfg.ConfigDir)
	}
	fmt.Fprintln(out)

	printSection(out, "Graph Storage")
	if p := cfg.ResolveDBPath(dbPath); p != "" {
		printKV(out, "DB Path", p)
	}
	if cfg.Graph.Neo4jURI != "" {
		printKV(out, "Neo4j URI", cfg.Graph.Neo4jURI)
		printKV(out, "Neo4j user", cfg.Graph.Neo4jUser)
		printKV(out, "Neo4j password", boolYesNo(cfg.Graph.Neo4jPassword != ""))
	} else {
		printKV(out, "Neo4j", "(not configured)")
	}
	fmt.Fprintln(out)

	printSection(out, "Import")
	printKV(out, "Mode", cfg.Import.Mode)
	if p := cfg.InboxPath(); p != "" {
		printKV(out, "Inbox", p)
	}
	if p := cfg.PresetsPath(); p != "" {
		printKV(out, "Presets", p)
	}
	for _, pattern := range cfg.Import.Exclude {
		fmt.Fprintf(out, "    %s\n", pattern)
	}
	fmt.Fprintln(out)

	printSection(out, "Default Filter")
	printFilter(out, cfg.Filter)
	fmt.Fprintln(out)

	printSection(out, "Server")
	printKV(out, "Address", cfg.Server.Addr)
	if len(cfg.Server.CORSOrigins) > 0 {
		printKV(out, "CORS origins", strings.Join(cfg.Server.CORSOrigins, ", "))
	}
	printKV(out, "Log", cfg.Log.Mode+" / "+cfg.Log.Level)
	fmt.Fprintln(out)

	return nil
}

func printFilter(out io.Writer, f filter.Config) {
	printKV(out, "Ownership", boolYesNo(f.ShowOwnership))
	printKV(out, "Management", boolYesNo(f.ShowManagement))
	printKV(out, "Location", boolYesNo(f.ShowLocation))
	printKV(out, "Debts", boolYesNo(f.ShowDebts))
	printKV(out, "Risk score", fmt.Sprintf("%g - %g", f.RiskScoreMin, f.RiskScoreMax))
	countries := strings.Join(f.Countries, ", ")
	if countries == "" {
		countries = "(none)"
	}
	printKV(out, "Countries", countries)
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit project configuration interactively",
		Long:  `Edit bizgraph project configuration, including the default filter, using an interactive form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigEdit(cmd)
		},
	}
}

func runConfigEdit(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ConfigDir == "" {
		return fmt.Errorf("no project config found; run 'bizgraph init' first")
	}

	out := cmd.OutOrStdout()

	projectName := cfg.Project.Name
	importMode := cfg.Import.Mode
	inbox := cfg.Import.Inbox
	f := cfg.Filter
	riskMin := strconv.FormatFloat(f.RiskScoreMin, 'g', -1, 64)
	riskMax := strconv.FormatFloat(f.RiskScoreMax, 'g', -1, 64)
	countries := append([]string(nil), f.Countries...)
	var confirm bool

	selected := make(map[string]bool, len(countries))
	for _, c := range countries {
		selected[c] = true
	}
	countryOptions := make([]huh.Option[string], len(graph.Countries))
	for i, c := range graph.Countries {
		countryOptions[i] = huh.NewOption(c, c).Selected(selected[c])
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&projectName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Default import mode").
				Options(
					huh.NewOption("Replace the stored graph", "replace"),
					huh.NewOption("Merge into the stored graph", "merge"),
				).
				Value(&importMode),
			huh.NewInput().
				Title("Inbox directory").
				Description("Watched by 'bizgraph watch'; leave empty to disable").
				Value(&inbox),
		).Title("Project Setup"),

		huh.NewGroup(
			huh.NewConfirm().Title("Show ownership edges?").Value(&f.ShowOwnership),
			huh.NewConfirm().Title("Show management edges?").Value(&f.ShowManagement),
			huh.NewConfirm().Title("Show location edges?").Value(&f.ShowLocation),
			huh.NewConfirm().Title("Show debt edges?").Value(&f.ShowDebts),
		).Title("Default Filter"),

		huh.NewGroup(
			huh.NewInput().Title("Minimum risk score").Value(&riskMin).Validate(validateRisk),
			huh.NewInput().Title("Maximum risk score").Value(&riskMax).Validate(validateRisk),
			huh.NewMultiSelect[string]().
				Title("Countries").
				Options(countryOptions...).
				Value(&countries),
		).Title("Risk and Countries"),

		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					return fmt.Sprintf(
						"Project:     %s\n"+
							"Import:      %s\n"+
							"Risk:        %s - %s\n"+
							"Countries:   %s",
						projectName, importMode, riskMin, riskMax, strings.Join(countries, ", "),
					)
				}, &countries),
			huh.NewConfirm().
				Title("Save changes?").
				Value(&confirm).
				Affirmative("Save").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive config edit: %w", err)
	}
	if !confirm {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	f.RiskScoreMin, _ = strconv.ParseFloat(strings.TrimSpace(riskMin), 64)
	f.RiskScoreMax, _ = strconv.ParseFloat(strings.TrimSpace(riskMax), 64)
	f.Countries = countries
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	cfg.Project.Name = projectName
	cfg.Import.Mode = importMode
	cfg.Import.Inbox = strings.TrimSpace(inbox)
	cfg.Filter = f

	configPath := filepath.Join(cfg.ConfigDir, config.ProjectConfigFile)
	if err := config.WriteConfig(cfg, configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

func validateRisk(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v < filter.MinRiskScore || v > filter.MaxRiskScore {
		return fmt.Errorf("must be between %g and %g", filter.MinRiskScore, filter.MaxRiskScore)
	}
	return nil
}
