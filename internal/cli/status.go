package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/metrics"
)

func newStatusCmd() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show graph stats and recent imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			frag, err := store.LoadGraph(ctx)
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}
			quality := metrics.NewCompositeCalculator().Calculate(frag)

			out := cmd.OutOrStdout()

			fmt.Fprintln(out, headerStyle.Render("Graph Status"))
			fmt.Fprintln(out, headerStyle.Render("============"))
			fmt.Fprintln(out)
			printKV(out, "Workspace", store.Workspace())
			printKV(out, "Total nodes", fmt.Sprint(stats.NodeCount))
			printKV(out, "Total edges", fmt.Sprint(stats.EdgeCount))
			fmt.Fprintln(out)

			if len(stats.NodesByType) > 0 {
				printSection(out, "Nodes by type")
				for _, nt := range sortedNodeTypes(stats.NodesByType) {
					fmt.Fprintf(out, "    %-20s %d\n", nt, stats.NodesByType[nt])
				}
				fmt.Fprintln(out)
			}

			if len(stats.EdgesByType) > 0 {
				printSection(out, "Edges by type")
				for _, et := range sortedEdgeTypes(stats.EdgesByType) {
					fmt.Fprintf(out, "    %-20s %d\n", et, stats.EdgesByType[et])
				}
				fmt.Fprintln(out)
			}

			if stats.NodeCount > 0 {
				printSection(out, "Quality")
				printKV(out, "High risk", fmt.Sprintf("%.0f", quality[metrics.HighRiskNodes]))
				printKV(out, "Mean risk", fmt.Sprintf("%.2f", quality[metrics.MeanRisk]))
				printKV(out, "Virtual seats", fmt.Sprintf("%.0f", quality[metrics.VirtualSeats]))
				printKV(out, "Isolated nodes", fmt.Sprintf("%.0f", quality[metrics.IsolatedNodes]))
				printKV(out, "Dangling edges", fmt.Sprintf("%.0f", quality[metrics.DanglingEdges]))
				printKV(out, "Missing ICO", fmt.Sprintf("%.0f", quality[metrics.MissingICO]))
				fmt.Fprintln(out)
			}

			history, _, err := openHistory(cfg)
			if err != nil {
				return err
			}
			reports := history.Recent(store.Workspace(), recent)
			if len(reports) > 0 {
				printSection(out, "Recent imports")
				for _, r := range reports {
					fmt.Fprintf(out, "    %s  ", r.Time.Local().Format("2006-01-02 15:04"))
					printReport(out, r)
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&recent, "recent", "n", 5, "number of recent imports to show")

	return cmd
}

func sortedNodeTypes(m map[graph.NodeType]int64) []graph.NodeType {
	keys := make([]graph.NodeType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedEdgeTypes(m map[graph.EdgeType]int64) []graph.EdgeType {
	keys := make([]graph.EdgeType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
