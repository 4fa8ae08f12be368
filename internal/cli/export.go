package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/bizgraph/internal/config"
	"github.com/imyousuf/bizgraph/internal/graph"
	"github.com/imyousuf/bizgraph/internal/graph/embedded"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored graph",
		Long: `Export the workspace graph.

--format json writes a single {nodes, edges} document, the same shape
the JSON parser and 'bizgraph filter --input' accept. --format jsonl writes
one record per line and can be loaded back with 'bizgraph export restore'.

Without -o the graph goes to the export_file named in .bizgraph.conf,
or to stdout when no such file is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "jsonl" {
				return fmt.Errorf("unknown export format %q (want json or jsonl)", format)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if output == "" {
				output, err = defaultExportFile()
				if err != nil {
					return err
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
					return fmt.Errorf("create export dir: %w", err)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				bw := bufio.NewWriter(f)
				defer bw.Flush()
				w = bw
			}

			if err := exportGraph(cmd, store, format, w); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported workspace %q to %s\n", store.Workspace(), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "export format: json or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file ('-' for stdout)")

	cmd.AddCommand(newExportRestoreCmd())
	return cmd
}

func exportGraph(cmd *cobra.Command, store *embedded.WorkspaceStore, format string, w io.Writer) error {
	var exp graph.Exporter = store
	if format == "jsonl" {
		if err := exp.Export(cmd.Context(), w); err != nil {
			return fmt.Errorf("export graph: %w", err)
		}
		return nil
	}
	frag, err := store.LoadGraph(cmd.Context())
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	return writeJSON(w, frag)
}

func newExportRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [FILE]",
		Short: "Replace the workspace graph with a JSON-lines export",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else if path, err = defaultExportFile(); err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("no file given and no export_file in %s", config.ProjectConfFile)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open export file: %w", err)
			}
			defer f.Close()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var imp graph.Importer = store
			if err := imp.Import(cmd.Context(), f); err != nil {
				return fmt.Errorf("restore graph: %w", err)
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored workspace %q: %d nodes, %d edges\n",
				store.Workspace(), stats.NodeCount, stats.EdgeCount)
			return nil
		},
	}
}

// defaultExportFile resolves export_file from the nearest .bizgraph.conf.
func defaultExportFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	confPath, conf, err := config.DiscoverProjectConf(cwd)
	if err != nil {
		return "", err
	}
	if conf == nil {
		return "", nil
	}
	return config.ExportFilePath(filepath.Dir(confPath), conf), nil
}
