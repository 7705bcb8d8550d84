package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor edits behavior-tree documents",
	Long: `Arbor opens behavior-tree documents, expands the subtrees they transclude,
validates them against a node catalog and edits them with undo/redo.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the arbor project")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write JSON log records to stderr")
}

func options(cmd *cobra.Command) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	debug, _ := cmd.Flags().GetBool("debug")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	return cli.Options{Dir: dir, Debug: debug, LogJSON: logJSON}
}

// withProject opens the project named by the persistent flags, runs fn and
// closes the project.
func withProject(cmd *cobra.Command, fn func(ctx context.Context, p *cli.Project) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := cli.OpenProject(ctx, options(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(context.Background()); err != nil {
			p.Logger.Warn("Project close failed", "err", err)
		}
	}()
	return fn(ctx, p)
}
