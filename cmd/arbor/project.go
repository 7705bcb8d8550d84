package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an arbor project in --dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		var opts cli.InitOptions
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Example, _ = cmd.Flags().GetBool("example")
		return cli.RunInit(cmd.Context(), dir, opts, os.Stdout)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <document>",
	Short: "Render a document again whenever its subtrees or the catalog change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		opts := cli.WatchOptions{View: viewOptions(cmd), Interval: interval, Banner: true}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		p, err := cli.OpenProject(sigCtx, options(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = p.Close(context.Background()) }()
		return cli.RunWatch(sigCtx, p, args[0], opts, os.Stdout)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of arbor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arbor version %s\n", strings.TrimSpace(arbor.Version))
	},
}

func init() {
	rootCmd.AddCommand(initCmd, watchCmd, versionCmd)
	initCmd.Flags().String("format", "yaml", "Config file format: yaml, json or toml")
	initCmd.Flags().Bool("example", false, "Seed example documents")

	addViewFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "How often to check transcluded documents (default 1s)")
}
