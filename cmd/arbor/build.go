package main

import (
	"context"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write the storage form of every document to the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts cli.BuildOptions
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.Inline, _ = cmd.Flags().GetBool("inline")
		opts.StripDebug, _ = cmd.Flags().GetBool("strip-debug")
		opts.CheckArgs, _ = cmd.Flags().GetBool("check-args")
		opts.Match, _ = cmd.Flags().GetString("match")
		opts.Redact, _ = cmd.Flags().GetStringSlice("redact")

		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			_, err := cli.RunBuild(ctx, p, opts, os.Stdout)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "Output directory (defaults to build.output)")
	buildCmd.Flags().Bool("inline", false, "Inline transcluded subtrees")
	buildCmd.Flags().Bool("strip-debug", false, "Clear the debug flag of every node")
	buildCmd.Flags().Bool("check-args", false, "Fail documents whose arguments do not match the catalog")
	buildCmd.Flags().String("match", "", "Only build documents matching this glob (** crosses directories)")
	buildCmd.Flags().StringSlice("redact", nil, "Mask arguments whose names match these patterns")
}
