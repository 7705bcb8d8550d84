package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <document>",
	Short: "Print a document as an outline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := viewOptions(cmd)
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			return cli.RunTree(ctx, p, args[0], opts, os.Stdout)
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <document>",
	Short: "Export a document as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := viewOptions(cmd)
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			return cli.RunGraph(ctx, p, args[0], opts, os.Stdout)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [document...]",
	Short: "Check documents against the node catalog",
	Long:  `Binds every document (or the given ones) to the catalog and reports unknown nodes, arity mismatches, bad arguments and unresolved subtrees.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			n, err := cli.RunValidate(ctx, p, args, os.Stdout)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%d problem(s) found", n)
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <document> <text>",
	Short: "List the nodes matching a text or id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		byID, _ := cmd.Flags().GetBool("id")
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			n, err := cli.RunSearch(ctx, p, args[0], cli.ViewOptions{Search: args[1], ByID: byID}, os.Stdout)
			if err == nil && n == 0 {
				return fmt.Errorf("no match for %q", args[1])
			}
			return err
		})
	},
}

var varsCmd = &cobra.Command{
	Use:   "vars <document> [name...]",
	Short: "List the variables of a document, or the nodes using the named ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			return cli.RunVars(ctx, p, args[0], args[1:], os.Stdout)
		})
	},
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("search", "s", "", "Highlight the nodes matching this text")
	cmd.Flags().Bool("id", false, "Match --search against node ids")
	cmd.Flags().StringSlice("vars", nil, "Highlight the nodes reading or writing these variables")
	cmd.Flags().Bool("inline", false, "Render transcluded content as local nodes")
}

func viewOptions(cmd *cobra.Command) cli.ViewOptions {
	var opts cli.ViewOptions
	opts.Search, _ = cmd.Flags().GetString("search")
	opts.ByID, _ = cmd.Flags().GetBool("id")
	opts.Vars, _ = cmd.Flags().GetStringSlice("vars")
	opts.Inline, _ = cmd.Flags().GetBool("inline")
	if cmd.Flags().Lookup("args") != nil {
		opts.Args, _ = cmd.Flags().GetBool("args")
		opts.Describe, _ = cmd.Flags().GetBool("describe")
		opts.JSON, _ = cmd.Flags().GetBool("json")
	}
	return opts
}

func init() {
	addViewFlags(treeCmd)
	treeCmd.Flags().Bool("args", false, "Show node arguments and variable slots")
	treeCmd.Flags().Bool("describe", false, "Render the document description as markdown")
	treeCmd.Flags().Bool("json", false, "Print the expanded tree as JSON")
	addViewFlags(graphCmd)
	searchCmd.Flags().Bool("id", false, "Match node ids instead of text")

	rootCmd.AddCommand(treeCmd, graphCmd, validateCmd, searchCmd, varsCmd)
}
