package main

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <document>",
	Short: "Edit a document with line commands",
	Long: `Reads edit commands from --script, or from standard input, and applies
them to the document. On a terminal the session is interactive: type 'help'
for the list and 'q' to leave. Changes are saved when the session ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, _ := cmd.Flags().GetString("script")
		create, _ := cmd.Flags().GetBool("create")
		noSave, _ := cmd.Flags().GetBool("no-save")

		opts := cli.EditOptions{Create: create, Save: !noSave}
		if script == "" && tui.IsTerminal(os.Stdin) {
			return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
				return cli.RunEditInteractive(ctx, p, args[0], os.Stdout, opts)
			})
		}

		var in io.Reader = os.Stdin
		if script != "" {
			f, err := os.Open(script)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			return cli.RunEdit(ctx, p, args[0], in, os.Stdout, opts)
		})
	},
}

var newCmd = &cobra.Command{
	Use:   "new <document>",
	Short: "Create an empty document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		return withProject(cmd, func(ctx context.Context, p *cli.Project) error {
			return cli.RunNew(ctx, p, args[0], name, os.Stdout)
		})
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().String("name", "", "Document name (defaults to the file name)")

	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("script", "f", "", "File of commands to apply")
	editCmd.Flags().Bool("create", false, "Create the document when it does not exist")
	editCmd.Flags().Bool("no-save", false, "Discard the changes at the end")
}
