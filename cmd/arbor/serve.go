package main

import (
	"log"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP editing server",
	Long:  `Exposes the workspace as a JSON API over HTTP, with server-sent document events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sOpts cli.ServeOptions
		sOpts.Addr, _ = cmd.Flags().GetString("addr")
		sOpts.Poll, _ = cmd.Flags().GetDuration("poll")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		return cli.RunServe(sigCtx, options(cmd), sOpts, os.Stdout)
	},
}

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts arbor as an MCP Server so AI agents can read, search and validate documents.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		return cli.RunMCP(sigCtx, options(cmd), transport, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (defaults to server.addr)")
	serveCmd.Flags().Duration("poll", 0, "Reload documents whose subtrees changed at this interval")

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
