package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flashtoggle/flashtoggle/internal/logging"
	"github.com/flashtoggle/flashtoggle/internal/mcp"
)

func init() {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol integration",
	}
	mcpCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdio. Designed to be invoked by MCP clients;
every tool call is forwarded to the running flashtoggle daemon.

Example:
  claude mcp add flashtoggle -- flashtoggle mcp serve`,
		Args: cobra.NoArgs,
		RunE: runMCPServe,
	})
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	cfg := configOrDefaults()

	// stdout carries the protocol, so logs only ever go to stderr or the file.
	logger, closer, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(newClient(), logging.Module(logger, "mcp"))
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
