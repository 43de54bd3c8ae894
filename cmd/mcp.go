package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/segnala/segnala/internal/mcp"
	"github.com/segnala/segnala/internal/workflow"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for AI agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP-capable agent report issues, inspect them, and initiate
solution workflows. Configure the client with:

  {
    "mcpServers": {
      "segnala": { "command": "segnala", "args": ["mcp"] }
    }
  }

Available tools: segnala_list_issues, segnala_report_issue,
segnala_issue_show, segnala_initiate_solution`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		gen, err := newGenerator()
		if err != nil {
			return err
		}

		runner := workflow.NewRunner(s, gen, viper.GetDuration("workflow.step_delay"), slog.Default())
		srv := mcp.NewServer(s, runner)
		if err := srv.ServeStdio(cmd.Context()); err != nil {
			return err
		}

		// Stdio transport closed: let spawned workflows finish before the
		// store goes away.
		runner.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
