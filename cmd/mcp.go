package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/issuedash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents manage issues natively. Configure with:

  {
    "mcpServers": {
      "issuedash": { "command": "issuedash", "args": ["mcp"] }
    }
  }

Available tools: issuedash_list_issues, issuedash_create_issue,
issuedash_set_issue_status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		srv := mcp.NewServer(s, currentSession())
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
