package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client start and end study sessions, complete
mindfulness sessions, and chat with the study assistant. Configure with:

  {
    "mcpServers": {
      "alden": { "command": "alden", "args": ["mcp"] }
    }
  }

Available tools: alden_status, alden_start_session, alden_end_session,
alden_list_sessions, alden_list_mindful, alden_complete_mindful,
alden_list_conversations, alden_send_message`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		return mcp.NewServer(a, buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
