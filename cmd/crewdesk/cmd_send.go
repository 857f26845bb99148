package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("agent", "", "agent id or name (defaults to the first agent)")
}

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send a one-off command to an agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		client := newClient()
		scope, _ := cmd.Flags().GetString("agent")
		agent, err := resolveAgent(cmd.Context(), client, scope)
		if err != nil {
			return err
		}

		result, err := client.SendMessage(cmd.Context(), agent.ID, strings.Join(args, " "), cfg.Backend.SenderID)
		if err != nil {
			return fmt.Errorf("send to %s: %w", agent.Name, err)
		}
		if result.Error != "" {
			return fmt.Errorf("%s: %s", agent.Name, result.Error)
		}
		if result.Response != "" {
			fmt.Println(result.Response)
		}
		return nil
	},
}
