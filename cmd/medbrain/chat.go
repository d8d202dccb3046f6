package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the health assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			transcript, err := wizard.RunChat(a.client, a.cfg.Timeout)
			if err != nil {
				return err
			}
			a.logger.Debug().Int("messages", len(transcript)).Msg("chat ended")
			return nil
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the health assistant one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.TrimSpace(strings.Join(args, " "))
			if q == "" {
				return fmt.Errorf("question is empty")
			}

			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			// The fallback answer is still shown when the service fails
			answer, _ := a.client.AskOrFallback(cmd.Context(), q)
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.AddCommand(askCmd)
	return cmd
}
