package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss <task-key>",
	Short: "Hide a task for this session",
	Long:  "Dismissal is session-scoped: the task comes back in a new session as long as the underlying condition still holds.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if session == "" {
			fatalf("--session (or $OPS_SESSION) is required to dismiss tasks")
		}
		if err := newClient().Dismiss(cmd.Context(), args[0]); err != nil {
			fatalf("dismiss: %v", err)
		}
		fmt.Printf("Dismissed %s for session %s\n", args[0], session)
	},
}

func init() {
	rootCmd.AddCommand(dismissCmd)
}
