package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wrapshop-ops/api-go/internal/ui"
)

var sendBackCmd = &cobra.Command{
	Use:   "send-back <job-id>",
	Short: "Send a job back to an earlier stage with a reason",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		toStage, _ := cmd.Flags().GetString("to")
		reason, _ := cmd.Flags().GetString("reason")
		if toStage == "" {
			fatalf("--to is required")
		}
		if reason == "" {
			fatalf("--reason is required")
		}

		ev, err := newClient().SendBack(cmd.Context(), args[0], toStage, reason)
		if err != nil {
			fatalf("send back: %v", err)
		}
		fmt.Printf("Sent back %s -> %s\n", ev.FromStage, ui.UrgentStyle.Render(string(ev.ToStage)))
		fmt.Println("  " + ui.MutedStyle.Render("reason: "+ev.Reason))
	},
}

func init() {
	sendBackCmd.Flags().String("to", "", "target stage (must be earlier than the current stage)")
	sendBackCmd.Flags().String("reason", "", "why the job is going back")
	rootCmd.AddCommand(sendBackCmd)
}
