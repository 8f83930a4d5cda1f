package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wrapshop-ops/api-go/internal/ui"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <job-id>",
	Short: "Move a job to the next pipeline stage",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		job, err := newClient().Advance(cmd.Context(), args[0])
		if err != nil {
			fatalf("advance: %v", err)
		}
		fmt.Printf("%s advanced to %s\n", job.Title, ui.AccentStyle.Render(string(job.PipeStage)))
	},
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}
