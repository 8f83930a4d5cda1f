package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wrapshop-ops/api-go/internal/ui"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs in the pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		stage, _ := cmd.Flags().GetString("stage")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := newClient().Jobs(cmd.Context(), status, stage, limit)
		if err != nil {
			fatalf("fetch jobs: %v", err)
		}
		if len(jobs) == 0 {
			fmt.Println(ui.MutedStyle.Render("No jobs match."))
			return
		}

		for _, job := range jobs {
			fmt.Printf("%s  %s\n", ui.AccentStyle.Render(job.ID), job.Title)
			line := fmt.Sprintf("%s / %s", job.Status, job.PipeStage)
			if job.InstallDate != "" {
				line += " · install " + job.InstallDate
			}
			if job.Agent.Name != "" {
				line += " · agent " + job.Agent.Name
			}
			fmt.Println("  " + ui.MutedStyle.Render(line))
		}
	},
}

func init() {
	jobsCmd.Flags().String("status", "", "filter by status (estimate, active, closed, cancelled)")
	jobsCmd.Flags().String("stage", "", "filter by pipe stage")
	jobsCmd.Flags().Int("limit", 50, "maximum jobs to list")
	rootCmd.AddCommand(jobsCmd)
}
