package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wrapshop-ops/api-go/internal/apiclient"
	"github.com/example/wrapshop-ops/api-go/internal/model"
	"github.com/example/wrapshop-ops/api-go/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show the prioritized task queue",
	Long:  "Derives the current worklist and prints it grouped by urgency. Work top to bottom.",
	Run: func(cmd *cobra.Command, args []string) {
		role, _ := cmd.Flags().GetString("role")
		assignee, _ := cmd.Flags().GetString("assignee")

		list, err := newClient().Tasks(cmd.Context(), role, assignee)
		if err != nil {
			fatalf("fetch tasks: %v", err)
		}
		if len(list) == 0 {
			fmt.Println(ui.OKStyle.Render("All clear!") + " No open tasks right now.")
			return
		}

		fmt.Println(ui.SectionStyle.Render("Task Queue") + ui.MutedStyle.Render("  ordered by priority"))
		fmt.Println(ui.MutedStyle.Render(ui.Separator))

		if role != "" || assignee != "" {
			first := list[0]
			fmt.Println(ui.AccentStyle.Render("Do this first: ") + first.Title)
			if first.Subtitle != "" {
				fmt.Println("  " + ui.MutedStyle.Render(first.Subtitle))
			}
			fmt.Println()
		}

		printGroup(list, model.UrgencyUrgent, "Urgent")
		printGroup(list, model.UrgencyToday, "Today")
		printGroup(list, model.UrgencyNormal, "Upcoming")
	},
}

func printGroup(list []apiclient.Task, tier model.Urgency, label string) {
	var group []apiclient.Task
	for _, t := range list {
		if t.Urgency == tier {
			group = append(group, t)
		}
	}
	if len(group) == 0 {
		return
	}
	fmt.Println(ui.UrgencyStyle(tier).Render(fmt.Sprintf("%s (%d)", label, len(group))))
	for i, t := range group {
		badge := ui.UrgencyBadge(t.Urgency)
		line := fmt.Sprintf("  %d. %s", i+1, t.Title)
		if badge != "" {
			line += " " + badge
		}
		fmt.Println(line)
		detail := string(t.Role)
		if t.Assignee.Name != "" {
			detail = t.Assignee.Name + " · " + detail
		}
		if t.Subtitle != "" {
			detail = t.Subtitle + " · " + detail
		}
		fmt.Println("     " + ui.MutedStyle.Render(detail))
		fmt.Println("     " + ui.MutedStyle.Render("key: "+t.Key))
	}
	fmt.Println()
}

func init() {
	tasksCmd.Flags().String("role", "", "filter by role (sales, production, installer)")
	tasksCmd.Flags().String("assignee", "", "filter by assignee person id")
	rootCmd.AddCommand(tasksCmd)
}
