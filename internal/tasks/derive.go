// Package tasks derives the prioritized worklist from a snapshot of
// jobs and the send-back ledger. Tasks are ephemeral: every call
// recomputes the full list from scratch, so the same snapshot always
// produces the same output in the same order.
package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/wrapshop-ops/api-go/internal/model"
	"github.com/example/wrapshop-ops/api-go/internal/pipeline"
)

const isoDate = "2006-01-02"

// estimateFollowupAge is how old an estimate must be before its
// follow-up escalates from normal to today.
const estimateFollowupAge = 72 * time.Hour

// Derive evaluates the task catalogue against every non-terminal job
// and returns the globally ordered worklist. It is a pure function of
// its inputs: no I/O, no mutation of jobs or events, and byte-identical
// output for identical (jobs, events, now).
func Derive(jobs []model.Job, events []model.RollbackEvent, now time.Time) []model.Task {
	today := now.Format(isoDate)
	latest := pipeline.LatestByJob(events)

	var out []model.Task
	for _, job := range jobs {
		if pipeline.Terminal(job) {
			continue
		}
		stage := pipeline.CurrentStage(job)
		rollback, sentBack := pipeline.ActiveRollback(job, latest)
		installDate, installSet := validInstallDate(job.InstallDate)

		// Sales tasks.
		if job.Agent.Assigned() {
			switch {
			case stage == model.StageSalesIn && sentBack:
				out = append(out, model.Task{
					Kind:     model.KindSendBackSales,
					Role:     model.RoleSales,
					Assignee: job.Agent,
					JobID:    job.ID,
					Title:    job.Title + " sent back, action required",
					Subtitle: reasonLine(rollback.Reason),
					Urgency:  model.UrgencyUrgent,
					RankDate: today,
				})
			case stage == model.StageSalesIn && !job.DepositReceived && !job.ContractSigned:
				out = append(out, model.Task{
					Kind:     model.KindSalesIntake,
					Role:     model.RoleSales,
					Assignee: job.Agent,
					JobID:    job.ID,
					Title:    "Complete sales intake: " + job.Title,
					Subtitle: job.VehicleDesc,
					Urgency:  model.UrgencyNormal,
					RankDate: today,
				})
			}

			if job.Status == model.StatusEstimate {
				urgency := model.UrgencyNormal
				if now.Sub(job.CreatedAt) >= estimateFollowupAge {
					urgency = model.UrgencyToday
				}
				out = append(out, model.Task{
					Kind:     model.KindEstimateFollowup,
					Role:     model.RoleSales,
					Assignee: job.Agent,
					JobID:    job.ID,
					Title:    "Follow up on estimate: " + job.Title,
					Subtitle: estimateLine(job),
					Urgency:  urgency,
					RankDate: today,
				})
			}

			if job.Status == model.StatusActive && !installSet {
				out = append(out, model.Task{
					Kind:     model.KindScheduleInstall,
					Role:     model.RoleSales,
					Assignee: job.Agent,
					JobID:    job.ID,
					Title:    "Schedule install date: " + job.Title,
					Subtitle: "No install date set on active order",
					Urgency:  model.UrgencyToday,
					RankDate: today,
				})
			}

			if stage == model.StageSalesClose {
				out = append(out, model.Task{
					Kind:     model.KindFinalSignoff,
					Role:     model.RoleSales,
					Assignee: job.Agent,
					JobID:    job.ID,
					Title:    "Final sign-off needed: " + job.Title,
					Subtitle: "All stages complete, awaiting your close",
					Urgency:  model.UrgencyToday,
					RankDate: today,
				})
			}
		}

		// Production tasks.
		if job.ProductionPerson.Assigned() {
			if stage == model.StageProduction {
				if sentBack {
					out = append(out, model.Task{
						Kind:     model.KindSendBackProduction,
						Role:     model.RoleProduction,
						Assignee: job.ProductionPerson,
						JobID:    job.ID,
						Title:    "Sent back to production: " + job.Title,
						Subtitle: reasonLine(rollback.Reason),
						Urgency:  model.UrgencyUrgent,
						RankDate: today,
					})
				} else {
					out = append(out, model.Task{
						Kind:     model.KindPrintQueue,
						Role:     model.RoleProduction,
						Assignee: job.ProductionPerson,
						JobID:    job.ID,
						Title:    "Print queue: " + job.Title,
						Subtitle: job.VehicleDesc,
						Urgency:  model.UrgencyUrgent,
						RankDate: today,
					})
				}
			}

			if stage == model.StageProdReview {
				out = append(out, model.Task{
					Kind:     model.KindQCReview,
					Role:     model.RoleProduction,
					Assignee: job.ProductionPerson,
					JobID:    job.ID,
					Title:    "QC review needed: " + job.Title,
					Subtitle: "Check wrap quality, log final material used",
					Urgency:  model.UrgencyToday,
					RankDate: today,
				})
			}
		}

		// Installer tasks.
		if job.Installer.Assigned() {
			if job.BidStatus == model.BidPending {
				out = append(out, model.Task{
					Kind:     model.KindBidPending,
					Role:     model.RoleInstaller,
					Assignee: job.Installer,
					JobID:    job.ID,
					Title:    "Bid pending, accept or decline: " + job.Title,
					Subtitle: bidLine(job),
					Urgency:  model.UrgencyUrgent,
					RankDate: today,
				})
			}

			if stage == model.StageInstall {
				if sentBack {
					out = append(out, model.Task{
						Kind:     model.KindInstallIssue,
						Role:     model.RoleInstaller,
						Assignee: job.Installer,
						JobID:    job.ID,
						Title:    "Install issue, sent back: " + job.Title,
						Subtitle: reasonLine(rollback.Reason),
						Urgency:  model.UrgencyUrgent,
						RankDate: today,
					})
				}
				switch {
				case installSet && installDate == today:
					out = append(out, model.Task{
						Kind:     model.KindInstallToday,
						Role:     model.RoleInstaller,
						Assignee: job.Installer,
						JobID:    job.ID,
						Title:    "Install TODAY: " + job.Title,
						Subtitle: job.VehicleDesc,
						Urgency:  model.UrgencyToday,
						RankDate: today,
					})
				case installSet && installDate > today:
					out = append(out, model.Task{
						Kind:     model.KindInstallUpcoming,
						Role:     model.RoleInstaller,
						Assignee: job.Installer,
						JobID:    job.ID,
						Title:    fmt.Sprintf("Upcoming install: %s on %s", job.Title, installDate),
						Subtitle: "Pre-install checklist required day of",
						Urgency:  model.UrgencyNormal,
						RankDate: installDate,
					})
				}
			}
		}
	}

	Sort(out)
	return out
}

// validInstallDate returns the install date only when it parses as an
// ISO date. Malformed dates are treated the same as unset.
func validInstallDate(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if _, err := time.Parse(isoDate, raw); err != nil {
		return "", false
	}
	return raw, true
}

func reasonLine(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "No reason given"
	}
	if len(reason) > 60 {
		reason = reason[:60]
	}
	return "Reason: " + reason
}

func estimateLine(job model.Job) string {
	price := "No price yet"
	if job.Revenue > 0 {
		price = "$" + formatMoney(job.Revenue)
	}
	if job.VehicleDesc == "" {
		return price
	}
	return job.VehicleDesc + " · " + price
}

func bidLine(job model.Job) string {
	date := job.InstallDate
	if date == "" {
		date = "No date"
	}
	if job.Revenue > 0 {
		return "$" + formatMoney(job.Revenue) + " · " + date
	}
	return date
}

// formatMoney renders a rounded dollar amount with thousands
// separators, e.g. 12345.6 -> "12,346".
func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
