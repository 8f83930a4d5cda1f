package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

var (
	amy = model.Person{ID: "p-amy", Name: "Amy"}
	bo  = model.Person{ID: "p-bo", Name: "Bo"}
	cy  = model.Person{ID: "p-cy", Name: "Cy"}
)

// Fixed clock: 2026-03-10 noon UTC.
var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const today = "2026-03-10"

func baseJob(id string) model.Job {
	return model.Job{
		ID:        id,
		OrgID:     "org-1",
		Title:     "Van wrap " + id,
		Status:    model.StatusActive,
		PipeStage: model.StageSalesIn,
		CreatedAt: now.Add(-24 * time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
}

func kinds(list []model.Task) []model.TaskKind {
	out := make([]model.TaskKind, 0, len(list))
	for _, t := range list {
		out = append(out, t.Kind)
	}
	return out
}

func findKind(list []model.Task, kind model.TaskKind) (model.Task, bool) {
	for _, t := range list {
		if t.Kind == kind {
			return t, true
		}
	}
	return model.Task{}, false
}

func TestSalesIntakeIncomplete(t *testing.T) {
	j1 := baseJob("J1")
	j1.Agent = amy
	j1.InstallDate = today // suppress the schedule task

	list := Derive([]model.Job{j1}, nil, now)

	require.Len(t, list, 1)
	assert.Equal(t, model.KindSalesIntake, list[0].Kind)
	assert.Equal(t, model.RoleSales, list[0].Role)
	assert.Equal(t, model.UrgencyNormal, list[0].Urgency)
	assert.Equal(t, amy, list[0].Assignee)
	assert.Equal(t, "sales_intake-J1", list[0].Key())
}

func TestInstallTodayNotUpcoming(t *testing.T) {
	j2 := baseJob("J2")
	j2.PipeStage = model.StageInstall
	j2.Installer = bo
	j2.InstallDate = today
	j2.DepositReceived = true
	j2.ContractSigned = true

	list := Derive([]model.Job{j2}, nil, now)

	task, ok := findKind(list, model.KindInstallToday)
	require.True(t, ok, "expected install_today, got %v", kinds(list))
	assert.Equal(t, model.UrgencyToday, task.Urgency)

	_, ok = findKind(list, model.KindInstallUpcoming)
	assert.False(t, ok, "install_today and install_upcoming are mutually exclusive")
}

func TestProductionSendBackSuppressesPrintQueue(t *testing.T) {
	j3 := baseJob("J3")
	j3.PipeStage = model.StageProduction
	j3.ProductionPerson = cy

	events := []model.RollbackEvent{
		{Seq: 1, JobID: "J3", FromStage: model.StageInstall, ToStage: model.StageSalesIn, CreatedAt: now.Add(-2 * time.Hour)},
		{Seq: 2, JobID: "J3", FromStage: model.StageInstall, ToStage: model.StageProduction, Reason: "vinyl bubbled on hood", CreatedAt: now.Add(-time.Hour)},
	}

	list := Derive([]model.Job{j3}, events, now)

	task, ok := findKind(list, model.KindSendBackProduction)
	require.True(t, ok, "expected send_back_production, got %v", kinds(list))
	assert.Equal(t, model.UrgencyUrgent, task.Urgency)
	assert.Contains(t, task.Subtitle, "vinyl bubbled")

	_, ok = findKind(list, model.KindPrintQueue)
	assert.False(t, ok, "active send-back must suppress print_queue")
}

func TestEstimateFollowupEscalatesWithAge(t *testing.T) {
	old := baseJob("J4")
	old.Status = model.StatusEstimate
	old.Agent = amy
	old.CreatedAt = now.Add(-5 * 24 * time.Hour)

	fresh := baseJob("J5")
	fresh.Status = model.StatusEstimate
	fresh.Agent = amy
	fresh.CreatedAt = now.Add(-24 * time.Hour)

	list := Derive([]model.Job{old, fresh}, nil, now)

	oldTask, ok := findKind(list, model.KindEstimateFollowup)
	require.True(t, ok)
	assert.Equal(t, model.UrgencyToday, oldTask.Urgency, "5 day old estimate escalates")

	var freshTask model.Task
	for _, task := range list {
		if task.Kind == model.KindEstimateFollowup && task.JobID == "J5" {
			freshTask = task
		}
	}
	require.NotEmpty(t, freshTask.JobID)
	assert.Equal(t, model.UrgencyNormal, freshTask.Urgency, "1 day old estimate stays normal")
}

func TestSalesSendBackSuppressesIntake(t *testing.T) {
	job := baseJob("J6")
	job.Agent = amy
	job.InstallDate = today

	events := []model.RollbackEvent{
		{Seq: 1, JobID: "J6", FromStage: model.StageProduction, ToStage: model.StageSalesIn, Reason: "specs wrong", CreatedAt: now.Add(-time.Hour)},
	}

	list := Derive([]model.Job{job}, events, now)

	task, ok := findKind(list, model.KindSendBackSales)
	require.True(t, ok)
	assert.Equal(t, model.UrgencyUrgent, task.Urgency)

	_, ok = findKind(list, model.KindSalesIntake)
	assert.False(t, ok, "a job sent back to sales is past intake nagging")
}

func TestTerminalJobsProduceNothing(t *testing.T) {
	closed := baseJob("J7")
	closed.Status = model.StatusClosed
	closed.Agent = amy

	cancelled := baseJob("J8")
	cancelled.Status = model.StatusCancelled
	cancelled.Agent = amy

	done := baseJob("J9")
	done.PipeStage = model.StageDone
	done.Agent = amy
	done.Installer = bo
	done.ProductionPerson = cy

	list := Derive([]model.Job{closed, cancelled, done}, nil, now)
	assert.Empty(t, list)
}

func TestOnlyMostRecentRollbackIsActive(t *testing.T) {
	job := baseJob("J10")
	job.PipeStage = model.StageProduction
	job.ProductionPerson = cy

	// The newest event rolled the job back to sales_in, but the job has
	// since advanced to production again. Neither event is active.
	events := []model.RollbackEvent{
		{Seq: 1, JobID: "J10", FromStage: model.StageInstall, ToStage: model.StageProduction, CreatedAt: now.Add(-3 * time.Hour)},
		{Seq: 2, JobID: "J10", FromStage: model.StageProduction, ToStage: model.StageSalesIn, CreatedAt: now.Add(-2 * time.Hour)},
	}

	list := Derive([]model.Job{job}, events, now)

	_, ok := findKind(list, model.KindSendBackProduction)
	assert.False(t, ok, "superseded rollback must not count as active")

	_, ok = findKind(list, model.KindPrintQueue)
	assert.True(t, ok)
}

func TestCorruptLedgerEventsAreIgnored(t *testing.T) {
	job := baseJob("J11")
	job.PipeStage = model.StageProduction
	job.ProductionPerson = cy

	events := []model.RollbackEvent{
		// Forward "rollback": to_stage is later than from_stage.
		{Seq: 1, JobID: "J11", FromStage: model.StageSalesIn, ToStage: model.StageProduction, CreatedAt: now.Add(-time.Hour)},
		// Event for a job that no longer exists.
		{Seq: 2, JobID: "ghost", FromStage: model.StageInstall, ToStage: model.StageProduction, CreatedAt: now.Add(-time.Hour)},
		// Unknown stage names.
		{Seq: 3, JobID: "J11b", FromStage: "shipping", ToStage: "loading", CreatedAt: now.Add(-time.Hour)},
	}

	list := Derive([]model.Job{job}, events, now)

	_, ok := findKind(list, model.KindSendBackProduction)
	assert.False(t, ok, "forward event is not a real rollback")
	_, ok = findKind(list, model.KindPrintQueue)
	assert.True(t, ok, "bad ledger rows must not break derivation")
}

func TestMissingRoleAssignmentSkipsBranch(t *testing.T) {
	job := baseJob("J12")
	job.PipeStage = model.StageProduction // nobody assigned to production

	list := Derive([]model.Job{job}, nil, now)
	assert.Empty(t, list)
}

func TestMalformedInstallDateTreatedAsUnset(t *testing.T) {
	job := baseJob("J13")
	job.Agent = amy
	job.DepositReceived = true
	job.ContractSigned = true
	job.InstallDate = "sometime in spring"

	list := Derive([]model.Job{job}, nil, now)

	task, ok := findKind(list, model.KindScheduleInstall)
	require.True(t, ok, "unparseable date counts as no date, got %v", kinds(list))
	assert.Equal(t, model.UrgencyToday, task.Urgency)
}

func TestOneJobManyKinds(t *testing.T) {
	job := baseJob("J14")
	job.Agent = amy
	job.Installer = bo
	job.BidStatus = model.BidPending

	list := Derive([]model.Job{job}, nil, now)

	got := kinds(list)
	assert.Contains(t, got, model.KindSalesIntake)
	assert.Contains(t, got, model.KindScheduleInstall)
	assert.Contains(t, got, model.KindBidPending)
}

func TestDeriveIsDeterministic(t *testing.T) {
	jobs := []model.Job{}
	j := baseJob("J15")
	j.Agent = amy
	j.Installer = bo
	j.ProductionPerson = cy
	j.PipeStage = model.StageProduction
	jobs = append(jobs, j)

	k := baseJob("J16")
	k.Status = model.StatusEstimate
	k.Agent = amy
	jobs = append(jobs, k)

	events := []model.RollbackEvent{
		{Seq: 1, JobID: "J15", FromStage: model.StageInstall, ToStage: model.StageProduction, Reason: "reprint", CreatedAt: now.Add(-time.Hour)},
	}

	first := Derive(jobs, events, now)
	second := Derive(jobs, events, now)
	require.Equal(t, first, second)

	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
	}
}

func TestGlobalOrderingAcrossRoles(t *testing.T) {
	sales := baseJob("J17")
	sales.Status = model.StatusEstimate
	sales.Agent = amy
	sales.CreatedAt = now.Add(-10 * 24 * time.Hour) // today tier

	prod := baseJob("J18")
	prod.PipeStage = model.StageProduction
	prod.ProductionPerson = cy // urgent print queue

	install := baseJob("J19")
	install.PipeStage = model.StageInstall
	install.Installer = bo
	install.InstallDate = "2026-03-20" // normal, upcoming
	install.DepositReceived = true
	install.ContractSigned = true

	list := Derive([]model.Job{sales, install, prod}, nil, now)

	require.NotEmpty(t, list)
	assert.Equal(t, model.KindPrintQueue, list[0].Kind, "urgent production outranks today sales")

	lastRank := -1
	for _, task := range list {
		r := Rank(task.Urgency)
		assert.GreaterOrEqual(t, r, lastRank, "urgency must never get less severe going down the list")
		lastRank = r
	}
}

func TestUpcomingInstallRanksByDate(t *testing.T) {
	near := baseJob("J20")
	near.PipeStage = model.StageInstall
	near.Installer = bo
	near.InstallDate = "2026-03-12"
	near.DepositReceived = true
	near.ContractSigned = true

	far := baseJob("J21")
	far.PipeStage = model.StageInstall
	far.Installer = bo
	far.InstallDate = "2026-04-02"
	far.DepositReceived = true
	far.ContractSigned = true

	// Deliberately listed far-first; the sort must fix it.
	list := Derive([]model.Job{far, near}, nil, now)

	var upcoming []model.Task
	for _, task := range list {
		if task.Kind == model.KindInstallUpcoming {
			upcoming = append(upcoming, task)
		}
	}
	require.Len(t, upcoming, 2)
	assert.Equal(t, "J20", upcoming[0].JobID)
	assert.Equal(t, "J21", upcoming[1].JobID)
	assert.Equal(t, "2026-03-12", upcoming[0].RankDate)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "950", formatMoney(950))
	assert.Equal(t, "12,346", formatMoney(12345.6))
	assert.Equal(t, "1,000,000", formatMoney(1000000))
}
