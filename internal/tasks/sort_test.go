package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

func task(kind model.TaskKind, job string, urgency model.Urgency, rankDate string) model.Task {
	return model.Task{
		Kind:     kind,
		JobID:    job,
		Role:     model.RoleSales,
		Urgency:  urgency,
		RankDate: rankDate,
	}
}

func TestSortOrdersByTierThenDate(t *testing.T) {
	list := []model.Task{
		task(model.KindSalesIntake, "a", model.UrgencyNormal, "2026-03-10"),
		task(model.KindInstallUpcoming, "b", model.UrgencyNormal, "2026-03-08"),
		task(model.KindPrintQueue, "c", model.UrgencyUrgent, "2026-03-10"),
		task(model.KindQCReview, "d", model.UrgencyToday, "2026-03-10"),
	}

	Sort(list)

	assert.Equal(t, "c", list[0].JobID)
	assert.Equal(t, "d", list[1].JobID)
	assert.Equal(t, "b", list[2].JobID, "earlier rank date wins within a tier")
	assert.Equal(t, "a", list[3].JobID)
}

func TestSortIsStableOnTies(t *testing.T) {
	list := []model.Task{
		task(model.KindSendBackSales, "x", model.UrgencyUrgent, "2026-03-10"),
		task(model.KindPrintQueue, "y", model.UrgencyUrgent, "2026-03-10"),
		task(model.KindBidPending, "z", model.UrgencyUrgent, "2026-03-10"),
	}

	Sort(list)

	assert.Equal(t, []string{"x", "y", "z"}, []string{list[0].JobID, list[1].JobID, list[2].JobID},
		"full ties keep catalogue insertion order")
}

func TestRankUnknownTierSinks(t *testing.T) {
	assert.Greater(t, Rank(model.Urgency("whenever")), Rank(model.UrgencyNormal))
}

func TestFilterRole(t *testing.T) {
	list := []model.Task{
		{Kind: model.KindPrintQueue, JobID: "a", Role: model.RoleProduction},
		{Kind: model.KindSalesIntake, JobID: "b", Role: model.RoleSales},
	}

	got := FilterRole(list, model.RoleProduction)
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].JobID)

	assert.Len(t, FilterRole(list, ""), 2)
}

func TestFilterAssignee(t *testing.T) {
	list := []model.Task{
		{Kind: model.KindPrintQueue, JobID: "a", Assignee: model.Person{ID: "p1"}},
		{Kind: model.KindSalesIntake, JobID: "b", Assignee: model.Person{ID: "p2"}},
	}

	got := FilterAssignee(list, "p2")
	assert.Len(t, got, 1)
	assert.Equal(t, "b", got[0].JobID)
}

func TestWithoutKeys(t *testing.T) {
	list := []model.Task{
		{Kind: model.KindPrintQueue, JobID: "a"},
		{Kind: model.KindSalesIntake, JobID: "b"},
	}

	dismissed := map[string]struct{}{"print_queue-a": {}}
	got := WithoutKeys(list, dismissed)
	assert.Len(t, got, 1)
	assert.Equal(t, "b", got[0].JobID)

	assert.Len(t, WithoutKeys(list, nil), 2)
}
