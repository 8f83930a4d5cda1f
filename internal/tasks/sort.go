package tasks

import (
	"sort"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

// urgencyRank maps tiers to their sort precedence: urgent first, then
// today, then normal. Unknown tiers sink to the bottom.
var urgencyRank = map[model.Urgency]int{
	model.UrgencyUrgent: 0,
	model.UrgencyToday:  1,
	model.UrgencyNormal: 2,
}

// Rank returns the sort precedence of an urgency tier.
func Rank(u model.Urgency) int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return len(urgencyRank)
}

// Sort orders tasks in place: urgency tier first, then rank date
// ascending (ISO dates compare lexicographically). The sort is stable,
// so remaining ties keep catalogue evaluation order.
func Sort(list []model.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := Rank(list[i].Urgency), Rank(list[j].Urgency)
		if ri != rj {
			return ri < rj
		}
		return list[i].RankDate < list[j].RankDate
	})
}

// FilterRole keeps tasks belonging to the given role; an empty role
// keeps everything.
func FilterRole(list []model.Task, role model.Role) []model.Task {
	if role == "" {
		return list
	}
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

// FilterAssignee keeps tasks assigned to the given person id; an empty
// id keeps everything.
func FilterAssignee(list []model.Task, personID string) []model.Task {
	if personID == "" {
		return list
	}
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if t.Assignee.ID == personID {
			out = append(out, t)
		}
	}
	return out
}

// WithoutKeys drops tasks whose stable key is in the dismissed set.
func WithoutKeys(list []model.Task, dismissed map[string]struct{}) []model.Task {
	if len(dismissed) == 0 {
		return list
	}
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if _, ok := dismissed[t.Key()]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
