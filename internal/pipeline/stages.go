// Package pipeline defines the job pipeline state machine: the fixed
// stage order, forward/backward queries, and resolution of which
// send-back event (if any) is currently active for a job.
package pipeline

import (
	"github.com/example/wrapshop-ops/api-go/internal/model"
)

// StageOrder lists the pipeline stages in forward order.
var StageOrder = []model.PipeStage{
	model.StageSalesIn,
	model.StageProduction,
	model.StageInstall,
	model.StageProdReview,
	model.StageSalesClose,
	model.StageDone,
}

// StageIndex returns the position of s in the forward order, or -1 for
// an unknown stage.
func StageIndex(s model.PipeStage) int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s. ok is false when s is terminal or
// unknown.
func Next(s model.PipeStage) (model.PipeStage, bool) {
	idx := StageIndex(s)
	if idx < 0 || idx >= len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[idx+1], true
}

// Precedes reports whether a comes strictly before b in the forward
// order. Unknown stages never precede anything.
func Precedes(a, b model.PipeStage) bool {
	ai, bi := StageIndex(a), StageIndex(b)
	return ai >= 0 && bi >= 0 && ai < bi
}

// CurrentStage normalizes a job's stage; records predating the
// pipeline default to sales_in.
func CurrentStage(job model.Job) model.PipeStage {
	if job.PipeStage == "" {
		return model.StageSalesIn
	}
	return job.PipeStage
}

// Terminal reports whether the job is out of the pipeline entirely:
// closed or cancelled at the status level, or done at the stage level.
// Terminal jobs never contribute tasks.
func Terminal(job model.Job) bool {
	if job.Status == model.StatusClosed || job.Status == model.StatusCancelled {
		return true
	}
	return CurrentStage(job) == model.StageDone
}

// LatestByJob indexes a ledger snapshot down to the single most recent
// event per job, in O(len(events)). Recency is CreatedAt, with Seq
// (insertion order) breaking ties so repeated queries are
// deterministic. Input order does not matter.
func LatestByJob(events []model.RollbackEvent) map[string]model.RollbackEvent {
	latest := make(map[string]model.RollbackEvent, len(events))
	for _, ev := range events {
		cur, ok := latest[ev.JobID]
		if !ok || ev.CreatedAt.After(cur.CreatedAt) ||
			(ev.CreatedAt.Equal(cur.CreatedAt) && ev.Seq >= cur.Seq) {
			latest[ev.JobID] = ev
		}
	}
	return latest
}

// ActiveRollback returns the job's active send-back, if any: the most
// recent ledger event whose to_stage matches the job's current stage.
// Events with unknown stages or a to_stage that does not precede their
// from_stage are ledger corruption; they are treated as no active
// rollback rather than failing the pass.
func ActiveRollback(job model.Job, latest map[string]model.RollbackEvent) (model.RollbackEvent, bool) {
	ev, ok := latest[job.ID]
	if !ok {
		return model.RollbackEvent{}, false
	}
	if !Precedes(ev.ToStage, ev.FromStage) {
		return model.RollbackEvent{}, false
	}
	if ev.ToStage != CurrentStage(job) {
		return model.RollbackEvent{}, false
	}
	return ev, true
}
