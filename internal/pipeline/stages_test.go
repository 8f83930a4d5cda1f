package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

func TestStageOrderAndNext(t *testing.T) {
	next, ok := Next(model.StageSalesIn)
	require.True(t, ok)
	assert.Equal(t, model.StageProduction, next)

	next, ok = Next(model.StageSalesClose)
	require.True(t, ok)
	assert.Equal(t, model.StageDone, next)

	_, ok = Next(model.StageDone)
	assert.False(t, ok)

	_, ok = Next(model.PipeStage("warehouse"))
	assert.False(t, ok)
}

func TestPrecedes(t *testing.T) {
	assert.True(t, Precedes(model.StageSalesIn, model.StageProduction))
	assert.True(t, Precedes(model.StageInstall, model.StageProdReview))
	assert.False(t, Precedes(model.StageProduction, model.StageProduction))
	assert.False(t, Precedes(model.StageInstall, model.StageSalesIn))
	assert.False(t, Precedes(model.PipeStage("warehouse"), model.StageDone))
}

func TestCurrentStageDefaultsToSalesIn(t *testing.T) {
	assert.Equal(t, model.StageSalesIn, CurrentStage(model.Job{}))
	assert.Equal(t, model.StageInstall, CurrentStage(model.Job{PipeStage: model.StageInstall}))
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(model.Job{Status: model.StatusClosed, PipeStage: model.StageProduction}))
	assert.True(t, Terminal(model.Job{Status: model.StatusCancelled}))
	assert.True(t, Terminal(model.Job{Status: model.StatusActive, PipeStage: model.StageDone}))
	assert.False(t, Terminal(model.Job{Status: model.StatusActive, PipeStage: model.StageInstall}))
}

func TestLatestByJobPicksMostRecent(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []model.RollbackEvent{
		{Seq: 3, JobID: "a", ToStage: model.StageSalesIn, CreatedAt: base.Add(3 * time.Hour)},
		{Seq: 1, JobID: "a", ToStage: model.StageProduction, CreatedAt: base.Add(time.Hour)},
		{Seq: 2, JobID: "b", ToStage: model.StageInstall, CreatedAt: base.Add(2 * time.Hour)},
	}

	latest := LatestByJob(events)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(3), latest["a"].Seq, "order of input must not matter")
	assert.Equal(t, int64(2), latest["b"].Seq)
}

func TestLatestByJobBreaksTimestampTiesBySeq(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []model.RollbackEvent{
		{Seq: 5, JobID: "a", ToStage: model.StageSalesIn, CreatedAt: at},
		{Seq: 9, JobID: "a", ToStage: model.StageProduction, CreatedAt: at},
		{Seq: 7, JobID: "a", ToStage: model.StageInstall, CreatedAt: at},
	}

	latest := LatestByJob(events)
	assert.Equal(t, int64(9), latest["a"].Seq, "last write wins on equal timestamps")
}

func TestActiveRollback(t *testing.T) {
	job := model.Job{ID: "a", PipeStage: model.StageProduction}

	good := map[string]model.RollbackEvent{
		"a": {JobID: "a", FromStage: model.StageInstall, ToStage: model.StageProduction, Reason: "bad print"},
	}
	ev, ok := ActiveRollback(job, good)
	require.True(t, ok)
	assert.Equal(t, "bad print", ev.Reason)

	// Job has moved on since the rollback.
	moved := model.Job{ID: "a", PipeStage: model.StageInstall}
	_, ok = ActiveRollback(moved, good)
	assert.False(t, ok)

	// Forward event is corruption, never active.
	corrupt := map[string]model.RollbackEvent{
		"a": {JobID: "a", FromStage: model.StageSalesIn, ToStage: model.StageProduction},
	}
	_, ok = ActiveRollback(job, corrupt)
	assert.False(t, ok)

	// No ledger entry at all.
	_, ok = ActiveRollback(job, map[string]model.RollbackEvent{})
	assert.False(t, ok)
}
