// Package store persists jobs and the append-only send-back ledger in
// sqlite. The ledger is insert-only: events are never updated or
// deleted, and Seq (the autoincrement id) records insertion order.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/wrapshop-ops/api-go/internal/model"
	"github.com/example/wrapshop-ops/api-go/internal/pipeline"
)

const currentSchemaVersion = 1

// ErrForwardRollback rejects send-backs whose target stage is not
// strictly earlier than the stage being left.
var ErrForwardRollback = errors.New("rollback target must be an earlier stage")

type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) initSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return err
	}
	version, err := readSchemaVersion(tx)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("db schema version %d is newer than runtime version %d", version, currentSchemaVersion)
	}
	for version < currentSchemaVersion {
		next, err := applyNextMigration(tx, version)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.Itoa(next),
		); err != nil {
			return err
		}
		version = next
	}
	return tx.Commit()
}

func readSchemaVersion(tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	version, parseErr := strconv.Atoi(raw)
	if parseErr != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, parseErr)
	}
	return version, nil
}

func applyNextMigration(tx *sql.Tx, version int) (int, error) {
	switch version {
	case 0:
		_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  title TEXT NOT NULL,
  status TEXT NOT NULL,
  pipe_stage TEXT NOT NULL,
  vehicle_desc TEXT NOT NULL DEFAULT '',
  material TEXT NOT NULL DEFAULT '',
  revenue REAL NOT NULL DEFAULT 0,
  deposit_received INTEGER NOT NULL DEFAULT 0,
  contract_signed INTEGER NOT NULL DEFAULT 0,
  install_date TEXT NOT NULL DEFAULT '',
  bid_status TEXT NOT NULL DEFAULT '',
  agent_id TEXT NOT NULL DEFAULT '',
  agent_name TEXT NOT NULL DEFAULT '',
  installer_id TEXT NOT NULL DEFAULT '',
  installer_name TEXT NOT NULL DEFAULT '',
  production_id TEXT NOT NULL DEFAULT '',
  production_name TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_org ON jobs(org_id, status);

CREATE TABLE IF NOT EXISTS send_backs (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  org_id TEXT NOT NULL,
  job_id TEXT NOT NULL,
  from_stage TEXT NOT NULL,
  to_stage TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_send_backs_job ON send_backs(job_id, created_at);
`)
		return 1, err
	default:
		return 0, fmt.Errorf("no migration from schema version %d", version)
	}
}

const jobColumns = `id, org_id, title, status, pipe_stage, vehicle_desc, material, revenue,
       deposit_received, contract_signed, install_date, bid_status,
       agent_id, agent_name, installer_id, installer_name, production_id, production_name,
       created_at, updated_at`

func (s *SQLite) CreateJob(ctx context.Context, job model.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.OrgID,
		job.Title,
		string(job.Status),
		string(job.PipeStage),
		job.VehicleDesc,
		job.Material,
		job.Revenue,
		boolInt(job.DepositReceived),
		boolInt(job.ContractSigned),
		job.InstallDate,
		string(job.BidStatus),
		job.Agent.ID,
		job.Agent.Name,
		job.Installer.ID,
		job.Installer.Name,
		job.ProductionPerson.ID,
		job.ProductionPerson.Name,
		job.CreatedAt.UnixMilli(),
		job.UpdatedAt.UnixMilli(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		job                  model.Job
		status, stage, bid   string
		deposit, contract    int
		createdMs, updatedMs int64
	)
	err := row.Scan(
		&job.ID, &job.OrgID, &job.Title, &status, &stage, &job.VehicleDesc, &job.Material, &job.Revenue,
		&deposit, &contract, &job.InstallDate, &bid,
		&job.Agent.ID, &job.Agent.Name, &job.Installer.ID, &job.Installer.Name,
		&job.ProductionPerson.ID, &job.ProductionPerson.Name,
		&createdMs, &updatedMs,
	)
	if err != nil {
		return model.Job{}, err
	}
	job.Status = model.JobStatus(status)
	job.PipeStage = model.PipeStage(stage)
	job.BidStatus = model.BidStatus(bid)
	job.DepositReceived = deposit != 0
	job.ContractSigned = contract != 0
	job.CreatedAt = time.UnixMilli(createdMs).UTC()
	job.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return job, nil
}

func (s *SQLite) GetJob(ctx context.Context, id string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, model.ErrNotFound
	}
	return job, err
}

// ListJobs returns org jobs, newest-updated first. Optional status and
// stage filters narrow the result.
func (s *SQLite) ListJobs(ctx context.Context, orgID string, status *model.JobStatus, stage *model.PipeStage, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE org_id = ?`
	args := []any{orgID}
	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}
	if stage != nil {
		query += " AND pipe_stage = ?"
		args = append(args, string(*stage))
	}
	query += " ORDER BY updated_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateJob(ctx context.Context, id string, patch model.JobPatch) error {
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
         SET updated_at = ?,
             title = COALESCE(?, title),
             status = COALESCE(?, status),
             pipe_stage = COALESCE(?, pipe_stage),
             vehicle_desc = COALESCE(?, vehicle_desc),
             material = COALESCE(?, material),
             revenue = COALESCE(?, revenue),
             deposit_received = COALESCE(?, deposit_received),
             contract_signed = COALESCE(?, contract_signed),
             install_date = COALESCE(?, install_date),
             bid_status = COALESCE(?, bid_status),
             agent_id = COALESCE(?, agent_id),
             agent_name = COALESCE(?, agent_name),
             installer_id = COALESCE(?, installer_id),
             installer_name = COALESCE(?, installer_name),
             production_id = COALESCE(?, production_id),
             production_name = COALESCE(?, production_name)
         WHERE id = ?`,
		now,
		nullableString(patch.Title),
		nullableString(patch.Status),
		nullableString(patch.PipeStage),
		nullableString(patch.VehicleDesc),
		nullableString(patch.Material),
		nullableFloat64(patch.Revenue),
		nullableBool(patch.DepositReceived),
		nullableBool(patch.ContractSigned),
		nullableString(patch.InstallDate),
		nullableString(patch.BidStatus),
		nullableString(patch.AgentID),
		nullableString(patch.AgentName),
		nullableString(patch.InstallerID),
		nullableString(patch.InstallerName),
		nullableString(patch.ProductionID),
		nullableString(patch.ProductionName),
		id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AppendRollback records a send-back and moves the job to the target
// stage in one transaction. Forward moves are rejected; the ledger only
// ever holds backward transitions from this writer.
func (s *SQLite) AppendRollback(ctx context.Context, ev model.RollbackEvent) error {
	if !pipeline.Precedes(ev.ToStage, ev.FromStage) {
		return ErrForwardRollback
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO send_backs (id, org_id, job_id, from_stage, to_stage, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OrgID, ev.JobID, string(ev.FromStage), string(ev.ToStage), ev.Reason, ev.CreatedAt.UnixMilli(),
	); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET pipe_stage = ?, updated_at = ? WHERE id = ?`,
		string(ev.ToStage), ev.CreatedAt.UnixMilli(), ev.JobID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

// ListRollbacks returns the org's full ledger in insertion order
// (oldest first), the shape the derivation engine indexes from.
func (s *SQLite) ListRollbacks(ctx context.Context, orgID string) ([]model.RollbackEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, org_id, job_id, from_stage, to_stage, reason, created_at
         FROM send_backs WHERE org_id = ? ORDER BY created_at ASC, seq ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRollbacks(rows)
}

// ListJobRollbacks returns one job's send-back history, newest first.
func (s *SQLite) ListJobRollbacks(ctx context.Context, jobID string) ([]model.RollbackEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, org_id, job_id, from_stage, to_stage, reason, created_at
         FROM send_backs WHERE job_id = ? ORDER BY created_at DESC, seq DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRollbacks(rows)
}

func scanRollbacks(rows *sql.Rows) ([]model.RollbackEvent, error) {
	var out []model.RollbackEvent
	for rows.Next() {
		var (
			ev        model.RollbackEvent
			from, to  string
			createdMs int64
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.OrgID, &ev.JobID, &from, &to, &ev.Reason, &createdMs); err != nil {
			return nil, err
		}
		ev.FromStage = model.PipeStage(from)
		ev.ToStage = model.PipeStage(to)
		ev.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Snapshot fetches the derivation engine's inputs in one call: the
// org's open jobs (closed jobs are excluded at the source) and the full
// send-back ledger. Both come back in a deterministic order.
func (s *SQLite) Snapshot(ctx context.Context, orgID string) ([]model.Job, []model.RollbackEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE org_id = ? AND status != ? ORDER BY created_at ASC, id ASC`,
		orgID, string(model.StatusClosed))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	events, err := s.ListRollbacks(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	return jobs, events, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat64(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return boolInt(*v)
}
