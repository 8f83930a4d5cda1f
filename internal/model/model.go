package model

import (
	"errors"
	"time"
)

// PipeStage is a job's position in the production pipeline.
type PipeStage string

const (
	StageSalesIn    PipeStage = "sales_in"
	StageProduction PipeStage = "production"
	StageInstall    PipeStage = "install"
	StageProdReview PipeStage = "prod_review"
	StageSalesClose PipeStage = "sales_close"
	StageDone       PipeStage = "done"
)

// JobStatus is the coarse lifecycle of a job, independent of pipe stage.
type JobStatus string

const (
	StatusEstimate  JobStatus = "estimate"
	StatusActive    JobStatus = "active"
	StatusClosed    JobStatus = "closed"
	StatusCancelled JobStatus = "cancelled"
)

// BidStatus tracks the installer's response to a job offer.
type BidStatus string

const (
	BidNone     BidStatus = ""
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidDeclined BidStatus = "declined"
)

type Role string

const (
	RoleSales      Role = "sales"
	RoleProduction Role = "production"
	RoleInstaller  Role = "installer"
)

// Urgency orders derived tasks: urgent items sort before today items,
// which sort before normal items.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyToday  Urgency = "today"
	UrgencyNormal Urgency = "normal"
)

type TaskKind string

const (
	KindSendBackSales      TaskKind = "send_back_sales"
	KindSalesIntake        TaskKind = "sales_intake"
	KindScheduleInstall    TaskKind = "schedule_install"
	KindEstimateFollowup   TaskKind = "estimate_followup"
	KindFinalSignoff       TaskKind = "final_signoff"
	KindSendBackProduction TaskKind = "send_back_production"
	KindPrintQueue         TaskKind = "print_queue"
	KindQCReview           TaskKind = "qc_review"
	KindBidPending         TaskKind = "bid_pending"
	KindInstallToday       TaskKind = "install_today"
	KindInstallUpcoming    TaskKind = "install_upcoming"
	KindInstallIssue       TaskKind = "install_issue"
)

var ErrNotFound = errors.New("not found")

// Person identifies a specific teammate assigned to a job role. A zero
// ID means the role is unassigned.
type Person struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (p Person) Assigned() bool { return p.ID != "" }

// Job is one record in the job store.
//
// InstallDate is an ISO date (2006-01-02) or empty when not scheduled.
// Stage-specific facts (deposit, contract, material, revenue) live as
// typed fields rather than a free-form attribute bag.
type Job struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"orgId"`
	Title       string    `json:"title"`
	Status      JobStatus `json:"status"`
	PipeStage   PipeStage `json:"pipeStage"`
	VehicleDesc string    `json:"vehicleDesc,omitempty"`
	Material    string    `json:"material,omitempty"`
	Revenue     float64   `json:"revenue,omitempty"`

	DepositReceived bool      `json:"depositReceived"`
	ContractSigned  bool      `json:"contractSigned"`
	InstallDate     string    `json:"installDate,omitempty"`
	BidStatus       BidStatus `json:"bidStatus,omitempty"`

	Agent            Person `json:"agent,omitempty"`
	Installer        Person `json:"installer,omitempty"`
	ProductionPerson Person `json:"productionPerson,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RollbackEvent is one append-only send-back ledger entry. Seq is the
// ledger insertion order and breaks CreatedAt ties (last write wins).
type RollbackEvent struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	OrgID     string    `json:"orgId"`
	JobID     string    `json:"jobId"`
	FromStage PipeStage `json:"fromStage"`
	ToStage   PipeStage `json:"toStage"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a derived work item. Tasks are never persisted; each
// derivation pass rebuilds them from the job and ledger snapshot.
type Task struct {
	Kind     TaskKind `json:"kind"`
	Role     Role     `json:"role"`
	Assignee Person   `json:"assignee"`
	JobID    string   `json:"jobId"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Urgency  Urgency  `json:"urgency"`
	RankDate string   `json:"rankDate"`
}

// Key is the stable (kind, job) identity used for dismissal and UI
// diffing. It is invariant across re-derivation on the same snapshot.
func (t Task) Key() string { return string(t.Kind) + "-" + t.JobID }

// JobPatch is used for partial updates.
type JobPatch struct {
	Title           *string
	Status          *string
	PipeStage       *string
	VehicleDesc     *string
	Material        *string
	Revenue         *float64
	DepositReceived *bool
	ContractSigned  *bool
	InstallDate     *string
	BidStatus       *string
	AgentID         *string
	AgentName       *string
	InstallerID     *string
	InstallerName   *string
	ProductionID    *string
	ProductionName  *string
}

// ValidStatus reports whether raw names a known job status.
func ValidStatus(raw string) bool {
	switch JobStatus(raw) {
	case StatusEstimate, StatusActive, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// ValidStage reports whether raw names a known pipe stage.
func ValidStage(raw string) bool {
	switch PipeStage(raw) {
	case StageSalesIn, StageProduction, StageInstall, StageProdReview, StageSalesClose, StageDone:
		return true
	}
	return false
}
