// Package httpapi exposes the job store, send-back ledger, and derived
// worklist over HTTP. Task derivation happens on every read; nothing
// about the worklist is cached or persisted between requests.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/wrapshop-ops/api-go/internal/model"
	"github.com/example/wrapshop-ops/api-go/internal/pipeline"
	"github.com/example/wrapshop-ops/api-go/internal/store"
	"github.com/example/wrapshop-ops/api-go/internal/tasks"
)

type Server struct {
	Jobs *store.SQLite
	Org  string
	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time

	mu        sync.Mutex
	dismissed map[string]map[string]struct{} // session id -> task keys
}

func NewServer(jobs *store.SQLite, org string) *Server {
	return &Server{
		Jobs:      jobs,
		Org:       org,
		dismissed: make(map[string]map[string]struct{}),
	}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Patch("/jobs/{id}", s.handlePatchJob)
		r.Post("/jobs/{id}/advance", s.handleAdvance)
		r.Post("/jobs/{id}/rollback", s.handleRollback)
		r.Get("/jobs/{id}/rollbacks", s.handleListRollbacks)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks/dismiss", s.handleDismissTask)
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createJobRequest struct {
	Title            string        `json:"title"`
	Status           string        `json:"status"`
	PipeStage        string        `json:"pipeStage"`
	VehicleDesc      string        `json:"vehicleDesc"`
	Material         string        `json:"material"`
	Revenue          float64       `json:"revenue"`
	DepositReceived  bool          `json:"depositReceived"`
	ContractSigned   bool          `json:"contractSigned"`
	InstallDate      string        `json:"installDate"`
	BidStatus        string        `json:"bidStatus"`
	Agent            *model.Person `json:"agent"`
	Installer        *model.Person `json:"installer"`
	ProductionPerson *model.Person `json:"productionPerson"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse body: %w", err))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}
	if req.Status == "" {
		req.Status = string(model.StatusEstimate)
	}
	if req.PipeStage == "" {
		req.PipeStage = string(model.StageSalesIn)
	}
	if !model.ValidStatus(req.Status) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", req.Status))
		return
	}
	if !model.ValidStage(req.PipeStage) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid pipeStage: %s", req.PipeStage))
		return
	}
	if req.InstallDate != "" {
		if _, err := time.Parse("2006-01-02", req.InstallDate); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid installDate: %s", req.InstallDate))
			return
		}
	}

	now := s.now().UTC()
	job := model.Job{
		ID:              uuid.NewString(),
		OrgID:           s.Org,
		Title:           req.Title,
		Status:          model.JobStatus(req.Status),
		PipeStage:       model.PipeStage(req.PipeStage),
		VehicleDesc:     req.VehicleDesc,
		Material:        req.Material,
		Revenue:         req.Revenue,
		DepositReceived: req.DepositReceived,
		ContractSigned:  req.ContractSigned,
		InstallDate:     req.InstallDate,
		BidStatus:       model.BidStatus(req.BidStatus),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Agent != nil {
		job.Agent = *req.Agent
	}
	if req.Installer != nil {
		job.Installer = *req.Installer
	}
	if req.ProductionPerson != nil {
		job.ProductionPerson = *req.ProductionPerson
	}

	if err := s.Jobs.CreateJob(ctx, job); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("create job: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status *model.JobStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if !model.ValidStatus(raw) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", raw))
			return
		}
		parsed := model.JobStatus(raw)
		status = &parsed
	}
	var stage *model.PipeStage
	if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
		if !model.ValidStage(raw) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid stage: %s", raw))
			return
		}
		parsed := model.PipeStage(raw)
		stage = &parsed
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", raw))
			return
		}
		if value > 200 {
			value = 200
		}
		limit = value
	}

	jobs, err := s.Jobs.ListJobs(ctx, s.Org, status, stage, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type patchJobRequest struct {
	Title            *string       `json:"title"`
	Status           *string       `json:"status"`
	PipeStage        *string       `json:"pipeStage"`
	VehicleDesc      *string       `json:"vehicleDesc"`
	Material         *string       `json:"material"`
	Revenue          *float64      `json:"revenue"`
	DepositReceived  *bool         `json:"depositReceived"`
	ContractSigned   *bool         `json:"contractSigned"`
	InstallDate      *string       `json:"installDate"`
	BidStatus        *string       `json:"bidStatus"`
	Agent            *model.Person `json:"agent"`
	Installer        *model.Person `json:"installer"`
	ProductionPerson *model.Person `json:"productionPerson"`
}

func (s *Server) handlePatchJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req patchJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse body: %w", err))
		return
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", *req.Status))
		return
	}
	if req.PipeStage != nil && !model.ValidStage(*req.PipeStage) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid pipeStage: %s", *req.PipeStage))
		return
	}
	if req.InstallDate != nil && *req.InstallDate != "" {
		if _, err := time.Parse("2006-01-02", *req.InstallDate); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid installDate: %s", *req.InstallDate))
			return
		}
	}

	patch := model.JobPatch{
		Title:           req.Title,
		Status:          req.Status,
		PipeStage:       req.PipeStage,
		VehicleDesc:     req.VehicleDesc,
		Material:        req.Material,
		Revenue:         req.Revenue,
		DepositReceived: req.DepositReceived,
		ContractSigned:  req.ContractSigned,
		InstallDate:     req.InstallDate,
		BidStatus:       req.BidStatus,
	}
	if req.Agent != nil {
		patch.AgentID, patch.AgentName = &req.Agent.ID, &req.Agent.Name
	}
	if req.Installer != nil {
		patch.InstallerID, patch.InstallerName = &req.Installer.ID, &req.Installer.Name
	}
	if req.ProductionPerson != nil {
		patch.ProductionID, patch.ProductionName = &req.ProductionPerson.ID, &req.ProductionPerson.Name
	}

	if err := s.Jobs.UpdateJob(ctx, id, patch); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	job, err := s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleAdvance moves a job to the next stage. Whether the stage's
// work is actually complete is the caller's concern.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	job, err := s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	next, ok := pipeline.Next(pipeline.CurrentStage(job))
	if !ok {
		writeErr(w, http.StatusConflict, fmt.Errorf("job is already at %s", job.PipeStage))
		return
	}
	nextRaw := string(next)
	if err := s.Jobs.UpdateJob(ctx, id, model.JobPatch{PipeStage: &nextRaw}); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	job, err = s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type rollbackRequest struct {
	ToStage string `json:"toStage"`
	Reason  string `json:"reason"`
}

// handleRollback sends a job back to an earlier stage and appends the
// send-back to the ledger. The two writes share a transaction in the
// store, so the ledger and the job never disagree from this path.
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse body: %w", err))
		return
	}
	if !model.ValidStage(req.ToStage) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid toStage: %s", req.ToStage))
		return
	}

	job, err := s.Jobs.GetJob(ctx, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	ev := model.RollbackEvent{
		ID:        uuid.NewString(),
		OrgID:     job.OrgID,
		JobID:     job.ID,
		FromStage: pipeline.CurrentStage(job),
		ToStage:   model.PipeStage(req.ToStage),
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: s.now().UTC(),
	}
	if err := s.Jobs.AppendRollback(ctx, ev); err != nil {
		if errors.Is(err, store.ErrForwardRollback) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleListRollbacks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.Jobs.GetJob(ctx, id); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	events, err := s.Jobs.ListJobRollbacks(ctx, id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []model.RollbackEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type taskResponse struct {
	Key string `json:"key"`
	model.Task
}

// handleListTasks derives the worklist from a fresh snapshot on every
// call. Filters and session dismissals are applied after the global
// ordering, so ranking is identical for every viewer.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var role model.Role
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		switch model.Role(raw) {
		case model.RoleSales, model.RoleProduction, model.RoleInstaller:
			role = model.Role(raw)
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid role: %s", raw))
			return
		}
	}
	assignee := strings.TrimSpace(r.URL.Query().Get("assignee"))

	jobs, events, err := s.Jobs.Snapshot(ctx, s.Org)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	list := tasks.Derive(jobs, events, s.now())
	list = tasks.FilterRole(list, role)
	list = tasks.FilterAssignee(list, assignee)
	list = tasks.WithoutKeys(list, s.sessionDismissals(sessionID(r)))

	resp := make([]taskResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, taskResponse{Key: t.Key(), Task: t})
	}
	writeJSON(w, http.StatusOK, resp)
}

type dismissRequest struct {
	Key string `json:"key"`
}

// handleDismissTask hides a task for the current session only. The
// task reappears in other sessions, and in this one once the session
// id changes; nothing is persisted.
func (s *Server) handleDismissTask(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("X-Session-ID header is required"))
		return
	}
	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse body: %w", err))
		return
	}
	if req.Key == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("key is required"))
		return
	}

	s.mu.Lock()
	if s.dismissed == nil {
		s.dismissed = make(map[string]map[string]struct{})
	}
	if s.dismissed[session] == nil {
		s.dismissed[session] = make(map[string]struct{})
	}
	s.dismissed[session][req.Key] = struct{}{}
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionDismissals(session string) map[string]struct{} {
	if session == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.dismissed[session]
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(keys))
	for k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func sessionID(r *http.Request) string {
	if v := r.Header.Get("X-Session-ID"); v != "" {
		return v
	}
	return r.URL.Query().Get("session")
}

func writeNotFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
