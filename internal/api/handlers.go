// Package api exposes the task lifecycle over a thin JSON/HTTP surface.
// It is an adapter: validation beyond reference existence, error
// presentation, and authorization live here, not in the core.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kvn/taskhub/internal/assign"
	"github.com/kvn/taskhub/internal/directory"
	"github.com/kvn/taskhub/internal/engine"
	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/internal/report"
	"github.com/kvn/taskhub/internal/store"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Directory *directory.Directory
	Engine    *engine.Engine
	Inbox     *notify.Inbox
	Store     store.Store
	Logger    *slog.Logger
	JWTSecret string
	TokenTTL  time.Duration
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)

	mux.HandleFunc("GET /api/users/pending", h.requireAdmin(h.listPendingUsers))
	mux.HandleFunc("POST /api/users/{id}/approve", h.requireAdmin(h.approveUser))
	mux.HandleFunc("POST /api/users/{id}/reject", h.requireAdmin(h.rejectUser))

	mux.HandleFunc("GET /api/tasks", h.requireAuth(h.listTasks))
	mux.HandleFunc("POST /api/tasks", h.requireAdmin(h.createTask))
	mux.HandleFunc("GET /api/tasks/{id}", h.requireAuth(h.getTask))
	mux.HandleFunc("PATCH /api/tasks/{id}/status", h.requireAuth(h.updateTaskStatus))
	mux.HandleFunc("POST /api/tasks/{id}/comments", h.requireAuth(h.addComment))
	mux.HandleFunc("POST /api/tasks/{id}/verification", h.requireAuth(h.submitVerification))
	mux.HandleFunc("POST /api/tasks/{id}/verification/approve", h.requireAdmin(h.approveVerification))
	mux.HandleFunc("GET /api/verifications/pending", h.requireAdmin(h.listPendingVerifications))

	mux.HandleFunc("GET /api/report", h.requireAdmin(h.buildReport))

	mux.HandleFunc("GET /api/notifications", h.requireAuth(h.listNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", h.requireAuth(h.markNotificationRead))
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a core error onto an HTTP response.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case model.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		h.Logger.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- User handlers ---

func (h *Handlers) listPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Directory.PendingUsers(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handlers) approveUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Directory.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) rejectUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Reject(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Task handlers ---

// createTaskRequest is the body accepted by POST /api/tasks. Exactly one
// of assigned_to and assigned_role must be set.
type createTaskRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Priority     model.TaskPriority `json:"priority"`
	DueDate      time.Time          `json:"due_date"`
	AssignedTo   []string           `json:"assigned_to,omitempty"`
	AssignedRole model.Role         `json:"assigned_role,omitempty"`
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	var assigned model.Assignment
	switch {
	case len(req.AssignedTo) > 0 && req.AssignedRole == "":
		assigned = model.DirectAssignment(req.AssignedTo...)
	case len(req.AssignedTo) == 0 && req.AssignedRole != "":
		assigned = model.RoleAssignment(req.AssignedRole)
	default:
		writeError(w, http.StatusBadRequest, "set exactly one of assigned_to and assigned_role")
		return
	}
	if err := assigned.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}

	task, err := h.Engine.CreateTask(r.Context(), engine.TaskSpec{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Assigned:    assigned,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := assign.TasksForUser(r.Context(), h.Store, *currentUser(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Engine.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// updateStatusRequest is the body accepted by PATCH /api/tasks/{id}/status.
type updateStatusRequest struct {
	Status model.TaskStatus `json:"status"`
}

func (h *Handlers) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.Engine.UpdateStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// commentRequest is the body accepted by POST /api/tasks/{id}/comments.
type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	comment, err := h.Engine.AddComment(r.Context(), r.PathValue("id"), currentUser(r).ID, req.Text)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// --- Verification handlers ---

// verificationRequestBody is the body accepted by
// POST /api/tasks/{id}/verification.
type verificationRequestBody struct {
	Comment string `json:"comment"`
}

func (h *Handlers) submitVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	vr, err := h.Engine.SubmitVerification(
		r.Context(), r.PathValue("id"), currentUser(r).ID, req.Comment,
	)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vr)
}

// approveVerificationRequest is the body accepted by
// POST /api/tasks/{id}/verification/approve.
type approveVerificationRequest struct {
	Comment string `json:"comment"`
}

func (h *Handlers) approveVerification(w http.ResponseWriter, r *http.Request) {
	var req approveVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := h.Engine.ApproveVerification(r.Context(), r.PathValue("id"), req.Comment)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) listPendingVerifications(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Engine.PendingVerifications(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- Report handler ---

func (h *Handlers) buildReport(w http.ResponseWriter, r *http.Request) {
	period := report.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = report.PeriodWeekly
	}

	rep, err := report.Build(r.Context(), h.Store, period, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// --- Notification handlers ---

func (h *Handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var (
		notifications []model.Notification
		err           error
	)
	if r.URL.Query().Get("unread") == "1" {
		notifications, err = h.Inbox.Unread(r.Context(), user.ID)
	} else {
		notifications, err = h.Inbox.ForUser(r.Context(), user.ID)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Inbox.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
