// Package engine owns the task lifecycle: creation, status changes,
// comments, and the verification gate in front of the verified state.
// Tasks are mutated only through engine operations; every mutation
// either fully commits (including its notifications) or fails before
// anything observable changes.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kvn/taskhub/internal/assign"
	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/internal/store"
)

// DirectoryReader is the slice of the user directory the engine needs:
// role expansion for assignments and the admin list for verification
// review notices.
type DirectoryReader interface {
	ApprovedByRole(ctx context.Context, role model.Role) ([]model.User, error)
	Admins(ctx context.Context) ([]model.User, error)
}

// Engine is the task lifecycle engine. A single mutex serializes all
// mutating operations: SubmitVerification read-modify-writes a task's
// verification request and status together, and a lost update would
// leave the two disagreeing.
type Engine struct {
	mu    sync.Mutex
	store store.Store
	dir   DirectoryReader
	sink  notify.Sink
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the id source, for deterministic tests.
// Generated ids must be unique for the process lifetime.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an Engine over the given store, directory, and
// notification sink.
func New(s store.Store, dir DirectoryReader, sink notify.Sink, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		dir:   dir,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TaskSpec describes a task to create. The engine treats Title and
// Description as opaque text.
type TaskSpec struct {
	Title       string
	Description string
	Priority    model.TaskPriority
	DueDate     time.Time
	Assigned    model.Assignment
}

// CreateTask creates a task in pending status with an empty comment
// thread and no verification request. Everyone the assignment resolves
// to right now receives a "New Task Assigned" notification: the listed
// users for a direct assignment, the currently-approved role members
// for a role assignment. Later role changes do not re-notify.
func (e *Engine) CreateTask(ctx context.Context, spec TaskSpec) (*model.Task, error) {
	if err := spec.Assigned.Validate(); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	assignees, err := assign.ResolveAssignees(ctx, spec.Assigned, e.dir)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		ID:          e.newID(),
		Title:       spec.Title,
		Description: spec.Description,
		Status:      model.TaskPending,
		Priority:    spec.Priority,
		Assigned:    spec.Assigned,
		CreatedAt:   e.now(),
		DueDate:     spec.DueDate,
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	if err := notify.Dispatch(ctx, e.sink, newTaskMessages(task, assignees)); err != nil {
		return nil, err
	}

	return &task, nil
}

// UpdateStatus overwrites a task's status. The engine does not enforce
// the transition table here: callers layered on top own that policy,
// and the verification flow is the only path into completed and
// verified that the surrounding application uses. Fails with
// model.ErrNotFound for an unknown task.
func (e *Engine) UpdateStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.UpdateTaskStatus(ctx, taskID, status)
}

// AddComment appends a comment to a task's thread. Comments are pull,
// not push: no notification is emitted. Fails with model.ErrNotFound
// for an unknown task.
func (e *Engine) AddComment(
	ctx context.Context,
	taskID, authorID, text string,
) (*model.Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.GetTaskByID(ctx, taskID); err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        e.newID(),
		TaskID:    taskID,
		UserID:    authorID,
		Text:      text,
		CreatedAt: e.now(),
	}
	if err := e.store.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetTask retrieves a task with its comments and verification request.
func (e *Engine) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	return e.store.GetTaskByID(ctx, taskID)
}

// ListTasks retrieves tasks matching the filter.
func (e *Engine) ListTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error) {
	return e.store.GetTasks(ctx, filter)
}
