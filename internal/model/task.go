package model

import "time"

// TaskStatus is the lifecycle state of a task.
//
// The lifecycle runs pending -> in-progress -> completed -> verified.
// The completed and verified states are reached through the verification
// flow: submitting a verification request forces completed, and an admin
// approval forces verified.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskVerified   TaskStatus = "verified"
)

// Valid reports whether s is one of the four lifecycle states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskVerified:
		return true
	}
	return false
}

// TaskPriority is an ordered urgency level.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Rank returns the ordering of a priority (low < medium < high < urgent).
// Unknown priorities rank below low.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Task is a unit of assignable work. Tasks are owned by the lifecycle
// engine and mutated only through its operations.
type Task struct {
	ID string `json:"id" db:"id"`

	// Title and Description are opaque payload text; the engine never
	// interprets them beyond echoing into notifications.
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	Status   TaskStatus   `json:"status" db:"status"`
	Priority TaskPriority `json:"priority" db:"priority"`

	// Assigned determines who may act on this task: either an explicit
	// set of user ids or a role.
	Assigned Assignment `json:"assigned"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	DueDate   time.Time `json:"due_date" db:"due_date"`

	// Comments is the append-only discussion thread, oldest first.
	Comments []Comment `json:"comments"`

	// Verification is the single live verification request, if any.
	Verification *VerificationRequest `json:"verification_request,omitempty"`
}

// Comment is a single immutable entry in a task's discussion thread.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VerificationRequest is a worker's claim that a task is complete,
// awaiting admin review. A task carries at most one live request;
// resubmitting replaces the previous one.
type VerificationRequest struct {
	ID     string `json:"id" db:"id"`
	TaskID string `json:"task_id" db:"task_id"`

	// UserID is the submitting worker, who is notified on approval.
	UserID string `json:"user_id" db:"user_id"`

	// Comment is the submitter's free-text completion note.
	Comment string `json:"comment" db:"comment"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Approved        bool       `json:"approved" db:"approved"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovalComment string     `json:"approval_comment,omitempty" db:"approval_comment"`
}
