package store

import (
	"context"
	"time"

	"github.com/kvn/taskhub/internal/model"
)

// UserFilter controls filtering for user directory queries.
type UserFilter struct {
	Status *model.UserStatus
	Role   *model.Role
}

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssigneeID  *string          // tasks whose direct-user set contains this id
	Role        *model.Role      // tasks assigned to this role
	CreatedFrom *time.Time       // inclusive lower bound on created_at
	CreatedTo   *time.Time       // inclusive upper bound on created_at
	SortBy      string           // "created_at", "due_date", "title", "status"
	SortDesc    bool
	Limit       int
	Offset      int
}

// Store defines the persistence interface for users, tasks, comments,
// verification requests, and notifications. Implementations must map
// missing rows to model.ErrNotFound.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, u model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
	UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error
	DeleteUser(ctx context.Context, id string) error

	// === Tasks ===

	CreateTask(ctx context.Context, t model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error

	// === Comments ===

	AddComment(ctx context.Context, c model.Comment) error
	GetComments(ctx context.Context, taskID string) ([]model.Comment, error)

	// === Verification requests ===

	// SetVerification replaces the task's verification request and
	// updates the task status in the same transaction, so the two can
	// never disagree on disk.
	SetVerification(ctx context.Context, vr model.VerificationRequest, status model.TaskStatus) error
	GetVerification(ctx context.Context, taskID string) (*model.VerificationRequest, error)
	GetPendingVerifications(ctx context.Context) ([]model.Task, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetNotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error)
	GetUnreadNotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
