package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/store"
	"github.com/kvn/taskhub/tests/testutil"
)

func newTask(id string, assigned model.Assignment) model.Task {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return model.Task{
		ID:        id,
		Title:     "task " + id,
		Status:    model.TaskPending,
		Priority:  model.PriorityHigh,
		Assigned:  assigned,
		CreatedAt: now,
		DueDate:   now.AddDate(0, 0, 14),
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	direct := newTask("t1", model.DirectAssignment("u1", "u2"))
	require.NoError(t, s.CreateTask(ctx, direct))

	got, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, direct.Title, got.Title)
	assert.Equal(t, direct.Status, got.Status)
	assert.Equal(t, direct.Priority, got.Priority)
	users, ok := got.Assigned.Users()
	require.True(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, users)
	assert.Empty(t, got.Comments)
	assert.Nil(t, got.Verification)

	byRole := newTask("t2", model.RoleAssignment(model.RoleDesigner))
	require.NoError(t, s.CreateTask(ctx, byRole))

	got, err = s.GetTaskByID(ctx, "t2")
	require.NoError(t, err)
	role, ok := got.Assigned.Role()
	require.True(t, ok)
	assert.Equal(t, model.RoleDesigner, role)

	_, err = s.GetTaskByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetTasksFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, newTask("t1", model.DirectAssignment("u1"))))
	require.NoError(t, s.CreateTask(ctx, newTask("t2", model.DirectAssignment("u2"))))
	require.NoError(t, s.CreateTask(ctx, newTask("t3", model.RoleAssignment(model.RoleBackend))))
	require.NoError(t, s.UpdateTaskStatus(ctx, "t2", model.TaskInProgress))

	assignee := "u1"
	tasks, err := s.GetTasks(ctx, store.TaskFilter{AssigneeID: &assignee})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)

	role := model.RoleBackend
	tasks, err = s.GetTasks(ctx, store.TaskFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t3", tasks[0].ID)

	status := model.TaskInProgress
	tasks, err = s.GetTasks(ctx, store.TaskFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t2", tasks[0].ID)

	tasks, err = s.GetTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestUpdateTaskStatusUnknownTask(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.UpdateTaskStatus(context.Background(), "missing", model.TaskInProgress)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCommentsAppendInOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, newTask("t1", model.DirectAssignment("u1"))))

	base := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.AddComment(ctx, model.Comment{
			ID:        id,
			TaskID:    "t1",
			UserID:    "u1",
			Text:      "note " + id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	comments, err := s.GetComments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c3", comments[2].ID)
}

func TestSetVerificationReplacesAndStaysAtomic(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, newTask("t1", model.DirectAssignment("u1"))))

	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	first := model.VerificationRequest{
		ID: "v1", TaskID: "t1", UserID: "u1", Comment: "first", CreatedAt: now,
	}
	require.NoError(t, s.SetVerification(ctx, first, model.TaskCompleted))

	task, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	require.NotNil(t, task.Verification)
	assert.Equal(t, "v1", task.Verification.ID)

	// A second request replaces the first outright.
	second := model.VerificationRequest{
		ID: "v2", TaskID: "t1", UserID: "u2", Comment: "second", CreatedAt: now.Add(time.Hour),
	}
	require.NoError(t, s.SetVerification(ctx, second, model.TaskCompleted))

	task, err = s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, task.Verification)
	assert.Equal(t, "v2", task.Verification.ID)
	assert.Equal(t, "second", task.Verification.Comment)

	pending, err := s.GetPendingVerifications(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Writing against an unknown task fails without side effects.
	err = s.SetVerification(ctx, model.VerificationRequest{
		ID: "v3", TaskID: "missing", UserID: "u1", CreatedAt: now,
	}, model.TaskCompleted)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetVerification(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestApprovedVerificationLeavesPendingQueue(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, newTask("t1", model.DirectAssignment("u1"))))

	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	vr := model.VerificationRequest{
		ID: "v1", TaskID: "t1", UserID: "u1", Comment: "done", CreatedAt: now,
	}
	require.NoError(t, s.SetVerification(ctx, vr, model.TaskCompleted))

	approvedAt := now.Add(2 * time.Hour)
	vr.Approved = true
	vr.ApprovedAt = &approvedAt
	vr.ApprovalComment = "ship it"
	require.NoError(t, s.SetVerification(ctx, vr, model.TaskVerified))

	task, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskVerified, task.Status)
	require.NotNil(t, task.Verification)
	assert.True(t, task.Verification.Approved)
	require.NotNil(t, task.Verification.ApprovedAt)
	assert.Equal(t, approvedAt, task.Verification.ApprovedAt.UTC())

	pending, err := s.GetPendingVerifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
