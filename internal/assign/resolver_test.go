package assign_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvn/taskhub/internal/assign"
	"github.com/kvn/taskhub/internal/directory"
	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/internal/store"
	"github.com/kvn/taskhub/tests/testutil"
)

func seedTask(t *testing.T, s *store.SQLiteStore, id string, assigned model.Assignment) model.Task {
	t.Helper()

	task := model.Task{
		ID:        id,
		Title:     "task " + id,
		Status:    model.TaskPending,
		Priority:  model.PriorityMedium,
		Assigned:  assigned,
		CreatedAt: time.Now().UTC(),
		DueDate:   time.Now().UTC().AddDate(0, 0, 7),
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func TestResolveAssigneesDirect(t *testing.T) {
	s := testutil.NewTestStore(t)
	dir := directory.New(s, notify.NewStoreSink(s))

	// Direct sets come back verbatim: no existence check, dangling ids
	// included.
	ids, err := assign.ResolveAssignees(
		context.Background(),
		model.DirectAssignment("u1", "dangling"),
		dir,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "dangling"}, ids)
}

func TestResolveAssigneesRoleFollowsDirectory(t *testing.T) {
	s := testutil.NewTestStore(t)
	dir := directory.New(s, notify.NewStoreSink(s))
	ctx := context.Background()

	u1, err := dir.Register(ctx, "Backend One", "b1@example.com", "pw", model.RoleBackend)
	require.NoError(t, err)
	u2, err := dir.Register(ctx, "Backend Two", "b2@example.com", "pw", model.RoleBackend)
	require.NoError(t, err)

	spec := model.RoleAssignment(model.RoleBackend)

	// Nobody is approved yet.
	ids, err := assign.ResolveAssignees(ctx, spec, dir)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Membership is recomputed on every call, so approvals between
	// calls change the result.
	_, err = dir.Approve(ctx, u1.ID)
	require.NoError(t, err)
	ids, err = assign.ResolveAssignees(ctx, spec, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{u1.ID}, ids)

	_, err = dir.Approve(ctx, u2.ID)
	require.NoError(t, err)
	ids, err = assign.ResolveAssignees(ctx, spec, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{u1.ID, u2.ID}, ids)
}

func TestOwns(t *testing.T) {
	worker := model.User{ID: "u1", Role: model.RoleFrontend}

	assert.True(t, assign.Owns(worker, model.Task{Assigned: model.DirectAssignment("u1", "u2")}))
	assert.False(t, assign.Owns(worker, model.Task{Assigned: model.DirectAssignment("u2")}))
	assert.True(t, assign.Owns(worker, model.Task{Assigned: model.RoleAssignment(model.RoleFrontend)}))
	assert.False(t, assign.Owns(worker, model.Task{Assigned: model.RoleAssignment(model.RoleBackend)}))
}

func TestTasksForUserDeduplicates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	worker := model.User{ID: "u1", Role: model.RoleBackend}

	direct := seedTask(t, s, "t1", model.DirectAssignment("u1"))
	byRole := seedTask(t, s, "t2", model.RoleAssignment(model.RoleBackend))
	seedTask(t, s, "t3", model.DirectAssignment("someone-else"))
	seedTask(t, s, "t4", model.RoleAssignment(model.RoleDesigner))

	tasks, err := assign.TasksForUser(ctx, s, worker)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, direct.ID, tasks[0].ID)
	assert.Equal(t, byRole.ID, tasks[1].ID)

	// Listing twice must not duplicate a task that matches both ways.
	both := model.User{ID: "someone-else", Role: model.RoleBackend}
	tasks, err = assign.TasksForUser(ctx, s, both)
	require.NoError(t, err)
	ids := make(map[string]int)
	for _, task := range tasks {
		ids[task.ID]++
	}
	assert.Equal(t, map[string]int{"t2": 1, "t3": 1}, ids)
}

func TestTasksForUserAdminSeesAll(t *testing.T) {
	s := testutil.NewTestStore(t)

	seedTask(t, s, "t1", model.DirectAssignment("u1"))
	seedTask(t, s, "t2", model.RoleAssignment(model.RoleDesigner))

	admin := model.User{ID: "a1", Role: model.RoleAdmin}
	tasks, err := assign.TasksForUser(context.Background(), s, admin)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}
