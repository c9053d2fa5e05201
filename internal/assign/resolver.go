// Package assign resolves task assignment specs to the concrete users
// who may act on them. Role membership is looked up on every call, so a
// role-assigned task follows directory changes without resynchronization.
package assign

import (
	"context"
	"fmt"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/store"
)

// RoleMembers looks up the approved users currently holding a role.
type RoleMembers interface {
	ApprovedByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

// TaskLister lists tasks matching a filter.
type TaskLister interface {
	GetTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// ResolveAssignees computes the set of user ids who may act on an
// assignment. Direct assignments are returned verbatim: ids are not
// checked for existence, and dangling references resolve to nothing at
// read time. Role assignments expand to the currently-approved holders
// of the role.
func ResolveAssignees(
	ctx context.Context,
	a model.Assignment,
	members RoleMembers,
) ([]string, error) {
	if users, ok := a.Users(); ok {
		out := make([]string, len(users))
		copy(out, users)
		return out, nil
	}

	role, ok := a.Role()
	if !ok {
		return nil, fmt.Errorf("resolving assignees: %w", a.Validate())
	}

	holders, err := members.ApprovedByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolving role %s: %w", role, err)
	}
	ids := make([]string, 0, len(holders))
	for _, u := range holders {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// Owns reports whether a user may act on a task: either their id is in
// the task's direct-user set, or their role matches its role spec.
func Owns(user model.User, t model.Task) bool {
	if users, ok := t.Assigned.Users(); ok {
		for _, id := range users {
			if id == user.ID {
				return true
			}
		}
		return false
	}
	role, _ := t.Assigned.Role()
	return role == user.Role
}

// TasksForUser builds a user's personal task view. Admins see every
// task. Other users see the union of tasks assigned to them directly
// and tasks assigned to their role, deduplicated by task id with direct
// assignments listed first.
func TasksForUser(
	ctx context.Context,
	lister TaskLister,
	user model.User,
) ([]model.Task, error) {
	if user.Role == model.RoleAdmin {
		return lister.GetTasks(ctx, store.TaskFilter{})
	}

	direct, err := lister.GetTasks(ctx, store.TaskFilter{AssigneeID: &user.ID})
	if err != nil {
		return nil, fmt.Errorf("listing direct tasks for %s: %w", user.ID, err)
	}
	byRole, err := lister.GetTasks(ctx, store.TaskFilter{Role: &user.Role})
	if err != nil {
		return nil, fmt.Errorf("listing role tasks for %s: %w", user.ID, err)
	}

	seen := make(map[string]bool, len(direct))
	combined := make([]model.Task, 0, len(direct)+len(byRole))
	for _, t := range direct {
		seen[t.ID] = true
		combined = append(combined, t)
	}
	for _, t := range byRole {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		combined = append(combined, t)
	}
	return combined, nil
}
