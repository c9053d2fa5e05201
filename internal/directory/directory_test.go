package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvn/taskhub/internal/directory"
	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/tests/testutil"
)

// newTestDirectory wires a directory over a fresh in-memory store with a
// seeded admin account.
func newTestDirectory(t *testing.T) (*directory.Directory, *model.User, *notify.Inbox) {
	t.Helper()

	s := testutil.NewTestStore(t)
	dir := directory.New(s, notify.NewStoreSink(s))

	admin, err := dir.EnsureAdmin(context.Background(), "Admin User", "admin@example.com", "admin123")
	require.NoError(t, err)

	return dir, admin, notify.NewInbox(s)
}

func TestRegisterCreatesPendingAndNotifiesAdmins(t *testing.T) {
	dir, admin, inbox := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Register(ctx, "Sarah Johnson", "sarah.j@example.com", "frontend123", model.RoleFrontend)
	require.NoError(t, err)
	assert.Equal(t, model.UserPending, user.Status)
	assert.Equal(t, model.RoleFrontend, user.Role)

	msgs, err := inbox.ForUser(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "New User Registration", msgs[0].Title)
	assert.Contains(t, msgs[0].Message, "Sarah Johnson")
	assert.False(t, msgs[0].Read)

	pending, err := dir.PendingUsers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, user.ID, pending[0].ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := dir.Register(ctx, "First", "dev@example.com", "pw1", model.RoleBackend)
	require.NoError(t, err)

	_, err = dir.Register(ctx, "Second", "dev@example.com", "pw2", model.RoleDesigner)
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func TestApprove(t *testing.T) {
	dir, _, inbox := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Register(ctx, "David Smith", "david.s@example.com", "backend123", model.RoleBackend)
	require.NoError(t, err)

	approved, err := dir.Approve(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserApproved, approved.Status)

	msgs, err := inbox.ForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Account Approved", msgs[0].Title)

	// A resolved account cannot be approved again.
	_, err = dir.Approve(ctx, user.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestApproveUnknownUser(t *testing.T) {
	dir, _, _ := newTestDirectory(t)

	_, err := dir.Approve(context.Background(), "no-such-user")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRejectDeletesUser(t *testing.T) {
	dir, _, inbox := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Register(ctx, "Emily Brown", "emily.b@example.com", "backend123", model.RoleBackend)
	require.NoError(t, err)

	require.NoError(t, dir.Reject(ctx, user.ID))

	// The record is gone, not retained.
	_, err = dir.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = dir.Authenticate(ctx, "emily.b@example.com", "backend123")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	// The rejection notice outlives the account.
	msgs, err := inbox.ForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Account Rejected", msgs[0].Title)

	// Rejecting again reports the id as unknown.
	assert.ErrorIs(t, dir.Reject(ctx, user.ID), model.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Register(ctx, "Sophie Turner", "sophie.t@example.com", "design123", model.RoleDesigner)
	require.NoError(t, err)

	// Pending accounts cannot log in, and the error does not say why.
	_, err = dir.Authenticate(ctx, "sophie.t@example.com", "design123")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = dir.Approve(ctx, user.ID)
	require.NoError(t, err)

	got, err := dir.Authenticate(ctx, "sophie.t@example.com", "design123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = dir.Authenticate(ctx, "sophie.t@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nobody@example.com", "design123")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestApprovedByRoleIsRecomputed(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()

	u1, err := dir.Register(ctx, "James Wilson", "james.w@example.com", "testing123", model.RoleTesting)
	require.NoError(t, err)

	// Pending users are not role members.
	members, err := dir.ApprovedByRole(ctx, model.RoleTesting)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = dir.Approve(ctx, u1.ID)
	require.NoError(t, err)

	members, err = dir.ApprovedByRole(ctx, model.RoleTesting)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u1.ID, members[0].ID)
}
