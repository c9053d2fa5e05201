// Package directory manages user accounts: registration, the admin
// approval flow, and authentication. Only approved users may
// authenticate or be assigned work.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/internal/store"
)

// Directory is the user directory service.
type Directory struct {
	store store.Store
	sink  notify.Sink
	now   func() time.Time
	newID func() string
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithIDGenerator overrides the id source, for deterministic tests.
// Generated ids must be unique for the process lifetime.
func WithIDGenerator(newID func() string) Option {
	return func(d *Directory) { d.newID = newID }
}

// New creates a Directory over the given store and notification sink.
func New(s store.Store, sink notify.Sink, opts ...Option) *Directory {
	d := &Directory{
		store: s,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register creates a new account in pending status and notifies every
// admin that a registration is awaiting review. Fails with
// model.ErrDuplicateEmail if the email is already registered.
func (d *Directory) Register(
	ctx context.Context,
	name, email, password string,
	role model.Role,
) (*model.User, error) {
	if _, err := d.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("registering %s: %w", email, model.ErrDuplicateEmail)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("registering %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := model.User{
		ID:           d.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.UserPending,
		CreatedAt:    d.now(),
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	msgs, err := d.adminBroadcast(ctx, notify.Message{
		Title: "New User Registration",
		Message: fmt.Sprintf(
			"%s has registered as a %s. Please review their account.",
			user.Name, user.Role,
		),
		Link: "/admin/users",
	})
	if err != nil {
		return nil, err
	}
	if err := notify.Dispatch(ctx, d.sink, msgs); err != nil {
		return nil, err
	}

	return &user, nil
}

// Approve marks a pending account as approved and notifies the user.
// Fails with model.ErrNotFound if the id is unknown or the account has
// already been resolved.
func (d *Directory) Approve(ctx context.Context, userID string) (*model.User, error) {
	user, err := d.pendingUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := d.store.UpdateUserStatus(ctx, userID, model.UserApproved); err != nil {
		return nil, err
	}
	user.Status = model.UserApproved

	err = d.sink.Notify(ctx, notify.Message{
		UserID:  userID,
		Title:   "Account Approved",
		Message: "Your account has been approved by the admin. You can now log in.",
		Link:    "/login",
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Reject notifies a pending user of the rejection, then deletes the
// account. Rejected accounts are not retained. Fails with
// model.ErrNotFound if the id is unknown or the account has already
// been resolved.
func (d *Directory) Reject(ctx context.Context, userID string) error {
	if _, err := d.pendingUser(ctx, userID); err != nil {
		return err
	}

	// Notify first: the notification outlives the account record.
	err := d.sink.Notify(ctx, notify.Message{
		UserID:  userID,
		Title:   "Account Rejected",
		Message: "Your account registration has been rejected by the admin.",
		Link:    "/login",
	})
	if err != nil {
		return err
	}

	return d.store.DeleteUser(ctx, userID)
}

// Authenticate verifies an email/password pair against an approved
// account. Unknown email, wrong password, and an account that is not
// approved all fail with model.ErrInvalidCredentials, so a caller
// cannot distinguish the cases.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := d.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	if user.Status != model.UserApproved {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by id.
func (d *Directory) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return d.store.GetUserByID(ctx, userID)
}

// PendingUsers lists accounts awaiting admin review.
func (d *Directory) PendingUsers(ctx context.Context) ([]model.User, error) {
	status := model.UserPending
	return d.store.GetUsers(ctx, store.UserFilter{Status: &status})
}

// ApprovedByRole lists the approved users currently holding a role.
// Membership is recomputed on every call, never cached.
func (d *Directory) ApprovedByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	status := model.UserApproved
	return d.store.GetUsers(ctx, store.UserFilter{Status: &status, Role: &role})
}

// Admins lists the approved admin accounts.
func (d *Directory) Admins(ctx context.Context) ([]model.User, error) {
	return d.ApprovedByRole(ctx, model.RoleAdmin)
}

// pendingUser loads a user and verifies it is still pending. Resolved or
// unknown accounts both report model.ErrNotFound.
func (d *Directory) pendingUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserPending {
		return nil, fmt.Errorf("pending user %s: %w", userID, model.ErrNotFound)
	}
	return user, nil
}

// adminBroadcast fans a message template out to every admin.
func (d *Directory) adminBroadcast(ctx context.Context, template notify.Message) ([]notify.Message, error) {
	admins, err := d.Admins(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	msgs := make([]notify.Message, 0, len(admins))
	for _, admin := range admins {
		msg := template
		msg.UserID = admin.ID
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
