package directory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/kvn/taskhub/internal/model"
)

// EnsureAdmin creates an approved admin account with the given
// credentials if no account holds the email yet. It is idempotent:
// restarting with the same config leaves an existing account untouched.
// The bootstrap admin skips the registration/approval flow; someone
// has to be able to approve the first registration.
func (d *Directory) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	existing, err := d.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("checking bootstrap admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing bootstrap admin password: %w", err)
	}

	admin := model.User{
		ID:           d.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Status:       model.UserApproved,
		CreatedAt:    d.now(),
	}
	if err := d.store.CreateUser(ctx, admin); err != nil {
		return nil, err
	}
	return &admin, nil
}
