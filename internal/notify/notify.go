// Package notify delivers per-user notifications emitted by the task
// lifecycle engine and the user directory. State transitions produce
// Message values; a Sink turns them into stored notifications.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/store"
)

// Message is a single notification effect produced by a state
// transition, before delivery.
type Message struct {
	// UserID is the recipient.
	UserID string

	Title   string
	Message string

	// Link is an optional deep-link into the surrounding application.
	Link string
}

// Sink delivers messages to their recipients. The surrounding system
// decides what delivery means; the engine only emits.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// Dispatch delivers a batch of messages to a sink, stopping at the
// first failure.
func Dispatch(ctx context.Context, sink Sink, msgs []Message) error {
	for _, m := range msgs {
		if err := sink.Notify(ctx, m); err != nil {
			return fmt.Errorf("delivering notification to %s: %w", m.UserID, err)
		}
	}
	return nil
}

// StoreSink persists messages as in-app notifications.
type StoreSink struct {
	store store.Store
	now   func() time.Time
	newID func() string
}

// NewStoreSink creates a sink writing to the given store.
func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Notify stores the message as an unread notification.
func (s *StoreSink) Notify(ctx context.Context, msg Message) error {
	return s.store.CreateNotification(ctx, model.Notification{
		ID:        s.newID(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		Link:      msg.Link,
		Read:      false,
		CreatedAt: s.now(),
	})
}

// Inbox reads a user's notifications back out of the store.
type Inbox struct {
	store store.Store
}

// NewInbox creates an inbox over the given store.
func NewInbox(s store.Store) *Inbox {
	return &Inbox{store: s}
}

// ForUser returns every notification addressed to the user, newest first.
func (i *Inbox) ForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	return i.store.GetNotificationsForUser(ctx, userID)
}

// Unread returns the user's unread notifications, newest first.
func (i *Inbox) Unread(ctx context.Context, userID string) ([]model.Notification, error) {
	return i.store.GetUnreadNotificationsForUser(ctx, userID)
}

// MarkRead marks a single notification as read.
func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	return i.store.MarkNotificationRead(ctx, id)
}
