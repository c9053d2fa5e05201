package model

import "time"

// Notification is a message surfaced to a single user about a
// state-changing event (registration, assignment, verification).
// Notifications are immutable except for the read flag.
type Notification struct {
	ID string `json:"id" db:"id"`

	// UserID is the recipient.
	UserID string `json:"user_id" db:"user_id"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	// Link is an optional deep-link into the surrounding application.
	Link string `json:"link,omitempty" db:"link"`

	// Read indicates whether the recipient has seen this notification.
	Read bool `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
