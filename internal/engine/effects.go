package engine

import (
	"fmt"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
)

// The functions below compute the notifications a transition owes
// without touching a sink, so transition behavior tests as plain data.

// newTaskMessages returns one assignment notice per resolved assignee.
func newTaskMessages(t model.Task, assignees []string) []notify.Message {
	msgs := make([]notify.Message, 0, len(assignees))
	for _, userID := range assignees {
		msgs = append(msgs, notify.Message{
			UserID:  userID,
			Title:   "New Task Assigned",
			Message: fmt.Sprintf("You have been assigned to %q", t.Title),
			Link:    "/tasks/" + t.ID,
		})
	}
	return msgs
}

// verificationRequestedMessages returns one review notice per admin.
func verificationRequestedMessages(t model.Task, admins []model.User) []notify.Message {
	msgs := make([]notify.Message, 0, len(admins))
	for _, admin := range admins {
		msgs = append(msgs, notify.Message{
			UserID:  admin.ID,
			Title:   "Verification Requested",
			Message: fmt.Sprintf("A verification has been requested for %q", t.Title),
			Link:    "/admin/verify/" + t.ID,
		})
	}
	return msgs
}

// verifiedMessage returns the approval notice for the submitter.
func verifiedMessage(t model.Task, vr model.VerificationRequest) notify.Message {
	return notify.Message{
		UserID:  vr.UserID,
		Title:   "Task Verified",
		Message: fmt.Sprintf("Your task %q has been verified", t.Title),
		Link:    "/tasks/" + t.ID,
	}
}
