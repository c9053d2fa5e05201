package engine

import (
	"context"
	"fmt"

	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
)

// SubmitVerification records a worker's claim that a task is complete.
// Any prior request on the task is replaced; no history is kept, and a
// resubmission is the only way to supersede an unapproved request. The
// task's status is forced to completed in the same transaction, and
// every admin is notified. Fails with model.ErrNotFound for an unknown
// task.
func (e *Engine) SubmitVerification(
	ctx context.Context,
	taskID, userID, comment string,
) (*model.VerificationRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	admins, err := e.dir.Admins(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}

	vr := model.VerificationRequest{
		ID:        e.newID(),
		TaskID:    taskID,
		UserID:    userID,
		Comment:   comment,
		CreatedAt: e.now(),
		Approved:  false,
	}
	if err := e.store.SetVerification(ctx, vr, model.TaskCompleted); err != nil {
		return nil, err
	}

	if err := notify.Dispatch(ctx, e.sink, verificationRequestedMessages(*task, admins)); err != nil {
		return nil, err
	}

	return &vr, nil
}

// ApproveVerification approves a task's verification request: the
// request is stamped and marked approved, the task is forced to
// verified, and the original submitter is notified. Fails with
// model.ErrNotFound if the task is unknown or carries no verification
// request. There is no reject operation: an admin rejects out-of-band
// with a comment and a status change, and the worker resubmits.
func (e *Engine) ApproveVerification(
	ctx context.Context,
	taskID, approvalComment string,
) (*model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Verification == nil {
		return nil, fmt.Errorf("verification for task %s: %w", taskID, model.ErrNotFound)
	}

	vr := *task.Verification
	approvedAt := e.now()
	vr.Approved = true
	vr.ApprovedAt = &approvedAt
	vr.ApprovalComment = approvalComment

	if err := e.store.SetVerification(ctx, vr, model.TaskVerified); err != nil {
		return nil, err
	}

	task.Status = model.TaskVerified
	task.Verification = &vr

	if err := e.sink.Notify(ctx, verifiedMessage(*task, vr)); err != nil {
		return nil, err
	}

	return task, nil
}

// PendingVerifications lists every task whose verification request
// exists and is not yet approved, for admin review queues.
func (e *Engine) PendingVerifications(ctx context.Context) ([]model.Task, error) {
	return e.store.GetPendingVerifications(ctx)
}
