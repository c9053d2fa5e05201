package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kvn/taskhub/internal/model"
)

// CreateTask inserts a new task record.
func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) error {
	kind, users, role, err := assignmentColumns(t.Assigned)
	if err != nil {
		return fmt.Errorf("creating task %s: %w", t.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority,
			assign_kind, assign_users, assign_role,
			created_at, due_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority),
		kind, users, role,
		t.CreatedAt.UTC(), t.DueDate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating task %s: %w", t.ID, err)
	}
	return nil
}

// GetTaskByID retrieves a single task with its comments and verification
// request loaded.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task %s: %w", id, err)
		}
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadTaskDetails(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasks retrieves tasks matching the filter, each with comments and
// verification request loaded.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.AssigneeID != nil {
		// Direct-user sets are stored as a JSON string array; matching
		// on the quoted id is exact because ids never contain quotes.
		conditions = append(conditions, "assign_kind = 'direct' AND assign_users LIKE ?")
		args = append(args, `%"`+*filter.AssigneeID+`"%`)
	}
	if filter.Role != nil {
		conditions = append(conditions, "assign_kind = 'role' AND assign_role = ?")
		args = append(args, string(*filter.Role))
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "created_at"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":      true,
			"status":     true,
			"created_at": true,
			"due_date":   true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadTaskDetails(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

// UpdateTaskStatus overwrites a task's status.
func (s *SQLiteStore) UpdateTaskStatus(
	ctx context.Context,
	id string,
	status model.TaskStatus,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating status for task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// AddComment appends a comment to its task's thread.
func (s *SQLiteStore) AddComment(ctx context.Context, c model.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.UserID, c.Text, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding comment to task %s: %w", c.TaskID, err)
	}
	return nil
}

// GetComments retrieves a task's comments, oldest first.
func (s *SQLiteStore) GetComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.SelectContext(ctx, &comments,
		"SELECT * FROM comments WHERE task_id = ? ORDER BY created_at, id", taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments for task %s: %w", taskID, err)
	}
	return comments, nil
}

// SetVerification replaces the task's verification request and updates
// the task status in one transaction. The task row is updated first so a
// dangling task id fails before anything is written.
func (s *SQLiteStore) SetVerification(
	ctx context.Context,
	vr model.VerificationRequest,
	status model.TaskStatus,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?", string(status), vr.TaskID,
	)
	if err != nil {
		return fmt.Errorf("updating status for task %s: %w", vr.TaskID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", vr.TaskID, model.ErrNotFound)
	}

	var approvedAt interface{}
	if vr.ApprovedAt != nil {
		approvedAt = vr.ApprovedAt.UTC()
	}

	// UNIQUE(task_id) makes this replace any prior request for the task.
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO verification_requests (
			id, task_id, user_id, comment,
			approved, approved_at, approval_comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		vr.ID, vr.TaskID, vr.UserID, vr.Comment,
		boolToInt(vr.Approved), approvedAt, vr.ApprovalComment, vr.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing verification request for task %s: %w", vr.TaskID, err)
	}

	return tx.Commit()
}

// GetVerification retrieves the verification request for a task, or
// model.ErrNotFound if the task has none.
func (s *SQLiteStore) GetVerification(
	ctx context.Context,
	taskID string,
) (*model.VerificationRequest, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM verification_requests WHERE task_id = ?", taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting verification for task %s: %w", taskID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting verification for task %s: %w", taskID, err)
		}
		return nil, fmt.Errorf("verification for task %s: %w", taskID, model.ErrNotFound)
	}
	vr, err := scanVerification(rows)
	if err != nil {
		return nil, err
	}
	return &vr, nil
}

// GetPendingVerifications retrieves every task carrying an unapproved
// verification request, oldest submission first.
func (s *SQLiteStore) GetPendingVerifications(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT tasks.* FROM tasks
		JOIN verification_requests vr ON vr.task_id = tasks.id
		WHERE vr.approved = 0
		ORDER BY vr.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending verifications: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadTaskDetails(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

// loadTaskDetails populates a task's comments and verification request.
func (s *SQLiteStore) loadTaskDetails(ctx context.Context, t *model.Task) error {
	comments, err := s.GetComments(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Comments = comments

	vr, err := s.GetVerification(ctx, t.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			t.Verification = nil
			return nil
		}
		return err
	}
	t.Verification = vr
	return nil
}

// assignmentColumns flattens an Assignment into its storage columns.
func assignmentColumns(a model.Assignment) (kind, usersJSON, role string, err error) {
	if err := a.Validate(); err != nil {
		return "", "", "", err
	}
	if users, ok := a.Users(); ok {
		raw, err := json.Marshal(users)
		if err != nil {
			return "", "", "", fmt.Errorf("marshaling assignment users: %w", err)
		}
		return string(model.AssignDirect), string(raw), "", nil
	}
	r, _ := a.Role()
	return string(model.AssignByRole), "[]", string(r), nil
}

// assignmentFromColumns rebuilds an Assignment from its storage columns.
func assignmentFromColumns(kind, usersJSON, role string) (model.Assignment, error) {
	switch model.AssignmentKind(kind) {
	case model.AssignDirect:
		var users []string
		if err := json.Unmarshal([]byte(usersJSON), &users); err != nil {
			return model.Assignment{}, fmt.Errorf("unmarshaling assignment users: %w", err)
		}
		return model.DirectAssignment(users...), nil
	case model.AssignByRole:
		return model.RoleAssignment(model.Role(role)), nil
	}
	return model.Assignment{}, fmt.Errorf("unknown assignment kind %q", kind)
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task        model.Task
		status      string
		priority    string
		assignKind  string
		assignUsers string
		assignRole  string
		createdAt   time.Time
		dueDate     time.Time
	)

	err := rows.Scan(
		&task.ID, &task.Title, &task.Description, &status, &priority,
		&assignKind, &assignUsers, &assignRole,
		&createdAt, &dueDate,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.TaskStatus(status)
	task.Priority = model.TaskPriority(priority)
	task.CreatedAt = createdAt
	task.DueDate = dueDate

	assigned, err := assignmentFromColumns(assignKind, assignUsers, assignRole)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task %s: %w", task.ID, err)
	}
	task.Assigned = assigned

	return task, nil
}

// scanVerification scans a verification request row.
func scanVerification(rows *sqlx.Rows) (model.VerificationRequest, error) {
	var (
		vr         model.VerificationRequest
		approved   int
		approvedAt sql.NullTime
	)

	err := rows.Scan(
		&vr.ID, &vr.TaskID, &vr.UserID, &vr.Comment,
		&approved, &approvedAt, &vr.ApprovalComment, &vr.CreatedAt,
	)
	if err != nil {
		return model.VerificationRequest{}, fmt.Errorf("scanning verification row: %w", err)
	}

	vr.Approved = approved != 0
	if approvedAt.Valid {
		t := approvedAt.Time
		vr.ApprovedAt = &t
	}

	return vr, nil
}
