package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/google/uuid"
)

type TaskService struct {
	db *sql.DB
}

func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = `t.id, t.title, COALESCE(t.description, ''), t.status, t.priority, t.due_date,
	t.assignee_id, t.client_id, t.is_shared, COALESCE(t.created_by::text, ''), t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&t.AssigneeID, &t.ClientID, &t.IsShared, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// TaskFilter narrows a task listing beyond visibility.
type TaskFilter struct {
	Status   models.TaskStatus
	ClientID string
}

func (s *TaskService) List(ctx context.Context, userID string, view View, f TaskFilter) ([]models.Task, error) {
	visible, err := TaskPredicate(userID, view)
	if err != nil {
		return nil, err
	}
	preds := []Predicate{visible}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalidArg("unknown task status %q", string(f.Status))
		}
		preds = append(preds, where("t.status = ?", f.Status))
	}
	if f.ClientID != "" {
		id, err := ParseID("client_id", f.ClientID)
		if err != nil {
			return nil, err
		}
		preds = append(preds, where("t.client_id = ?", id))
	}

	query, args := build(`SELECT `+taskColumns+` FROM tasks t`, And(preds...),
		"ORDER BY t.due_date NULLS LAST, t.created_at, t.id")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storeErr("list tasks", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, storeErr("list tasks", rows.Err())
}

// load fetches a task and its grants without any visibility check.
func (s *TaskService) load(ctx context.Context, taskID string) (*models.Task, []models.SharedTaskGrant, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, taskID))
	if err != nil {
		return nil, nil, storeErr("task", err)
	}
	grants, err := s.grants(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	return &t, grants, nil
}

// Get returns a task visible to the caller: assignee, grantee, creator or
// anyone when the task is shared with the team.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	t, _, err := s.getWithGrants(ctx, userID, id)
	return t, err
}

func (s *TaskService) getWithGrants(ctx context.Context, userID, id string) (*models.Task, []models.SharedTaskGrant, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	taskID, err := ParseID("taskId", id)
	if err != nil {
		return nil, nil, err
	}
	t, grants, err := s.load(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !TaskVisible(*t, grants, userID) && !t.IsShared && t.CreatedBy != userID {
		return nil, nil, notFound("task")
	}
	return t, grants, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidArg("title is required")
	}
	status := req.Status
	if status == "" {
		status = models.TaskPending
	}
	if !status.Valid() {
		return nil, invalidArg("unknown task status %q", string(status))
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidArg("unknown task priority %q", string(priority))
	}
	assignee, err := parseOptionalID("assignee_id", req.AssigneeID)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		self := userID
		assignee = &self
	}
	clientID, err := parseOptionalID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &models.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
		AssigneeID:  assignee,
		ClientID:    clientID,
		IsShared:    req.IsShared,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, title, description, status, priority, due_date, assignee_id,
				client_id, is_shared, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssigneeID,
			t.ClientID, t.IsShared, t.CreatedBy, t.CreatedAt, t.UpdatedAt); err != nil {
			return err
		}
		// A creator who assigns the task away keeps edit access via a grant.
		if *t.AssigneeID != userID {
			if _, err := tx.ExecContext(ctx, upsertGrant,
				uuid.New().String(), t.ID, userID, models.GrantEdit, userID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create task", err)
	}
	utils.LogTaskAction("created", t.ID, userID)
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	t, grants, err := s.getWithGrants(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !TaskEditable(*t, grants, userID) {
		return nil, ErrForbidden
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, invalidArg("title must not be empty")
		}
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invalidArg("unknown task status %q", string(*req.Status))
		}
		t.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, invalidArg("unknown task priority %q", string(*req.Priority))
		}
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.AssigneeID != nil {
		assignee, err := ParseID("assignee_id", *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		t.AssigneeID = &assignee
	}
	if req.IsShared != nil {
		t.IsShared = *req.IsShared
	}
	t.UpdatedAt = time.Now()

	err = execOne(ctx, s.db, "task", `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5,
		    assignee_id = $6, is_shared = $7, updated_at = $8
		WHERE id = $9`,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssigneeID, t.IsShared, t.UpdatedAt, t.ID)
	if err != nil {
		return nil, err
	}
	utils.LogTaskAction("updated", t.ID, userID)
	return t, nil
}

// Delete is allowed to the creator and the assignee. Grants cascade.
func (s *TaskService) Delete(ctx context.Context, userID, id string) (*models.Task, error) {
	t, _, err := s.getWithGrants(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != userID && (t.AssigneeID == nil || *t.AssigneeID != userID) {
		return nil, ErrForbidden
	}
	if err := execOne(ctx, s.db, "task", `DELETE FROM tasks WHERE id = $1`, t.ID); err != nil {
		return nil, err
	}
	utils.LogTaskAction("deleted", t.ID, userID)
	return t, nil
}

// ============================================================================
// SHARING
// ============================================================================

const upsertGrant = `
	INSERT INTO shared_task_grants (id, task_id, grantee_id, permission, granted_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (task_id, grantee_id) DO UPDATE SET permission = EXCLUDED.permission`

// Share grants another user access. Only the side table is written; the
// task row is never touched.
func (s *TaskService) Share(ctx context.Context, userID, id string, req models.ShareTaskRequest) (*models.SharedTaskGrant, *models.Task, error) {
	t, grants, err := s.getWithGrants(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if !TaskEditable(*t, grants, userID) {
		return nil, nil, ErrForbidden
	}
	grantee, err := ParseID("user_id", req.UserID)
	if err != nil {
		return nil, nil, err
	}
	perm := req.Permission
	if perm == "" {
		perm = models.GrantView
	}
	if !perm.Valid() {
		return nil, nil, invalidArg("permission must be 'view' or 'edit'")
	}

	g := &models.SharedTaskGrant{
		ID:         uuid.New().String(),
		TaskID:     t.ID,
		GranteeID:  grantee,
		Permission: perm,
		GrantedBy:  userID,
		CreatedAt:  time.Now(),
	}
	if _, err := s.db.ExecContext(ctx, upsertGrant,
		g.ID, g.TaskID, g.GranteeID, g.Permission, g.GrantedBy, g.CreatedAt); err != nil {
		return nil, nil, storeErr("share task", err)
	}
	utils.LogTaskAction("shared", t.ID, userID)
	return g, t, nil
}

func (s *TaskService) Revoke(ctx context.Context, userID, id, granteeID string) error {
	t, grants, err := s.getWithGrants(ctx, userID, id)
	if err != nil {
		return err
	}
	grantee, err := ParseID("userId", granteeID)
	if err != nil {
		return err
	}
	// Grantees may always drop their own access.
	if grantee != userID && !TaskEditable(*t, grants, userID) {
		return ErrForbidden
	}
	if err := execOne(ctx, s.db, "grant",
		`DELETE FROM shared_task_grants WHERE task_id = $1 AND grantee_id = $2`, t.ID, grantee); err != nil {
		return err
	}
	utils.LogTaskAction("revoked", t.ID, userID)
	return nil
}

func (s *TaskService) Grants(ctx context.Context, userID, id string) ([]models.SharedTaskGrant, error) {
	_, grants, err := s.getWithGrants(ctx, userID, id)
	return grants, err
}

func (s *TaskService) grants(ctx context.Context, taskID string) ([]models.SharedTaskGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, grantee_id, permission, COALESCE(granted_by::text, ''), created_at
		FROM shared_task_grants WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, storeErr("task grants", err)
	}
	defer rows.Close()

	grants := []models.SharedTaskGrant{}
	for rows.Next() {
		var g models.SharedTaskGrant
		if err := rows.Scan(&g.ID, &g.TaskID, &g.GranteeID, &g.Permission, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, storeErr("task grants", err)
		}
		grants = append(grants, g)
	}
	return grants, storeErr("task grants", rows.Err())
}
