package models

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type GrantPermission string

const (
	GrantView GrantPermission = "view"
	GrantEdit GrantPermission = "edit"
)

func (p GrantPermission) Valid() bool {
	return p == GrantView || p == GrantEdit
}

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	AssigneeID  *string      `json:"assignee_id"`
	ClientID    *string      `json:"client_id,omitempty"`
	IsShared    bool         `json:"is_shared"`
	CreatedBy   string       `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// SharedTaskGrant records that a task was shared with one specific user.
type SharedTaskGrant struct {
	ID         string          `json:"id"`
	TaskID     string          `json:"task_id"`
	GranteeID  string          `json:"grantee_id"`
	Permission GrantPermission `json:"permission"`
	GrantedBy  string          `json:"granted_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CreateTaskRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	AssigneeID  *string      `json:"assignee_id"`
	ClientID    *string      `json:"client_id"`
	IsShared    bool         `json:"is_shared"`
}

type UpdateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status"`
	Priority    *TaskPriority `json:"priority"`
	DueDate     *time.Time    `json:"due_date"`
	AssigneeID  *string       `json:"assignee_id"`
	IsShared    *bool         `json:"is_shared"`
}

type ShareTaskRequest struct {
	UserID     string          `json:"user_id" binding:"required"`
	Permission GrantPermission `json:"permission"`
}
