package services

import (
	"strings"

	"github.com/LovationAdmin/crm-api/models"
)

// View selects which partition of events or tasks a caller lists.
type View string

const (
	ViewAll      View = ""
	ViewShared   View = "shared"
	ViewPersonal View = "personal"
)

// ParseView rejects anything but shared, personal or empty.
func ParseView(raw string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(raw))) {
	case ViewAll:
		return ViewAll, nil
	case ViewShared:
		return ViewShared, nil
	case ViewPersonal:
		return ViewPersonal, nil
	}
	return ViewAll, invalidArg("view must be 'shared' or 'personal'")
}

// EventPredicate is the filter for events the caller may list.
func EventPredicate(userID string, view View) (Predicate, error) {
	if err := requireUser(userID); err != nil {
		return Predicate{}, err
	}
	switch view {
	case ViewShared:
		return where("e.is_shared = TRUE"), nil
	case ViewPersonal:
		return where("e.is_shared = FALSE AND e.owner_id = ?", userID), nil
	case ViewAll:
		return where("e.is_shared = TRUE OR (e.is_shared = FALSE AND e.owner_id = ?)", userID), nil
	}
	return Predicate{}, invalidArg("unknown view %q", string(view))
}

// TaskPredicate is the filter for tasks the caller may list. Without a view
// a task is visible to its assignee and to every grantee.
func TaskPredicate(userID string, view View) (Predicate, error) {
	if err := requireUser(userID); err != nil {
		return Predicate{}, err
	}
	switch view {
	case ViewShared:
		return where("t.is_shared = TRUE"), nil
	case ViewPersonal:
		return where("t.is_shared = FALSE AND t.assignee_id = ?", userID), nil
	case ViewAll:
		return where(`t.assignee_id = ? OR EXISTS (
			SELECT 1 FROM shared_task_grants g WHERE g.task_id = t.id AND g.grantee_id = ?)`, userID, userID), nil
	}
	return Predicate{}, invalidArg("unknown view %q", string(view))
}

// EventVisible mirrors EventPredicate for an already loaded event.
func EventVisible(e models.CalendarEvent, userID string, view View) bool {
	if userID == "" {
		return false
	}
	owned := !e.IsShared && e.OwnerID != nil && *e.OwnerID == userID
	switch view {
	case ViewShared:
		return e.IsShared
	case ViewPersonal:
		return owned
	default:
		return e.IsShared || owned
	}
}

// TaskVisible mirrors TaskPredicate (no view) for a loaded task.
func TaskVisible(t models.Task, grants []models.SharedTaskGrant, userID string) bool {
	if userID == "" {
		return false
	}
	if t.AssigneeID != nil && *t.AssigneeID == userID {
		return true
	}
	return grantFor(t.ID, grants, userID) != nil
}

// TaskEditable reports whether userID may change the task.
func TaskEditable(t models.Task, grants []models.SharedTaskGrant, userID string) bool {
	if userID == "" {
		return false
	}
	if t.CreatedBy == userID || (t.AssigneeID != nil && *t.AssigneeID == userID) {
		return true
	}
	g := grantFor(t.ID, grants, userID)
	return g != nil && g.Permission == models.GrantEdit
}

// EventEditable: personal events belong to their owner, shared events to
// the whole team.
func EventEditable(e models.CalendarEvent, userID string) bool {
	if userID == "" {
		return false
	}
	if e.IsShared {
		return true
	}
	return e.OwnerID != nil && *e.OwnerID == userID
}

func grantFor(taskID string, grants []models.SharedTaskGrant, userID string) *models.SharedTaskGrant {
	for i := range grants {
		if grants[i].TaskID == taskID && grants[i].GranteeID == userID {
			return &grants[i]
		}
	}
	return nil
}
