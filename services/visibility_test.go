package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/LovationAdmin/crm-api/models"
)

const (
	u1 = "11111111-1111-1111-1111-111111111111"
	u2 = "22222222-2222-2222-2222-222222222222"
	u3 = "33333333-3333-3333-3333-333333333333"
)

func strPtr(s string) *string { return &s }

func TestParseView(t *testing.T) {
	tests := []struct {
		raw     string
		want    View
		wantErr bool
	}{
		{"", ViewAll, false},
		{"shared", ViewShared, false},
		{"personal", ViewPersonal, false},
		{" Shared ", ViewShared, false},
		{"PERSONAL", ViewPersonal, false},
		{"both", ViewAll, true},
		{"mine", ViewAll, true},
	}
	for _, tt := range tests {
		got, err := ParseView(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ParseView(%q) err = %v, want ErrInvalidArgument", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseView(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestEventPredicate(t *testing.T) {
	tests := []struct {
		view     View
		clause   string
		argCount int
	}{
		{ViewShared, "e.is_shared = TRUE", 0},
		{ViewPersonal, "e.is_shared = FALSE AND e.owner_id = ?", 1},
		{ViewAll, "e.is_shared = TRUE OR (e.is_shared = FALSE AND e.owner_id = ?)", 1},
	}
	for _, tt := range tests {
		p, err := EventPredicate(u1, tt.view)
		if err != nil {
			t.Fatalf("view %q: %v", tt.view, err)
		}
		if p.Clause != tt.clause {
			t.Errorf("view %q clause = %q, want %q", tt.view, p.Clause, tt.clause)
		}
		if len(p.Args) != tt.argCount {
			t.Errorf("view %q args = %v", tt.view, p.Args)
		}
		for _, a := range p.Args {
			if a != u1 {
				t.Errorf("view %q arg = %v, want caller id", tt.view, a)
			}
		}
	}
}

func TestPredicatesRequireCaller(t *testing.T) {
	if _, err := EventPredicate("", ViewAll); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("EventPredicate without user: %v", err)
	}
	if _, err := TaskPredicate("", ViewAll); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("TaskPredicate without user: %v", err)
	}
	if _, err := EventPredicate(u1, View("both")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("EventPredicate with bad view: %v", err)
	}
}

func TestTaskPredicateIncludesGrants(t *testing.T) {
	p, err := TaskPredicate(u2, ViewAll)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.Clause, "t.assignee_id = ?") || !strings.Contains(p.Clause, "shared_task_grants") {
		t.Errorf("clause = %q", p.Clause)
	}
	if len(p.Args) != 2 || p.Args[0] != u2 || p.Args[1] != u2 {
		t.Errorf("args = %v", p.Args)
	}
}

func TestEventVisibleProperty(t *testing.T) {
	owners := []*string{nil, strPtr(u1), strPtr(u2)}
	for _, shared := range []bool{true, false} {
		for _, owner := range owners {
			e := models.CalendarEvent{ID: "e", IsShared: shared, OwnerID: owner}
			for _, user := range []string{u1, u2, u3} {
				want := shared || (owner != nil && *owner == user)
				if got := EventVisible(e, user, ViewAll); got != want {
					t.Errorf("shared=%v owner=%v user=%s: visible=%v want %v", shared, owner, user, got, want)
				}
			}
		}
	}
}

func TestSharedEventVisibleToAnyone(t *testing.T) {
	e := models.CalendarEvent{ID: "e", IsShared: true}
	for _, user := range []string{u1, u2, u3} {
		if !EventVisible(e, user, ViewAll) || !EventVisible(e, user, ViewShared) {
			t.Errorf("shared event hidden from %s", user)
		}
		if EventVisible(e, user, ViewPersonal) {
			t.Errorf("shared event listed as personal for %s", user)
		}
	}
	if EventVisible(e, "", ViewAll) {
		t.Error("anonymous caller must see nothing")
	}
}

func TestTaskVisibleAssigneeAndGrantee(t *testing.T) {
	task := models.Task{ID: "t1", AssigneeID: strPtr(u1)}
	grants := []models.SharedTaskGrant{{TaskID: "t1", GranteeID: u2, Permission: models.GrantView}}

	if !TaskVisible(task, grants, u1) {
		t.Error("assignee cannot see task")
	}
	if !TaskVisible(task, grants, u2) {
		t.Error("grantee cannot see task")
	}
	if TaskVisible(task, grants, u3) {
		t.Error("stranger can see task")
	}
}

func TestTaskVisibleIgnoresOtherTasksGrants(t *testing.T) {
	task := models.Task{ID: "t1", AssigneeID: strPtr(u1), IsShared: true}
	grants := []models.SharedTaskGrant{{TaskID: "t2", GranteeID: u3}}
	if TaskVisible(task, grants, u3) {
		t.Error("grant on another task leaked visibility")
	}
}

func TestTaskEditable(t *testing.T) {
	task := models.Task{ID: "t1", AssigneeID: strPtr(u1), CreatedBy: u1}
	grants := []models.SharedTaskGrant{
		{TaskID: "t1", GranteeID: u2, Permission: models.GrantView},
		{TaskID: "t1", GranteeID: u3, Permission: models.GrantEdit},
	}
	if !TaskEditable(task, grants, u1) {
		t.Error("assignee must edit")
	}
	if TaskEditable(task, grants, u2) {
		t.Error("view grant must not edit")
	}
	if !TaskEditable(task, grants, u3) {
		t.Error("edit grant must edit")
	}
}

func TestEventEditable(t *testing.T) {
	personal := models.CalendarEvent{OwnerID: strPtr(u1)}
	shared := models.CalendarEvent{IsShared: true}

	if !EventEditable(personal, u1) || EventEditable(personal, u2) {
		t.Error("personal events are editable by their owner only")
	}
	if !EventEditable(shared, u2) || !EventEditable(shared, u3) {
		t.Error("shared events are editable by any member")
	}
}
