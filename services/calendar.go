package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

// MaxOccurrencesPerEvent caps recurring expansion.
const MaxOccurrencesPerEvent = 500

// maxRecurrenceSteps bounds how many instances are generated for one event,
// including the ones skipped before the window opens.
const maxRecurrenceSteps = 100000

type CalendarService struct {
	db *sql.DB
}

func NewCalendarService(db *sql.DB) *CalendarService {
	return &CalendarService{db: db}
}

const eventColumns = `e.id, e.title, COALESCE(e.description, ''), e.start_time, e.end_time,
	e.owner_id, e.is_shared, e.client_id, COALESCE(e.recurrence_rule, ''),
	COALESCE(e.created_by::text, ''), e.created_at, e.updated_at`

func scanEvent(row interface{ Scan(...any) error }) (models.CalendarEvent, error) {
	var e models.CalendarEvent
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.OwnerID, &e.IsShared, &e.ClientID, &e.RecurrenceRule,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// windowPredicate keeps events overlapping w. Recurring events are kept
// whenever they start before the window ends; expansion decides the rest.
func eventWindowPredicate(w Window) Predicate {
	var preds []Predicate
	if !w.End.IsZero() {
		preds = append(preds, where("e.start_time < ?", w.End))
	}
	if !w.Start.IsZero() {
		preds = append(preds, where("COALESCE(e.recurrence_rule, '') <> '' OR e.end_time > ?", w.Start))
	}
	return And(preds...)
}

// List returns the caller's visible events ordered by start time.
func (s *CalendarService) List(ctx context.Context, userID string, view View, w Window) ([]models.CalendarEvent, error) {
	visible, err := EventPredicate(userID, view)
	if err != nil {
		return nil, err
	}
	query, args := build(`SELECT `+eventColumns+` FROM calendar_events e`,
		And(visible, eventWindowPredicate(w)), "ORDER BY e.start_time, e.id")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	events := []models.CalendarEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, storeErr("list events", err)
		}
		events = append(events, e)
	}
	return events, storeErr("list events", rows.Err())
}

// Get returns an event the caller can see. Other users' personal events
// are reported as missing.
func (s *CalendarService) Get(ctx context.Context, userID, id string) (*models.CalendarEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	eventID, err := ParseID("eventId", id)
	if err != nil {
		return nil, err
	}
	e, err := scanEvent(s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events e WHERE e.id = $1`, eventID))
	if err != nil {
		return nil, storeErr("event", err)
	}
	if !EventVisible(e, userID, ViewAll) {
		return nil, notFound("event")
	}
	return &e, nil
}

func validateRRule(rule string) error {
	if rule == "" {
		return nil
	}
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return invalidArg("recurrence_rule is not a valid RRULE: %v", err)
	}
	if r.OrigOptions.Freq == rrule.SECONDLY {
		return invalidArg("recurrence_rule must not repeat more often than every minute")
	}
	return nil
}

func validateEventTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalidArg("start_time and end_time are required")
	}
	if !end.After(start) {
		return invalidArg("end_time must be after start_time")
	}
	return nil
}

// Create stores a shared event without owner or a personal event owned by
// the caller.
func (s *CalendarService) Create(ctx context.Context, userID string, req models.CreateEventRequest) (*models.CalendarEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidArg("title is required")
	}
	if err := validateEventTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	rule := strings.TrimSpace(req.RecurrenceRule)
	if err := validateRRule(rule); err != nil {
		return nil, err
	}
	clientID, err := parseOptionalID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	e := &models.CalendarEvent{
		ID:             uuid.New().String(),
		Title:          title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsShared:       req.IsShared,
		ClientID:       clientID,
		RecurrenceRule: rule,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	setOwnership(e, userID)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, title, description, start_time, end_time, owner_id, is_shared,
			client_id, recurrence_rule, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Title, e.Description, e.StartTime, e.EndTime, e.OwnerID, e.IsShared,
		e.ClientID, nullIfEmpty(e.RecurrenceRule), e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return nil, storeErr("create event", err)
	}
	utils.LogCalendarAction("created", e.ID, userID)
	return e, nil
}

// setOwnership enforces that exactly one of IsShared and OwnerID holds.
func setOwnership(e *models.CalendarEvent, userID string) {
	if e.IsShared {
		e.OwnerID = nil
		return
	}
	if e.OwnerID == nil {
		owner := userID
		e.OwnerID = &owner
	}
}

func (s *CalendarService) Update(ctx context.Context, userID, id string, req models.UpdateEventRequest) (*models.CalendarEvent, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !EventEditable(*e, userID) {
		return nil, ErrForbidden
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, invalidArg("title must not be empty")
		}
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.StartTime != nil {
		e.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = *req.EndTime
	}
	if err := validateEventTimes(e.StartTime, e.EndTime); err != nil {
		return nil, err
	}
	if req.RecurrenceRule != nil {
		rule := strings.TrimSpace(*req.RecurrenceRule)
		if err := validateRRule(rule); err != nil {
			return nil, err
		}
		e.RecurrenceRule = rule
	}
	if req.ClientID != nil {
		if e.ClientID, err = parseOptionalID("client_id", req.ClientID); err != nil {
			return nil, err
		}
	}
	if req.IsShared != nil && *req.IsShared != e.IsShared {
		// Un-sharing hands the event to whoever un-shared it.
		e.IsShared = *req.IsShared
		e.OwnerID = nil
		setOwnership(e, userID)
	}
	e.UpdatedAt = time.Now()

	err = execOne(ctx, s.db, "event", `
		UPDATE calendar_events
		SET title = $1, description = $2, start_time = $3, end_time = $4, owner_id = $5,
		    is_shared = $6, client_id = $7, recurrence_rule = $8, updated_at = $9
		WHERE id = $10`,
		e.Title, e.Description, e.StartTime, e.EndTime, e.OwnerID,
		e.IsShared, e.ClientID, nullIfEmpty(e.RecurrenceRule), e.UpdatedAt, e.ID)
	if err != nil {
		return nil, err
	}
	utils.LogCalendarAction("updated", e.ID, userID)
	return e, nil
}

func (s *CalendarService) Delete(ctx context.Context, userID, id string) (*models.CalendarEvent, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !EventEditable(*e, userID) {
		return nil, ErrForbidden
	}
	if err := execOne(ctx, s.db, "event", `DELETE FROM calendar_events WHERE id = $1`, e.ID); err != nil {
		return nil, err
	}
	utils.LogCalendarAction("deleted", e.ID, userID)
	return e, nil
}

// Occurrences expands the caller's visible events inside a bounded window.
func (s *CalendarService) Occurrences(ctx context.Context, userID string, view View, w Window) ([]models.EventOccurrence, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if w.Start.IsZero() || w.End.IsZero() {
		return nil, invalidArg("start_date and end_date are required")
	}
	events, err := s.List(ctx, userID, view, w)
	if err != nil {
		return nil, err
	}
	return ExpandOccurrences(events, w), nil
}

// recurrenceStarts walks next lazily and collects starts in [from, to],
// stopping at MaxOccurrencesPerEvent hits or maxRecurrenceSteps generated
// instances. It also reports how many instances were generated.
func recurrenceStarts(next rrule.Next, from, to time.Time) ([]time.Time, int) {
	starts := []time.Time{}
	steps := 0
	for steps < maxRecurrenceSteps && len(starts) < MaxOccurrencesPerEvent {
		t, ok := next()
		if !ok || t.After(to) {
			break
		}
		steps++
		if t.Before(from) {
			continue
		}
		starts = append(starts, t)
	}
	return starts, steps
}

// ExpandOccurrences turns events into concrete instances overlapping w,
// sorted by start. A broken RRULE falls back to the single base instance.
func ExpandOccurrences(events []models.CalendarEvent, w Window) []models.EventOccurrence {
	out := []models.EventOccurrence{}
	for _, e := range events {
		duration := e.EndTime.Sub(e.StartTime)
		starts := []time.Time{e.StartTime}

		if e.RecurrenceRule != "" {
			r, err := rrule.StrToRRule(e.RecurrenceRule)
			if err != nil {
				utils.SafeWarn("expand: bad RRULE on event %s: %v", e.ID, err)
			} else {
				r.DTStart(e.StartTime)
				// Both bounds are inclusive; widen the lower one by the
				// duration so instances already running are kept.
				from := e.StartTime
				if !w.Start.IsZero() {
					from = w.Start.Add(-duration)
				}
				to := w.End
				if to.IsZero() {
					to = from.AddDate(1, 0, 0)
				}
				starts, _ = recurrenceStarts(r.Iterator(), from, to)
			}
		}

		for _, st := range starts {
			end := st.Add(duration)
			if !w.Overlaps(st, end) {
				continue
			}
			out = append(out, models.EventOccurrence{
				EventID:  e.ID,
				Title:    e.Title,
				Start:    st,
				End:      end,
				IsShared: e.IsShared,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

// ExportICS serializes the caller's visible events as an iCalendar feed.
func (s *CalendarService) ExportICS(ctx context.Context, userID string, view View) (string, error) {
	events, err := s.List(ctx, userID, view, Window{})
	if err != nil {
		return "", err
	}
	return BuildICS(events), nil
}

func BuildICS(events []models.CalendarEvent) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//crm-api//calendar//EN")

	for _, e := range events {
		ev := cal.AddEvent(e.ID + "@crm-api")
		ev.SetDtStampTime(e.UpdatedAt.UTC())
		ev.SetStartAt(e.StartTime.UTC())
		ev.SetEndAt(e.EndTime.UTC())
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.RecurrenceRule != "" {
			ev.AddProperty(ics.ComponentPropertyRrule, strings.TrimPrefix(e.RecurrenceRule, "RRULE:"))
		}
		if e.IsShared {
			ev.AddProperty(ics.ComponentPropertyCategories, "SHARED")
		} else {
			ev.AddProperty(ics.ComponentPropertyCategories, "PERSONAL")
		}
	}
	return cal.Serialize()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
