package services

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Window is a half-open time interval [Start, End). A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow accepts YYYY-MM-DD or RFC 3339 bounds. A date-only end
// covers that whole day.
func ParseWindow(start, end string) (Window, error) {
	var w Window
	var err error

	if start = strings.TrimSpace(start); start != "" {
		if w.Start, _, err = parseBound(start); err != nil {
			return Window{}, invalidArg("start_date must be YYYY-MM-DD or RFC 3339")
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		var dateOnly bool
		if w.End, dateOnly, err = parseBound(end); err != nil {
			return Window{}, invalidArg("end_date must be YYYY-MM-DD or RFC 3339")
		}
		if dateOnly {
			w.End = w.End.AddDate(0, 0, 1)
		}
	}
	if !w.Start.IsZero() && !w.End.IsZero() && !w.Start.Before(w.End) {
		return Window{}, invalidArg("start_date must be before end_date")
	}
	return w, nil
}

// parseBound returns the instant in UTC so bound parameters never depend
// on the offset the caller wrote.
func parseBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t.UTC(), false, err
}

func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Predicate restricts column to the window.
func (w Window) Predicate(column string) Predicate {
	var preds []Predicate
	if !w.Start.IsZero() {
		preds = append(preds, where(column+" >= ?", w.Start))
	}
	if !w.End.IsZero() {
		preds = append(preds, where(column+" < ?", w.End))
	}
	return And(preds...)
}

// Overlaps reports whether [start, end) intersects the window.
func (w Window) Overlaps(start, end time.Time) bool {
	if !w.End.IsZero() && !start.Before(w.End) {
		return false
	}
	if !w.Start.IsZero() && !end.After(w.Start) {
		return false
	}
	return true
}

// Label renders the window bounds for report payloads.
func (w Window) Label() (string, string) {
	var s, e string
	if !w.Start.IsZero() {
		s = w.Start.Format(time.RFC3339)
	}
	if !w.End.IsZero() {
		e = w.End.Format(time.RFC3339)
	}
	return s, e
}
