package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/LovationAdmin/crm-api/middleware"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

const testUser = "11111111-1111-1111-1111-111111111111"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.CtxUserIDKey, userID)
		}
		c.Next()
	}
}

func serve(t *testing.T, r *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: body %q is not an envelope: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: bad view", services.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: task", services.ErrNotFound), http.StatusNotFound},
		{services.ErrAINotConfigured, http.StatusServiceUnavailable},
		{&services.DataStoreError{Op: "list", Err: errors.New("down")}, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondErrorHidesStoreDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		respondError(c, &services.DataStoreError{Op: "list events", Err: errors.New("pq: password authentication failed")})
	})
	code, env := serve(t, r, http.MethodGet, "/boom", "")
	if code != http.StatusInternalServerError || env.Success || env.Error != "Internal server error" {
		t.Errorf("code=%d env=%+v", code, env)
	}
}

func calendarRouter(t *testing.T, userID string) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	gin.SetMode(gin.TestMode)
	h := &CalendarHandler{Calendar: services.NewCalendarService(db)}
	r := gin.New()
	r.GET("/events", asUser(userID), h.List)
	r.GET("/events/occurrences", asUser(userID), h.Occurrences)
	return r, mock
}

func TestCalendarListRejectsUnknownView(t *testing.T) {
	r, _ := calendarRouter(t, testUser)
	code, env := serve(t, r, http.MethodGet, "/events?view=both", "")
	if code != http.StatusBadRequest || env.Success || !strings.Contains(env.Error, "view") {
		t.Errorf("code=%d env=%+v", code, env)
	}
}

func TestTaskListRejectsUnknownView(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	gin.SetMode(gin.TestMode)
	h := &TaskHandler{Tasks: services.NewTaskService(db)}
	r := gin.New()
	r.GET("/tasks", asUser(testUser), h.List)

	code, env := serve(t, r, http.MethodGet, "/tasks?view=both", "")
	if code != http.StatusBadRequest || env.Success || !strings.Contains(env.Error, "view") {
		t.Errorf("code=%d env=%+v", code, env)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no query may run for a bad view: %v", err)
	}
}

func TestCalendarListRequiresCaller(t *testing.T) {
	r, _ := calendarRouter(t, "")
	code, env := serve(t, r, http.MethodGet, "/events", "")
	if code != http.StatusUnauthorized || env.Success {
		t.Errorf("code=%d env=%+v", code, env)
	}
}

func TestCalendarListSharedView(t *testing.T) {
	r, mock := calendarRouter(t, testUser)
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE \(e.is_shared = TRUE\)`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "description", "start_time", "end_time", "owner_id",
			"is_shared", "client_id", "recurrence_rule", "created_by", "created_at", "updated_at"}).
			AddRow("e1", "All hands", "", start, start.Add(time.Hour), nil, true, nil, "", testUser, start, start))

	code, env := serve(t, r, http.MethodGet, "/events?view=shared", "")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	var events []map[string]any
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0]["title"] != "All hands" || events[0]["owner_id"] != nil {
		t.Errorf("events = %v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOccurrencesNeedBoundedWindow(t *testing.T) {
	r, _ := calendarRouter(t, testUser)
	code, _ := serve(t, r, http.MethodGet, "/events/occurrences?start_date=2024-03-01", "")
	if code != http.StatusBadRequest {
		t.Errorf("code = %d", code)
	}
}

func TestReportGenerateUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ReportHandler{Reports: services.NewReportService(nil, nil)}
	r := gin.New()
	r.POST("/reports/:type", asUser(testUser), h.Generate)

	code, env := serve(t, r, http.MethodPost, "/reports/profit-and-loss", "")
	if code != http.StatusBadRequest || !strings.Contains(env.Error, "unknown report type") {
		t.Errorf("code=%d env=%+v", code, env)
	}
	code, _ = serve(t, r, http.MethodPost, "/reports/financial-summary", "{not json")
	if code != http.StatusBadRequest {
		t.Errorf("malformed body code = %d", code)
	}
}

func TestWSHandlerNilSafe(t *testing.T) {
	var h *WSHandler
	h.Broadcast(Notification{Type: "task", Action: "created"})
	h.BroadcastTo(testUser, Notification{Type: "task"})
	if err := h.Close(); err != nil {
		t.Errorf("Close on nil handler: %v", err)
	}
}
