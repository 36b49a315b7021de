package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LovationAdmin/crm-api/models"
)

type fakePurger struct {
	calls int
	n     int64
	err   error
}

func (f *fakePurger) PurgeExpiredSessions(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestMaintenanceRun(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	jobs := newMemJobs()
	ctx := context.Background()
	_ = jobs.CreateJob(ctx, &models.ReportJob{ID: "old", CreatedAt: now.AddDate(0, 0, -40)})
	_ = jobs.CreateJob(ctx, &models.ReportJob{ID: "new", CreatedAt: now.AddDate(0, 0, -2)})

	sessions := &fakePurger{n: 3}
	m := &Maintenance{Sessions: sessions, Jobs: jobs, RetentionDays: 30, now: func() time.Time { return now }}
	if err := m.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if sessions.calls != 1 {
		t.Errorf("session purges = %d", sessions.calls)
	}
	if _, err := jobs.GetJob(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Error("old job survived")
	}
	if _, err := jobs.GetJob(ctx, "new"); err != nil {
		t.Errorf("new job purged: %v", err)
	}
}

func TestMaintenanceKeepsJobsWithoutRetention(t *testing.T) {
	jobs := newMemJobs()
	ctx := context.Background()
	_ = jobs.CreateJob(ctx, &models.ReportJob{ID: "ancient", CreatedAt: time.Unix(0, 0)})

	m := &Maintenance{Jobs: jobs}
	if err := m.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := jobs.GetJob(ctx, "ancient"); err != nil {
		t.Errorf("job purged with retention disabled: %v", err)
	}
}

func TestMaintenanceStopsOnSessionError(t *testing.T) {
	boom := errors.New("boom")
	m := &Maintenance{Sessions: &fakePurger{err: boom}}
	if err := m.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestMaintenanceSchedule(t *testing.T) {
	m := &Maintenance{}
	if _, err := m.Schedule("every tuesday"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad spec: %v", err)
	}
	c, err := m.Schedule("@hourly")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d", len(c.Entries()))
	}
	<-c.Stop().Done()
}
