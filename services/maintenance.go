package services

import (
	"context"
	"time"

	"github.com/LovationAdmin/crm-api/utils"

	"github.com/robfig/cron/v3"
)

// SessionPurger removes expired refresh sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Maintenance is the periodic cleanup run by the scheduler.
type Maintenance struct {
	Sessions      SessionPurger
	Jobs          JobStore
	RetentionDays int
	Timeout       time.Duration
	now           func() time.Time
}

// Run purges expired sessions and, when retention is set, old report jobs.
func (m *Maintenance) Run(ctx context.Context) error {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	if m.Sessions != nil {
		n, err := m.Sessions.PurgeExpiredSessions(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			utils.SafeInfo("cleaned %d expired sessions", n)
		}
	}
	if m.Jobs != nil && m.RetentionDays > 0 {
		cutoff := now().AddDate(0, 0, -m.RetentionDays)
		n, err := m.Jobs.PurgeJobsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if n > 0 {
			utils.SafeInfo("cleaned %d report jobs older than %d days", n, m.RetentionDays)
		}
	}
	return nil
}

// Schedule registers Run on spec and starts the cron. Stop the returned
// cron on shutdown.
func (m *Maintenance) Schedule(spec string) (*cron.Cron, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := m.Run(ctx); err != nil {
			utils.SafeError("maintenance failed: %v", err)
		}
	})
	if err != nil {
		return nil, invalidArg("bad cleanup schedule %q: %v", spec, err)
	}
	c.Start()
	return c, nil
}
