package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type refresher interface{ Refresh(ctx context.Context) error }

// Cron refreshes the column snapshot on a schedule.
type Cron struct {
	log     zerolog.Logger
	target  refresher
	timeout time.Duration
	c       *cron.Cron
}

// NewCron schedules target on spec, a standard five-field cron expression.
func NewCron(spec string, log zerolog.Logger, target refresher) (*Cron, error) {
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	cr := &Cron{log: log, target: target, timeout: 5 * time.Minute, c: c}
	if _, err := c.AddFunc(spec, cr.run); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts scheduling and waits for a running refresh to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) run() {
	ctx, cancel := context.WithTimeout(context.Background(), cr.timeout)
	defer cancel()
	cr.log.Info().Msg("cron: column inventory")
	if err := cr.target.Refresh(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: refresh failed")
	}
}
