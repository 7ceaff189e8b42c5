package pipeline

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/guttosm/indexpulse/internal/logger"
)

// Refresher re-runs every registered scenario on a cron schedule, driving
// the Ready -> Loading refresh edge so charts stay current without any
// user action.
type Refresher struct {
	c *cron.Cron
}

// NewRefresher wires the schedule; spec uses standard 5-field cron syntax.
func NewRefresher(spec string, sched *Scheduler) (*Refresher, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		logger.L().Info().Str("cron", spec).Msg("scheduled refresh")
		sched.StartAll()
	}); err != nil {
		return nil, fmt.Errorf("register refresh schedule: %w", err)
	}
	return &Refresher{c: c}, nil
}

func (r *Refresher) Start() { r.c.Start() }

// Stop halts scheduling; in-flight fetches are left to finish.
func (r *Refresher) Stop() { r.c.Stop() }
