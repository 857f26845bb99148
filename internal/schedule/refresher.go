// Package schedule runs the periodic background refresh that keeps cached
// agent data from drifting when no push notification arrives.
package schedule

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher fires a refresh callback on a cron schedule.
type Refresher struct {
	schedule string
	fn       func()
	cron     *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Refresher for the given cron expression. Descriptors like
// "@every 5m" are accepted too.
func New(schedule string, fn func()) *Refresher {
	return &Refresher{
		schedule: schedule,
		fn:       fn,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the refresh entry and starts the cron ticker.
func (r *Refresher) Start() error {
	if r.schedule == "" {
		slog.Info("background refresh disabled, no schedule configured")
		return nil
	}
	_, err := r.cron.AddFunc(r.schedule, func() {
		slog.Debug("scheduled refresh firing", "schedule", r.schedule)
		r.fn()
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	slog.Info("background refresh scheduled", "schedule", r.schedule)
	return nil
}

// Reload stops the existing cron, swaps in the given schedule, and starts
// again.
func (r *Refresher) Reload(schedule string) error {
	r.cron.Stop()
	r.schedule = schedule
	r.cron = cron.New(cron.WithParser(cronParser))
	return r.Start()
}

// Stop stops the cron ticker.
func (r *Refresher) Stop() {
	r.cron.Stop()
}
