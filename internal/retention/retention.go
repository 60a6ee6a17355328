// Package retention periodically drops past days from a shared schedule.
package retention

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/schedule"
)

// Pruner removes every day older than KeepDays before today.
//
// Mu must be the same lock every other user of Schedule holds, since the
// schedule itself is unsynchronized.
type Pruner struct {
	Schedule *schedule.Schedule
	Mu       *sync.Mutex
	KeepDays int

	// Now defaults to time.Now.
	Now func() time.Time

	cron *cron.Cron
}

// Cutoff returns the newest date that RunOnce would remove.
func (p *Pruner) Cutoff() model.Date {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return model.DateOf(now()).AddDays(-p.KeepDays - 1)
}

// RunOnce removes all events dated on or before Cutoff and returns them.
//
// The range handed to RemoveDateRange starts at the oldest stored date, so
// the day-by-day walk only covers days that can hold events.
func (p *Pruner) RunOnce() []model.Event {
	p.Mu.Lock()
	defer p.Mu.Unlock()

	cutoff := p.Cutoff()
	all := p.Schedule.ExportAll()
	if len(all) == 0 || all[0].Date.After(cutoff) {
		appLog.Debug("retention: nothing to prune", "cutoff", cutoff)
		return []model.Event{}
	}

	removed := p.Schedule.RemoveDateRange(all[0].Date, cutoff)
	appLog.Info("retention: pruned past days",
		"from", all[0].Date,
		"cutoff", cutoff,
		"removed", len(removed),
		"remaining", p.Schedule.Len(),
	)
	return removed
}

// Start schedules RunOnce according to a standard 5-field cron spec.
func (p *Pruner) Start(spec string) error {
	if p.cron != nil {
		return fmt.Errorf("retention: already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { p.RunOnce() }); err != nil {
		return fmt.Errorf("retention: invalid cron %q: %w", spec, err)
	}
	c.Start()
	p.cron = c
	appLog.Info("retention job scheduled", "cron", spec, "keep_days", p.KeepDays)
	return nil
}

// Stop halts the cron scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.cron = nil
}
