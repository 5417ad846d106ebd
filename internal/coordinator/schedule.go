package coordinator

import (
	"context"
	"time"

	cron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Triggerer is anything that accepts check requests.
type Triggerer interface {
	Trigger(manual bool)
}

// Schedule fires automatic checks: once after an initial delay, then on a
// fixed interval.
type Schedule struct {
	target       Triggerer
	interval     time.Duration
	initialDelay time.Duration
	cron         *cron.Cron
}

// NewSchedule returns a Schedule driving target.
func NewSchedule(target Triggerer, interval, initialDelay time.Duration) *Schedule {
	return &Schedule{
		target:       target,
		interval:     interval,
		initialDelay: initialDelay,
		cron:         cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.StandardLogger())))),
	}
}

// Run blocks until ctx is cancelled.
func (s *Schedule) Run(ctx context.Context) error {
	if s.interval > 0 {
		s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
			log.Debug("scheduled update check")
			s.target.Trigger(false)
		}))
	}

	first := time.AfterFunc(s.initialDelay, func() {
		log.Debug("initial update check")
		s.target.Trigger(false)
	})

	s.cron.Start()
	log.Infof("update checks every %s, first in %s", s.interval, s.initialDelay)

	<-ctx.Done()
	first.Stop()
	<-s.cron.Stop().Done()
	return nil
}
