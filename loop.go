// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/usedbytes/mission/base"
	"github.com/usedbytes/mission/plan"
)

// Loop is the control loop: every period the planner ticks, then the
// resulting setpoints go out to the platform.
type Loop struct {
	period time.Duration
	planner *plan.Planner
	platform *base.Platform
	log zerolog.Logger
}

func NewLoop(period time.Duration, planner *plan.Planner, platform *base.Platform, log zerolog.Logger) *Loop {
	return &Loop{
		period: period,
		planner: planner,
		platform: platform,
		log: log.With().Str("component", "loop").Logger(),
	}
}

func (l *Loop) Step(dt float64) {
	l.planner.Tick(dt)

	if err := l.platform.Update(); err != nil {
		l.log.Warn().Err(err).Msg("platform update")
	}
}

// Run ticks until ctx is cancelled, then closes the planner and the
// platform.
func (l *Loop) Run(ctx context.Context) error {
	tick := time.NewTicker(l.period)
	defer tick.Stop()

	l.log.Info().Dur("period", l.period).Msg("control loop started")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.planner.Close()
			if err := l.platform.Close(); err != nil {
				l.log.Warn().Err(err).Msg("platform close")
			}
			l.log.Info().Msg("control loop stopped")
			return nil
		case now := <-tick.C:
			dt := now.Sub(last).Seconds()
			last = now

			l.Step(dt)
		}
	}
}
