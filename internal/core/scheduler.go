package core

import (
	"context"
	"fmt"
	"time"
)

// Ticker is the part of Engine the scheduler drives.
type Ticker interface {
	Tick() (TickResult, error)
}

// Scheduler runs deadline scans on a fixed interval.
type Scheduler struct {
	engine   Ticker
	interval time.Duration
	onTick   func(TickResult, error)
}

// NewScheduler creates a Scheduler. onTick, if set, receives every scan
// result, including scans whose save failed.
func NewScheduler(engine Ticker, interval time.Duration, onTick func(TickResult, error)) *Scheduler {
	return &Scheduler{engine: engine, interval: interval, onTick: onTick}
}

// Run scans once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", s.interval)
	}

	s.tick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	res, err := s.engine.Tick()
	if s.onTick != nil {
		s.onTick(res, err)
	}
}
