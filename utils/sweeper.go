package utils

import (
	"context"
	"time"
)

// Sweeper purges expired in-memory state.
type Sweeper interface {
	Sweep()
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc func()

func (f SweepFunc) Sweep() { f() }

// StartSweeper runs every sweeper each interval until ctx is done.
func StartSweeper(ctx context.Context, interval time.Duration, sweepers ...Sweeper) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for _, s := range sweepers {
				s.Sweep()
			}
		}
	}()
}
