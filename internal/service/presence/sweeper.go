package presence

import (
	"context"
	"log/slog"
	"time"
)

// Evictor removes an idle session through the same termination path as an
// explicit disconnect. Implemented by the chat hub.
type Evictor interface {
	EvictIdle(entry Entry) error
}

// Sweeper periodically reconciles registry entries against an inactivity
// threshold. A single goroutine runs the loop, so sweeps never overlap;
// connection-driven mutations race with it only through the registry's own
// locking.
type Sweeper struct {
	registry  *Registry
	evictor   Evictor
	interval  time.Duration
	threshold time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewSweeper wires a sweeper to the registry it polices.
func NewSweeper(registry *Registry, evictor Evictor, interval, threshold time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		registry:  registry,
		evictor:   evictor,
		interval:  interval,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, executing one sweep per tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts every entry idle for longer than the threshold. An eviction
// failure on one entry never aborts the rest of the pass.
func (s *Sweeper) Sweep() int {
	now := s.now()
	evicted := 0
	for _, entry := range s.registry.Snapshot() {
		if now.Sub(entry.LastActivity) <= s.threshold {
			continue
		}
		s.log.Info("evicting idle session",
			"user", entry.Username,
			"idle", now.Sub(entry.LastActivity).Round(time.Second))
		if err := s.evictor.EvictIdle(entry); err != nil {
			s.log.Error("idle eviction failed", "user", entry.Username, "error", err)
			continue
		}
		evicted++
	}
	return evicted
}
