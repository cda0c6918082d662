// ABOUTME: Polled input sampler with rising-edge detection for the button line.
// ABOUTME: Emits exactly one activation per LOW-to-HIGH transition between polls.

package sampler

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the polling period used when the config does not set one.
// One tick per 50ms gives debouncing by construction: an edge is reported once
// per HIGH excursion regardless of press duration. Electrical bounce faster
// than the period is indistinguishable from a held button; that approximation
// is accepted.
const DefaultInterval = 50 * time.Millisecond

// Line reads the instantaneous logical level of one input line.
// Implementations are expected to be cheap; Read is called once per tick.
type Line interface {
	Read() (bool, error)
}

// Sampler polls a Line on a fixed period and invokes a notify callback on
// each rising edge. It keeps one bit of private state (the previous level)
// and runs until its context is canceled.
type Sampler struct {
	line     Line
	interval time.Duration
	notify   func()
	logger   *slog.Logger

	last bool
}

// New creates a Sampler that calls notify once per detected press.
// Pass nil logger for the default.
func New(line Line, interval time.Duration, notify func(), logger *slog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		line:     line,
		interval: interval,
		notify:   notify,
		logger:   logger.With("component", "sampler"),
	}
}

// Run polls the line until ctx is done. A read failure skips the tick and
// retries next period; it never terminates the loop.
func (s *Sampler) Run(ctx context.Context) {
	s.logger.Info("sampler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sampler stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick performs one poll: read, edge-detect, notify, update state.
// The notify callback fires before the state update, matching the contract
// that exactly one activation is emitted at the first HIGH sample.
func (s *Sampler) tick() {
	level, err := s.line.Read()
	if err != nil {
		s.logger.Warn("line read failed, skipping tick", "error", err)
		return
	}

	if level && !s.last {
		s.notify()
	}
	s.last = level
}
