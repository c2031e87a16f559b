// Package blink schedules eye blinks independently of the frame rate.
//
// The scheduler is a two-state machine evaluated with the current time. A blink
// starts once the scheduled time has passed and ends after a fixed duration; the
// next blink is scheduled a base interval plus uniform jitter after the start.
package blink

import (
	"math/rand"
	"sync"
	"time"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/metrics"
)

// Config configures a Scheduler.
type Config struct {
	Enabled      bool
	InitialDelay time.Duration
	Interval     time.Duration
	Jitter       time.Duration // upper bound of the uniform jitter, exclusive
	Duration     time.Duration
}

// DefaultConfig returns the stock timings with blinking turned off.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		InitialDelay: 2 * time.Second,
		Interval:     3 * time.Second,
		Jitter:       1200 * time.Millisecond,
		Duration:     120 * time.Millisecond,
	}
}

// State is a snapshot of the blink state machine.
type State struct {
	Blinking    bool      `json:"blinking"`
	LastBlinkAt time.Time `json:"lastBlinkAt"`
	NextBlinkAt time.Time `json:"nextBlinkAt"`
}

// Scheduler decides whether the eyes are closed at a given instant.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	rnd    func() float64
	events bus.Publisher
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(s *Scheduler) { s.rnd = fn }
}

// WithEvents publishes blink start and end events.
func WithEvents(p bus.Publisher) Option {
	return func(s *Scheduler) { s.events = p }
}

// New creates a Scheduler whose first blink is due InitialDelay after start.
func New(cfg Config, start time.Time, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		state:  State{NextBlinkAt: start.Add(cfg.InitialDelay)},
		rnd:    rand.Float64,
		events: bus.Discard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate advances the state machine to now and reports whether the eyes are closed.
// A disabled scheduler always reports false and keeps its state untouched.
func (s *Scheduler) Evaluate(now time.Time) bool {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return false
	}

	started, ended := false, false
	if !s.state.Blinking && !now.Before(s.state.NextBlinkAt) {
		s.state.Blinking = true
		s.state.LastBlinkAt = now
		s.state.NextBlinkAt = now.Add(s.cfg.Interval + s.jitter())
		started = true
	}
	if s.state.Blinking && now.Sub(s.state.LastBlinkAt) > s.cfg.Duration {
		s.state.Blinking = false
		ended = true
	}
	blinking := s.state.Blinking
	s.mu.Unlock()

	if started {
		metrics.Blinks.Inc()
		s.events.Publish(bus.Event{Type: bus.EventBlinkStarted})
	}
	if ended && !started {
		s.events.Publish(bus.Event{Type: bus.EventBlinkEnded})
	}
	return blinking
}

func (s *Scheduler) jitter() time.Duration {
	if s.cfg.Jitter <= 0 {
		return 0
	}
	return time.Duration(s.rnd() * float64(s.cfg.Jitter))
}

// State returns a snapshot of the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enabled reports whether blinking is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// SetEnabled turns blinking on or off. Turning it off opens the eyes.
func (s *Scheduler) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Enabled = on
	if !on {
		s.state.Blinking = false
	}
}

// SetInterval changes the base interval used for blinks scheduled from now on.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.cfg.Interval = d
	s.mu.Unlock()
}

// Interval returns the current base interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Interval
}
