// Package schedule makes the pumpkin speak on a cron schedule.
package schedule

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
)

// Speaker starts a generate-and-play run.
type Speaker interface {
	Start(text string) (*lipsync.Run, error)
}

// Scheduler manages the auto-speak cron job
type Scheduler struct {
	cron    *cron.Cron
	speaker Speaker
	text    string
	log     zerolog.Logger
	entry   cron.EntryID
}

// New creates a scheduler that triggers speaker on spec (standard 5-field cron).
func New(spec, text string, speaker Speaker, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		speaker: speaker,
		text:    text,
		log:     log.With().Str("component", "schedule").Logger(),
	}
	id, err := s.cron.AddFunc(spec, s.Fire)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Fire triggers one run. A busy player skips this tick.
func (s *Scheduler) Fire() {
	run, err := s.speaker.Start(s.text)
	switch {
	case errors.Is(err, lipsync.ErrBusy):
		s.log.Info().Msg("pumpkin busy, skipping scheduled line")
	case err != nil:
		s.log.Warn().Err(err).Msg("scheduled line not started")
	default:
		s.log.Info().Str("run", run.ID).Msg("scheduled line started")
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Time("next", s.cron.Entry(s.entry).Next).Msg("auto-speak scheduled")
}

// Stop stops the scheduler and waits for a running tick to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
