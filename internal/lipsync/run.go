package lipsync

import (
	"context"
	"fmt"
	"time"
)

// State is the player's trigger state.
type State int32

const (
	StateIdle State = iota
	StateRequesting
	StatePlaying
	StateFallback
	StateReplaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StatePlaying:
		return "playing"
	case StateFallback:
		return "fallback"
	case StateReplaying:
		return "replaying"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateReplaying; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown player state %q", text)
}

// Kind identifies what started a run.
type Kind string

const (
	KindSpeak  Kind = "speak"
	KindReplay Kind = "replay"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomePlayed   Outcome = "played"   // frames walked to the end
	OutcomeFallback Outcome = "fallback" // service answered without playable resources
	OutcomeFailed   Outcome = "failed"   // request or frame fetch failed
	OutcomeReplayed Outcome = "replayed"
	OutcomeCanceled Outcome = "canceled" // player closed mid-run
)

// Result describes a finished run.
type Result struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	Outcome    Outcome       `json:"outcome"`
	Text       string        `json:"text,omitempty"`
	Frames     int           `json:"frames"`
	Err        string        `json:"error,omitempty"`
	AudioErr   string        `json:"audioError,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	PlaybackAt time.Time     `json:"playbackAt,omitempty"`
	FinishedAt time.Time     `json:"finishedAt"`
	MaxLag     time.Duration `json:"maxLag"`
}

// Run is a handle on an active or finished run.
type Run struct {
	ID   string
	Kind Kind

	done   chan struct{}
	result Result // owned by the run goroutine until done is closed
}

func newRun(id string, kind Kind, at time.Time) *Run {
	return &Run{
		ID:     id,
		Kind:   kind,
		done:   make(chan struct{}),
		result: Result{ID: id, Kind: kind, StartedAt: at},
	}
}

// Done is closed when the run has finished and the triggers are re-enabled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the outcome once Done is closed, and false before that.
func (r *Run) Result() (Result, bool) {
	select {
	case <-r.done:
		return r.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the run finishes or ctx ends.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
