// Package lipsync plays a generated line: it requests audio and viseme
// frames, starts the audio, and walks the frames against the playback start
// so scheduling delays never accumulate.
package lipsync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/audio"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/generator"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/metrics"
)

// ErrBusy is returned when a trigger arrives while a run is active.
var ErrBusy = errors.New("lipsync: a run is already in progress")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("lipsync: player closed")

// Generator produces lines and serves their frames.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
	FetchFrames(ctx context.Context, ref string) ([]avatar.VisemeFrame, error)
}

// Mouth receives sprite selections.
type Mouth interface {
	SetMouth(name string)
}

// Options tune cue timings.
type Options struct {
	FallbackHold time.Duration // smile shown when there is nothing to play
	ReplayHold   time.Duration // smile shown by the replay trigger
	History      int           // finished runs kept for inspection
}

// DefaultOptions returns the stock cue timings.
func DefaultOptions() Options {
	return Options{
		FallbackHold: 1200 * time.Millisecond,
		ReplayHold:   900 * time.Millisecond,
		History:      20,
	}
}

// Deps are the collaborators of a Player.
type Deps struct {
	Generator Generator
	Audio     audio.Player
	Mouth     Mouth
	Catalog   func() []string // sprite names currently loaded
	Clock     clockwork.Clock
	Events    bus.Publisher
}

// Player runs at most one playback at a time.
type Player struct {
	deps Deps
	opts Options
	log  zerolog.Logger

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	current *Run
	history []Result
}

// New creates a Player.
func New(deps Deps, opts Options, log zerolog.Logger) *Player {
	if deps.Audio == nil {
		deps.Audio = audio.Nop{}
	}
	if deps.Events == nil {
		deps.Events = bus.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Catalog == nil {
		deps.Catalog = func() []string { return nil }
	}
	if opts.History <= 0 {
		opts.History = DefaultOptions().History
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		deps:   deps,
		opts:   opts,
		log:    log.With().Str("component", "lipsync").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// State returns the current state.
func (p *Player) State() State {
	return State(p.state.Load())
}

// Busy reports whether the triggers are currently disabled.
func (p *Player) Busy() bool {
	return p.State() != StateIdle
}

// Current returns the active run, or nil.
func (p *Player) Current() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// History returns finished runs, newest last.
func (p *Player) History() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, len(p.history))
	copy(out, p.history)
	return out
}

// Start begins a generate-and-play run in the background.
func (p *Player) Start(text string) (*Run, error) {
	return p.begin(KindSpeak, StateRequesting, func(ctx context.Context, r *Run) {
		p.speak(ctx, r, text)
	})
}

// StartReplay begins the replay cue in the background.
func (p *Player) StartReplay() (*Run, error) {
	return p.begin(KindReplay, StateReplaying, func(ctx context.Context, r *Run) {
		if p.hold(ctx, r, avatar.MouthSmile, p.opts.ReplayHold) {
			r.result.Outcome = OutcomeReplayed
		}
	})
}

// Speak runs generate-and-play and waits for it. Cancelling ctx stops the
// wait, not the run.
func (p *Player) Speak(ctx context.Context, text string) (Result, error) {
	run, err := p.Start(text)
	if err != nil {
		return Result{}, err
	}
	return run.Wait(ctx)
}

// Replay runs the replay cue and waits for it.
func (p *Player) Replay(ctx context.Context) (Result, error) {
	run, err := p.StartReplay()
	if err != nil {
		return Result{}, err
	}
	return run.Wait(ctx)
}

// Close aborts any active run, restores the resting mouth and waits for cleanup.
func (p *Player) Close() {
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Player) begin(kind Kind, initial State, body func(context.Context, *Run)) (*Run, error) {
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	if !p.state.CompareAndSwap(int32(StateIdle), int32(initial)) {
		metrics.RunsRejected.Inc()
		p.log.Debug().Str("kind", string(kind)).Str("state", p.State().String()).Msg("trigger rejected")
		return nil, ErrBusy
	}

	run := newRun(uuid.NewString(), kind, p.deps.Clock.Now())
	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		p.state.Store(int32(StateIdle))
		return nil, ErrClosed
	}
	p.current = run
	p.wg.Add(1)
	p.mu.Unlock()

	p.publish(bus.EventTriggerDisabled, map[string]any{"runId": run.ID})
	p.publish(bus.EventRunStarted, map[string]any{"runId": run.ID, "kind": string(kind)})
	p.log.Info().Str("run", run.ID).Str("kind", string(kind)).Msg("run started")

	go func() {
		defer p.wg.Done()
		defer p.finish(run)
		body(p.ctx, run)
	}()
	return run, nil
}

// finish always runs: it closes the mouth, re-enables the triggers and
// records the result.
func (p *Player) finish(run *Run) {
	if r := recover(); r != nil {
		run.result.Outcome = OutcomeFailed
		run.result.Err = fmt.Sprint("panic: ", r)
		p.log.Error().Interface("panic", r).Str("run", run.ID).Msg("run panicked")
	}
	if run.result.Outcome == "" {
		run.result.Outcome = OutcomeCanceled
		p.stopAudio()
	}

	p.deps.Mouth.SetMouth(avatar.SpriteClosed)
	run.result.FinishedAt = p.deps.Clock.Now()

	p.mu.Lock()
	p.current = nil
	p.history = append(p.history, run.result)
	if len(p.history) > p.opts.History {
		p.history = p.history[len(p.history)-p.opts.History:]
	}
	p.mu.Unlock()

	metrics.Runs.WithLabelValues(string(run.Kind), string(run.result.Outcome)).Inc()
	p.state.Store(int32(StateIdle))

	p.publish(bus.EventRunFinished, map[string]any{
		"runId":   run.ID,
		"kind":    string(run.Kind),
		"outcome": string(run.result.Outcome),
		"error":   run.result.Err,
	})
	p.publish(bus.EventTriggerEnabled, map[string]any{"runId": run.ID})
	p.log.Info().
		Str("run", run.ID).
		Str("outcome", string(run.result.Outcome)).
		Dur("took", run.result.FinishedAt.Sub(run.result.StartedAt)).
		Msg("run finished")

	close(run.done)
}

func (p *Player) speak(ctx context.Context, run *Run, text string) {
	res, err := p.deps.Generator.Generate(ctx, generator.Request{Text: text})
	if err != nil {
		p.fail(ctx, run, fmt.Errorf("generate failed: %w", err))
		return
	}
	if res == nil {
		res = &generator.Result{}
	}
	run.result.Text = res.Text
	if !res.Complete() {
		p.log.Warn().Str("run", run.ID).Msg("nothing to play, showing fallback cue")
		run.result.Err = generator.ErrIncomplete.Error()
		p.state.Store(int32(StateFallback))
		if p.hold(ctx, run, avatar.MouthSmile, p.opts.FallbackHold) {
			run.result.Outcome = OutcomeFallback
		}
		return
	}

	frames, start, err := p.prepare(ctx, run, res)
	if err != nil {
		p.fail(ctx, run, err)
		return
	}

	p.state.Store(int32(StatePlaying))
	if p.walk(ctx, run, frames, start) {
		run.result.Outcome = OutcomePlayed
	}
}

// prepare fetches the frames and starts the audio concurrently. It returns
// the instant the frame timeline starts: when the audio began playing, or now
// if there is no audio. Audio errors are logged and otherwise ignored; a
// clip that started is stopped again if the frames cannot be fetched.
func (p *Player) prepare(ctx context.Context, run *Run, res *generator.Result) ([]avatar.VisemeFrame, time.Time, error) {
	var (
		frames  []avatar.VisemeFrame
		audioAt time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := p.deps.Generator.FetchFrames(gctx, res.Frames)
		if err != nil {
			return fmt.Errorf("fetch frames: %w", err)
		}
		frames = f
		return nil
	})
	g.Go(func() error {
		if err := p.deps.Audio.Play(gctx, res.Audio); err != nil {
			run.result.AudioErr = err.Error()
			p.log.Warn().Err(err).Str("run", run.ID).Msg("audio did not start, animating anyway")
			return nil
		}
		audioAt = p.deps.Clock.Now()
		return nil
	})
	if err := g.Wait(); err != nil {
		if !audioAt.IsZero() {
			p.stopAudio()
		}
		return nil, time.Time{}, err
	}

	start := p.deps.Clock.Now()
	if !audioAt.IsZero() && audioAt.Before(start) {
		p.log.Debug().Str("run", run.ID).Dur("behind", start.Sub(audioAt)).Msg("frames arrived after the audio started")
		start = audioAt
	}
	return frames, start, nil
}

func (p *Player) stopAudio() {
	if s, ok := p.deps.Audio.(audio.Stopper); ok {
		s.Stop()
	}
}

// walk applies each frame at start+t. It returns false if ctx ended first.
func (p *Player) walk(ctx context.Context, run *Run, frames []avatar.VisemeFrame, start time.Time) bool {
	clock := p.deps.Clock
	run.result.PlaybackAt = start
	run.result.Frames = len(frames)

	for _, f := range frames {
		deadline := start.Add(offset(f.T))
		if wait := deadline.Sub(clock.Now()); wait > 0 {
			select {
			case <-clock.After(wait):
			case <-ctx.Done():
				return false
			}
		}

		lag := clock.Now().Sub(deadline)
		if lag < 0 {
			lag = 0
		}
		metrics.FrameLag.Observe(lag.Seconds())
		if lag > run.result.MaxLag {
			run.result.MaxLag = lag
		}

		p.deps.Mouth.SetMouth(avatar.MapLevel(f.Level, p.deps.Catalog()))
	}
	return true
}

// offset converts a frame timestamp to a duration. Negative and non-finite
// timestamps play immediately.
func offset(t float64) time.Duration {
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return 0
	}
	return time.Duration(t * float64(time.Second))
}

// fail shows the fallback cue for a failed request and tells the user.
func (p *Player) fail(ctx context.Context, run *Run, err error) {
	run.result.Err = err.Error()
	p.log.Error().Err(err).Str("run", run.ID).Msg("run failed")
	p.publish(bus.EventNotification, map[string]any{
		"runId":   run.ID,
		"level":   "error",
		"message": err.Error(),
	})

	p.state.Store(int32(StateFallback))
	if p.hold(ctx, run, avatar.MouthSmile, p.opts.FallbackHold) {
		run.result.Outcome = OutcomeFailed
	}
}

// hold shows shape for d. It returns false if ctx ended first.
func (p *Player) hold(ctx context.Context, run *Run, shape avatar.MouthShape, d time.Duration) bool {
	p.deps.Mouth.SetMouth(shape.Sprite())
	select {
	case <-p.deps.Clock.After(d):
		return true
	case <-ctx.Done():
		p.log.Debug().Str("run", run.ID).Msg("cue interrupted")
		return false
	}
}

func (p *Player) publish(t bus.EventType, data map[string]any) {
	p.deps.Events.Publish(bus.Event{Type: t, Data: data})
}
