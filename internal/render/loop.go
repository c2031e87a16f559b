// Package render runs the frame loop that samples the face state and
// composes a frame on every refresh.
package render

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/compositor"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/metrics"
)

// Sink receives every composed frame. img is only valid during the call and
// sinks must not call back into the Loop.
type Sink interface {
	Frame(img *image.RGBA, at time.Time)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(img *image.RGBA, at time.Time)

// Frame implements Sink.
func (f SinkFunc) Frame(img *image.RGBA, at time.Time) { f(img, at) }

type sinkEntry struct {
	id   int
	sink Sink
}

// Stats summarises the loop for status endpoints.
type Stats struct {
	Frames      uint64    `json:"frames"`
	LastFrameAt time.Time `json:"lastFrameAt"`
	FPS         float64   `json:"fps"`
	Blinking    bool      `json:"blinking"`
	Mouth       string    `json:"mouth"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// Deps are the shared objects the loop reads each frame.
type Deps struct {
	Assets   *assets.Store
	Face     *avatar.Controller
	Controls *avatar.Controls
	Blink    *blink.Scheduler
}

// Options tune the loop.
type Options struct {
	FPS    int
	Width  int // 0 follows the head meta canvas size
	Height int
	Canvas compositor.Canvas // fixed canvas; nil lets the loop manage a Raster
}

// Loop composes frames from the shared face state.
type Loop struct {
	deps  Deps
	opts  Options
	clock clockwork.Clock
	start time.Time
	log   zerolog.Logger

	mu       sync.Mutex // serialises Step
	canvas   compositor.Canvas
	sinks    []sinkEntry
	nextSink int
	stats    Stats
	fpsCount int
	fpsSince time.Time
}

// New creates a loop. Elapsed time for the bob is measured from now.
func New(deps Deps, opts Options, clock clockwork.Clock, log zerolog.Logger) *Loop {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	now := clock.Now()
	return &Loop{
		deps:     deps,
		opts:     opts,
		clock:    clock,
		start:    now,
		log:      log,
		canvas:   opts.Canvas,
		fpsSince: now,
	}
}

// AddSink registers a frame consumer and returns a function that removes it.
func (l *Loop) AddSink(s Sink) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSink++
	id := l.nextSink
	l.sinks = append(l.sinks, sinkEntry{id: id, sink: s})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.sinks {
			if e.id == id {
				l.sinks = append(l.sinks[:i:i], l.sinks[i+1:]...)
				return
			}
		}
	}
}

// Interval is the time between frames at the configured rate.
func (l *Loop) Interval() time.Duration {
	return time.Second / time.Duration(l.opts.FPS)
}

// Stats returns a snapshot of loop activity.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Step renders one frame for now. A panic while drawing is logged and the
// frame is dropped.
func (l *Loop) Step(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			metrics.FrameErrors.Inc()
			l.log.Error().Interface("panic", r).Msg("frame dropped")
		}
	}()

	set := l.deps.Assets.Current()
	canvas := l.canvasFor(set)

	l.deps.Blink.SetInterval(l.deps.Controls.BlinkInterval())
	blinking := l.deps.Blink.Evaluate(now)
	mouth := l.deps.Face.Mouth()

	began := time.Now()
	compositor.Compose(canvas, compositor.Frame{
		Assets:       set,
		Elapsed:      now.Sub(l.start),
		BlinkEnabled: l.deps.Blink.Enabled(),
		Blinking:     blinking,
		Mouth:        mouth,
		Bob:          l.deps.Controls.Bob(),
		Glow:         l.deps.Controls.Glow(),
	})
	metrics.ComposeDuration.Observe(time.Since(began).Seconds())
	metrics.FramesRendered.Inc()

	w, h := canvas.Size()
	l.stats.Frames++
	l.stats.LastFrameAt = now
	l.stats.Blinking = blinking
	l.stats.Mouth = mouth
	l.stats.Width, l.stats.Height = w, h
	l.tickFPS(now)

	if img, ok := canvas.(interface{ Image() *image.RGBA }); ok {
		for _, e := range l.sinks {
			e.sink.Frame(img.Image(), now)
		}
	}
}

func (l *Loop) tickFPS(now time.Time) {
	l.fpsCount++
	if elapsed := now.Sub(l.fpsSince); elapsed >= 5*time.Second {
		l.stats.FPS = float64(l.fpsCount) / elapsed.Seconds()
		l.log.Debug().
			Float64("fps", l.stats.FPS).
			Bool("blink", l.stats.Blinking).
			Str("mouth", l.stats.Mouth).
			Msg("render stats")
		l.fpsCount = 0
		l.fpsSince = now
	}
}

// canvasFor returns the canvas to draw on, resizing the managed raster when
// the asset canvas size changes.
func (l *Loop) canvasFor(set *assets.Set) compositor.Canvas {
	if l.opts.Canvas != nil {
		return l.opts.Canvas
	}
	w, h := l.opts.Width, l.opts.Height
	if w <= 0 || h <= 0 {
		w, h = set.Meta.Width(), set.Meta.Height()
	}
	if l.canvas != nil {
		if cw, ch := l.canvas.Size(); cw == w && ch == h {
			return l.canvas
		}
	}
	l.canvas = compositor.NewRaster(w, h)
	l.log.Info().Int("width", w).Int("height", h).Msg("canvas allocated")
	return l.canvas
}

// Run renders at the configured rate until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.Interval())
	defer ticker.Stop()

	l.log.Info().Int("fps", l.opts.FPS).Msg("render loop started")
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Uint64("frames", l.Stats().Frames).Msg("render loop stopped")
			return ctx.Err()
		case now := <-ticker.Chan():
			l.Step(now)
		}
	}
}

// Handle controls a loop started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs the loop in a goroutine.
func (l *Loop) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.err = l.Run(ctx)
	}()
	return h
}

// Stop cancels the loop and waits for it to exit.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns why the loop exited. Valid after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return fmt.Errorf("render loop still running")
	}
}
