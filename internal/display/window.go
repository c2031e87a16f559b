// Package display shows the pumpkin in a desktop window and maps keys to
// the playback triggers and live controls.
package display

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/render"
)

const (
	bobStep  = 0.5
	glowStep = 0.1

	noticeTTL = 4 * time.Second // notices show this long with the HUD off
)

// Frames is the render loop the window pulls frames from.
type Frames interface {
	Step(now time.Time)
	AddSink(s render.Sink) (remove func())
}

// Trigger starts runs.
type Trigger interface {
	Start(text string) (*lipsync.Run, error)
	StartReplay() (*lipsync.Run, error)
	State() lipsync.State
}

// Input reports key presses for the current tick.
type Input interface {
	JustPressed(k ebiten.Key) bool
}

type keyboard struct{}

func (keyboard) JustPressed(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }

// Deps are the runtime objects the window drives.
type Deps struct {
	Frames   Frames
	Trigger  Trigger
	Face     *avatar.Controller
	Controls *avatar.Controls
	Blink    *blink.Scheduler
	Clock    clockwork.Clock
}

// Options configure the window.
type Options struct {
	Title string
	Scale float64 // initial window size relative to the canvas
	Text  string  // sent with the speak key
	HUD   bool
}

// Window is an ebiten.Game that shows the composed face.
type Window struct {
	deps  Deps
	opts  Options
	log   zerolog.Logger
	input Input
	ctx   context.Context

	mu       sync.Mutex
	latest   *image.RGBA // last composed frame, owned by the window
	dirty    bool
	notice   string
	noticeAt time.Time

	screen *ebiten.Image
	op     ebiten.DrawImageOptions
	hud    bool
}

// NoticeEvents are the bus events Notify turns into on-screen notices.
var NoticeEvents = []bus.EventType{bus.EventNotification, bus.EventRunFinished}

// New creates a window. Call Run to open it.
func New(deps Deps, opts Options, log zerolog.Logger) *Window {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Title == "" {
		opts.Title = "AI Pumpkin"
	}
	return &Window{
		deps:  deps,
		opts:  opts,
		log:   log.With().Str("component", "display").Logger(),
		input: keyboard{},
		ctx:   context.Background(),
		hud:   opts.HUD,
	}
}

// Frame implements render.Sink by copying the composed frame.
func (w *Window) Frame(img *image.RGBA, _ time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil || w.latest.Bounds() != img.Bounds() {
		w.latest = image.NewRGBA(img.Bounds())
	}
	copy(w.latest.Pix, img.Pix)
	w.dirty = true
}

// Run opens the window and blocks until it is closed or ctx ends.
func (w *Window) Run(ctx context.Context, width, height, fps int) error {
	w.ctx = ctx
	remove := w.deps.Frames.AddSink(w)
	defer remove()

	ebiten.SetWindowTitle(w.opts.Title)
	ebiten.SetWindowSize(int(float64(width)*w.opts.Scale), int(float64(height)*w.opts.Scale))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if fps > 0 {
		ebiten.SetTPS(fps)
	}

	w.log.Info().Int("width", width).Int("height", height).Msg("window opened")
	err := ebiten.RunGame(w)
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	w.log.Info().Msg("window closed")
	return err
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if w.ctx.Err() != nil {
		return ebiten.Termination
	}
	return w.handleInput(w.input)
}

func (w *Window) handleInput(in Input) error {
	switch {
	case in.JustPressed(ebiten.KeyEscape), in.JustPressed(ebiten.KeyQ):
		return ebiten.Termination
	case in.JustPressed(ebiten.KeyS), in.JustPressed(ebiten.KeySpace):
		w.report(w.deps.Trigger.Start(w.opts.Text))
	case in.JustPressed(ebiten.KeyR):
		w.report(w.deps.Trigger.StartReplay())
	case in.JustPressed(ebiten.KeyArrowUp):
		w.nudge(avatar.ControlBob, bobStep)
	case in.JustPressed(ebiten.KeyArrowDown):
		w.nudge(avatar.ControlBob, -bobStep)
	case in.JustPressed(ebiten.KeyArrowRight):
		w.nudge(avatar.ControlGlow, glowStep)
	case in.JustPressed(ebiten.KeyArrowLeft):
		w.nudge(avatar.ControlGlow, -glowStep)
	case in.JustPressed(ebiten.KeyB):
		on := !w.deps.Blink.Enabled()
		w.deps.Blink.SetEnabled(on)
		w.setNotice("blink " + map[bool]string{true: "on", false: "off"}[on])
	case in.JustPressed(ebiten.KeyH):
		w.hud = !w.hud
	}
	return nil
}

func (w *Window) report(run *lipsync.Run, err error) {
	switch {
	case errors.Is(err, lipsync.ErrBusy):
		w.setNotice("busy")
	case err != nil:
		w.setNotice(err.Error())
		w.log.Warn().Err(err).Msg("trigger failed")
	default:
		w.setNotice(fmt.Sprintf("%s started", run.Kind))
	}
}

// Notify shows run outcomes and player notifications. It is safe to call
// from any goroutine.
func (w *Window) Notify(e bus.Event) {
	str := func(key string) string {
		v, _ := e.Data[key].(string)
		return v
	}
	switch e.Type {
	case bus.EventNotification:
		if msg := str("message"); msg != "" {
			w.setNotice(msg)
		}
	case bus.EventRunFinished:
		switch outcome := str("outcome"); outcome {
		case string(lipsync.OutcomeFailed):
			msg := str("error")
			if msg == "" {
				msg = "unknown error"
			}
			w.setNotice(str("kind") + " failed: " + msg)
		case string(lipsync.OutcomeFallback):
			w.setNotice("nothing to play")
		case "":
		default:
			w.setNotice(str("kind") + " " + outcome)
		}
	}
}

func (w *Window) setNotice(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notice = msg
	w.noticeAt = w.deps.Clock.Now()
}

// currentNotice returns the notice if it is still fresh at now.
func (w *Window) currentNotice(now time.Time) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.notice == "" || now.Sub(w.noticeAt) > noticeTTL {
		return w.notice, false
	}
	return w.notice, true
}

func (w *Window) nudge(name avatar.Control, delta float64) {
	next := math.Round(math.Max(0, w.deps.Controls.Get(name)+delta)*100) / 100
	if err := w.deps.Controls.Set(name, next); err != nil {
		w.setNotice(err.Error())
		return
	}
	w.setNotice(fmt.Sprintf("%s %.2f", name, next))
}

// Draw implements ebiten.Game. It steps the render loop once per refresh so
// the face is sampled at the display rate.
func (w *Window) Draw(screen *ebiten.Image) {
	w.deps.Frames.Step(w.deps.Clock.Now())

	w.mu.Lock()
	if w.latest != nil && w.dirty {
		b := w.latest.Bounds()
		if w.screen == nil || w.screen.Bounds().Size() != b.Size() {
			if w.screen != nil {
				w.screen.Deallocate()
			}
			w.screen = ebiten.NewImage(b.Dx(), b.Dy())
		}
		w.screen.WritePixels(w.latest.Pix)
		w.dirty = false
	}
	w.mu.Unlock()

	if w.screen == nil {
		return
	}
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	fw, fh := w.screen.Bounds().Dx(), w.screen.Bounds().Dy()
	scale, dx, dy := fit(fw, fh, sw, sh)

	w.op.GeoM.Reset()
	w.op.GeoM.Scale(scale, scale)
	w.op.GeoM.Translate(dx, dy)
	w.op.Filter = ebiten.FilterLinear
	screen.DrawImage(w.screen, &w.op)

	notice, fresh := w.currentNotice(w.deps.Clock.Now())
	switch {
	case w.hud:
		ebitenutil.DebugPrintAt(screen, w.status(notice), 4, 4)
	case fresh:
		ebitenutil.DebugPrintAt(screen, notice, 4, 4)
	}
}

func (w *Window) status(notice string) string {
	s := fmt.Sprintf("%s  mouth %s  fps %.0f", w.deps.Trigger.State(), w.deps.Face.Mouth(), ebiten.ActualFPS())
	if notice != "" {
		s += "\n" + notice
	}
	return s
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// fit scales a frame into the screen keeping its aspect ratio, centred.
func fit(fw, fh, sw, sh int) (scale, dx, dy float64) {
	if fw <= 0 || fh <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(float64(sw)/float64(fw), float64(sh)/float64(fh))
	dx = (float64(sw) - float64(fw)*scale) / 2
	dy = (float64(sh) - float64(fh)*scale) / 2
	return scale, dx, dy
}
