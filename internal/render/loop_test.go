package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/compositor"
)

func testDeps(clock clockwork.Clock, blinkOn bool) Deps {
	head := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	smile := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	smile.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	meta := assets.DefaultHeadMeta()
	meta.CanvasSize = [2]int{64, 48}
	set := assets.NewSet(head, map[string]image.Image{"mouth_smile": smile}, meta)

	cfg := blink.DefaultConfig()
	cfg.Enabled = blinkOn
	return Deps{
		Assets:   assets.NewStore(set),
		Face:     avatar.NewController(nil),
		Controls: avatar.NewControls(nil),
		Blink:    blink.New(cfg, clock.Now(), blink.WithRand(func() float64 { return 0 })),
	}
}

func TestStep_SamplesSharedState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deps := testDeps(clock, true)
	rec := compositor.NewRecorder(100, 100)
	loop := New(deps, Options{Canvas: rec}, clock, zerolog.Nop())

	deps.Face.SetShape(avatar.MouthSmile)
	loop.Step(clock.Now().Add(2 * time.Second))

	stats := loop.Stats()
	assert.Equal(t, uint64(1), stats.Frames)
	assert.True(t, stats.Blinking)
	assert.Equal(t, "mouth_smile", stats.Mouth)

	var fills, draws int
	for _, op := range rec.Ops() {
		switch op.Kind {
		case compositor.OpFillRect:
			fills++
		case compositor.OpDraw:
			draws++
		}
	}
	assert.Equal(t, 1, fills, "blink overlay")
	assert.Equal(t, 2, draws, "head and mouth")
}

func TestStep_ControlsFeedBlinkInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deps := testDeps(clock, true)
	loop := New(deps, Options{Canvas: compositor.NewRecorder(10, 10)}, clock, zerolog.Nop())

	require.NoError(t, deps.Controls.Set(avatar.ControlBlinkRate, 5000))
	loop.Step(clock.Now().Add(2 * time.Second))

	assert.Equal(t, clock.Now().Add(7*time.Second), deps.Blink.State().NextBlinkAt)
}

func TestStep_ManagedRasterAndSinks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	deps := testDeps(clock, false)
	loop := New(deps, Options{}, clock, zerolog.Nop())

	var got atomic.Int32
	var size image.Point
	remove := loop.AddSink(SinkFunc(func(img *image.RGBA, _ time.Time) {
		got.Add(1)
		size = img.Bounds().Size()
	}))

	loop.Step(clock.Now())
	assert.Equal(t, int32(1), got.Load())
	assert.Equal(t, image.Pt(64, 48), size)

	remove()
	loop.Step(clock.Now())
	assert.Equal(t, int32(1), got.Load())
}

func TestStep_OverrideSize(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := New(testDeps(clock, false), Options{Width: 32, Height: 16}, clock, zerolog.Nop())
	loop.Step(clock.Now())

	stats := loop.Stats()
	assert.Equal(t, 32, stats.Width)
	assert.Equal(t, 16, stats.Height)
}

type panicCanvas struct{ compositor.Recorder }

func (p *panicCanvas) DrawImage(image.Image, compositor.Rect) { panic("boom") }

func TestStep_RecoversFromPanic(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := New(testDeps(clock, false), Options{Canvas: &panicCanvas{}}, clock, zerolog.Nop())

	assert.NotPanics(t, func() { loop.Step(clock.Now()) })
	assert.Equal(t, uint64(0), loop.Stats().Frames)
}

func TestRun_TicksAtFrameRate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := New(testDeps(clock, false), Options{FPS: 10, Canvas: compositor.NewRecorder(8, 8)}, clock, zerolog.Nop())

	h := loop.Start(context.Background())
	clock.BlockUntil(1)

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		want := uint64(i + 1)
		require.Eventually(t, func() bool { return loop.Stats().Frames == want }, time.Second, time.Millisecond)
	}

	h.Stop()
	assert.True(t, errors.Is(h.Err(), context.Canceled))
}
