package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/server"
)

type stubPlayer struct{ busy bool }

func (p *stubPlayer) Start(string) (*lipsync.Run, error) {
	if p.busy {
		return nil, lipsync.ErrBusy
	}
	return &lipsync.Run{ID: "s1", Kind: lipsync.KindSpeak}, nil
}

func (p *stubPlayer) StartReplay() (*lipsync.Run, error) {
	return &lipsync.Run{ID: "r1", Kind: lipsync.KindReplay}, nil
}

func (p *stubPlayer) State() lipsync.State { return lipsync.StateIdle }

func (p *stubPlayer) Current() *lipsync.Run { return nil }

func (p *stubPlayer) History() []lipsync.Result {
	return []lipsync.Result{{ID: "old", Kind: lipsync.KindSpeak, Outcome: lipsync.OutcomePlayed}}
}

func newTestClient(t *testing.T, player *stubPlayer) (*Client, *blink.Scheduler, *avatar.Controls) {
	t.Helper()
	controls := avatar.NewControls(nil)
	bl := blink.New(blink.DefaultConfig(), time.Now())
	srv, err := server.New(server.Deps{
		Player:   player,
		Controls: controls,
		Blink:    bl,
		Face:     avatar.NewController(nil),
	}, server.Options{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	return c, bl, controls
}

func TestClient_RoundTrip(t *testing.T) {
	c, bl, controls := newTestClient(t, &stubPlayer{})
	ctx := context.Background()

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, lipsync.StateIdle, st.Player)
	assert.Equal(t, 1.0, st.Controls["bob"])

	run, err := c.Speak(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "s1", run.RunID)

	run, err = c.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, lipsync.KindReplay, run.Kind)

	values, err := c.SetControls(ctx, map[string]float64{"glow": 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, values["glow"])
	assert.Equal(t, 2.0, controls.Glow())

	require.NoError(t, c.SetBlink(ctx, true))
	assert.True(t, bl.Enabled())

	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, lipsync.OutcomePlayed, runs[0].Outcome)
}

func TestClient_Busy(t *testing.T) {
	c, _, _ := newTestClient(t, &stubPlayer{busy: true})
	_, err := c.Speak(context.Background(), "")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestClient_InvalidControl(t *testing.T) {
	c, _, _ := newTestClient(t, &stubPlayer{})
	_, err := c.SetControls(context.Background(), map[string]float64{"spin": 1})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Contains(t, apiErr.Message, "spin")
}

func TestNewClient_AddsScheme(t *testing.T) {
	c, err := NewClient("localhost:8090")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090/api/state", c.base.JoinPath("/api/state").String())
}
