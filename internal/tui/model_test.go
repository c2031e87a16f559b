package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/server"
)

type fakeAPI struct {
	state    server.StateResponse
	runs     []lipsync.Result
	spoken   []string
	replays  int
	controls map[string]float64
	blink    *bool
	err      error
}

func (f *fakeAPI) State(context.Context) (server.StateResponse, error) { return f.state, f.err }

func (f *fakeAPI) Speak(_ context.Context, text string) (server.RunAccepted, error) {
	if f.err != nil {
		return server.RunAccepted{}, f.err
	}
	f.spoken = append(f.spoken, text)
	return server.RunAccepted{RunID: "0123456789ab", Kind: lipsync.KindSpeak}, nil
}

func (f *fakeAPI) Replay(context.Context) (server.RunAccepted, error) {
	if f.err != nil {
		return server.RunAccepted{}, f.err
	}
	f.replays++
	return server.RunAccepted{RunID: "r", Kind: lipsync.KindReplay}, nil
}

func (f *fakeAPI) SetControls(_ context.Context, values map[string]float64) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.controls = values
	return values, nil
}

func (f *fakeAPI) SetBlink(_ context.Context, on bool) error {
	f.blink = &on
	return f.err
}

func (f *fakeAPI) Runs(context.Context) ([]lipsync.Result, error) { return f.runs, f.err }

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg through Update and feeds the resulting command's message
// back in, the way the runtime would.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, isBatch := out.(tea.BatchMsg); !isBatch {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func TestModel_SpeakKey(t *testing.T) {
	api := &fakeAPI{}
	m := press(t, NewModel(api, time.Second), keyRunes("s"))

	assert.Equal(t, []string{""}, api.spoken)
	assert.True(t, m.state.Busy)
	assert.Contains(t, m.notice, "speak started (01234567)")
}

func TestModel_ReplayKey(t *testing.T) {
	api := &fakeAPI{}
	press(t, NewModel(api, time.Second), keyRunes("r"))
	assert.Equal(t, 1, api.replays)
}

func TestModel_BusyShowsError(t *testing.T) {
	api := &fakeAPI{err: ErrBusy}
	m := NewModel(api, time.Second)
	m.connected = true
	m = press(t, m, keyRunes("s"))

	assert.ErrorIs(t, m.err, ErrBusy)
	assert.True(t, m.connected, "busy is not a connection failure")
	assert.Contains(t, m.View(), "pumpkin is busy")
}

func TestModel_TransportErrorDisconnects(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	m := NewModel(api, time.Second)
	m.connected = true
	m = press(t, m, keyRunes("r"))
	assert.False(t, m.connected)
	assert.Contains(t, m.View(), "disconnected")
}

func TestModel_AdjustControls(t *testing.T) {
	api := &fakeAPI{}
	m := NewModel(api, time.Second)
	m.state.Controls = map[string]float64{"bob": 1, "glow": 0.05}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, map[string]float64{"bob": 1.5}, api.controls)
	assert.Equal(t, 1.5, m.state.Controls["bob"])

	m.state.Controls = map[string]float64{"bob": 1, "glow": 0.05}
	press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, map[string]float64{"glow": 0}, api.controls, "never below zero")
}

func TestModel_ToggleBlink(t *testing.T) {
	api := &fakeAPI{}
	m := press(t, NewModel(api, time.Second), keyRunes("b"))
	require.NotNil(t, api.blink)
	assert.True(t, *api.blink)
	assert.True(t, m.state.Blink)

	press(t, m, keyRunes("b"))
	assert.False(t, *api.blink)
}

func TestModel_TypeALine(t *testing.T) {
	api := &fakeAPI{}
	m := press(t, NewModel(api, time.Second), keyRunes("t"))
	require.True(t, m.typing)

	m = press(t, m, keyRunes("boo"))
	assert.Empty(t, api.spoken, "keys go to the input while typing")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.typing)
	assert.Equal(t, []string{"boo"}, api.spoken)
}

func TestModel_EscCancelsTyping(t *testing.T) {
	api := &fakeAPI{}
	m := press(t, NewModel(api, time.Second), keyRunes("t"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.typing)
	assert.Empty(t, api.spoken)
}

func TestModel_StateMsg(t *testing.T) {
	api := &fakeAPI{
		state: server.StateResponse{Player: lipsync.StatePlaying, Busy: true, Mouth: "mouth_o"},
		runs:  make([]lipsync.Result, 8),
	}
	m := NewModel(api, time.Second)
	msg := m.fetch()()
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.True(t, m.connected)
	assert.Len(t, m.runs, maxRuns)
	view := m.View()
	assert.Contains(t, view, "playing")
	assert.Contains(t, view, "mouth_o")
}

func TestModel_Quit(t *testing.T) {
	_, cmd := NewModel(&fakeAPI{}, time.Second).Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
