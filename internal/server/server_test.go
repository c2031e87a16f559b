package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/logging"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/render"
)

type fakePlayer struct {
	mu      sync.Mutex
	busy    bool
	texts   []string
	replays int
	history []lipsync.Result
}

func (f *fakePlayer) Start(text string) (*lipsync.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return nil, lipsync.ErrBusy
	}
	f.texts = append(f.texts, text)
	return &lipsync.Run{ID: "run-speak", Kind: lipsync.KindSpeak}, nil
}

func (f *fakePlayer) StartReplay() (*lipsync.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return nil, lipsync.ErrBusy
	}
	f.replays++
	return &lipsync.Run{ID: "run-replay", Kind: lipsync.KindReplay}, nil
}

func (f *fakePlayer) State() lipsync.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return lipsync.StatePlaying
	}
	return lipsync.StateIdle
}

func (f *fakePlayer) Current() *lipsync.Run { return nil }

func (f *fakePlayer) History() []lipsync.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lipsync.Result(nil), f.history...)
}

type fakeFrames struct {
	mu   sync.Mutex
	sink render.Sink
}

func (f *fakeFrames) Stats() render.Stats { return render.Stats{Frames: 7, Mouth: "mouth_closed"} }

func (f *fakeFrames) AddSink(s render.Sink) func() {
	f.mu.Lock()
	f.sink = s
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.sink = nil
		f.mu.Unlock()
	}
}

func (f *fakeFrames) push(img *image.RGBA, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sink != nil {
		f.sink.Frame(img, at)
	}
}

type fakeLogs []logging.Entry

func (l fakeLogs) History(limit int) []logging.Entry {
	if limit > len(l) {
		limit = len(l)
	}
	return l[len(l)-limit:]
}

type fixture struct {
	srv      *Server
	player   *fakePlayer
	frames   *fakeFrames
	controls *avatar.Controls
	blink    *blink.Scheduler
	events   *bus.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := bus.New()
	f := &fixture{
		player:   &fakePlayer{},
		frames:   &fakeFrames{},
		controls: avatar.NewControls(events),
		blink:    blink.New(blink.DefaultConfig(), time.Now()),
		events:   events,
	}
	srv, err := New(Deps{
		Player:   f.player,
		Frames:   f.frames,
		Face:     avatar.NewController(nil),
		Controls: f.controls,
		Blink:    f.blink,
		Assets:   assets.NewStore(assets.Empty()),
		Events:   events,
		Logs: fakeLogs{
			{Level: "info", Component: "render", Message: "one"},
			{Level: "warn", Component: "lipsync", Message: "two"},
		},
	}, Options{DefaultText: "boo", Stream: StreamOptions{FPS: 1000}}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	f.srv = srv
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	var resp ApiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestNew_RequiresPlayer(t *testing.T) {
	_, err := New(Deps{}, Options{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(Deps{Player: &fakePlayer{}}, Options{Stream: StreamOptions{Format: "gif"}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/speak")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Status)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pumpkin_frames_rendered_total")
}

func TestSpeak_DefaultText(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodPost, "/api/speak", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "success", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "run-speak", data["runId"])
	assert.Equal(t, "speak", data["kind"])
	assert.Equal(t, []string{"boo"}, f.player.texts)
}

func TestSpeak_WithText(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodPost, "/api/speak", `{"text":"  trick or treat "}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"trick or treat"}, f.player.texts)
}

func TestSpeak_BadBody(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodPost, "/api/speak", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Empty(t, f.player.texts)
}

func TestTriggers_BusyConflict(t *testing.T) {
	f := newFixture(t)
	f.player.busy = true

	w, resp := f.do(t, http.MethodPost, "/api/speak", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp.Status)

	w, _ = f.do(t, http.MethodPost, "/api/replay", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, f.player.replays)
}

func TestReplay(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodPost, "/api/replay", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "replay", resp.Data.(map[string]any)["kind"])
	assert.Equal(t, 1, f.player.replays)
}

func TestControls_GetAndPut(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/controls", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"bob": 1.0, "glow": 1.0, "blink_rate": 3000.0}, resp.Data)

	w, resp = f.do(t, http.MethodPut, "/api/controls", `{"bob":4,"glow":2.5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, f.controls.Bob())
	assert.Equal(t, 2.5, f.controls.Glow())
	assert.Equal(t, 4.0, resp.Data.(map[string]any)["bob"])
}

func TestControls_PutRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodPut, "/api/controls", `{"bob":3,"wobble":1,"blink_rate":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "wobble")
	assert.Contains(t, resp.Error, "blink_rate")
	assert.Equal(t, 3.0, f.controls.Bob(), "valid values still apply")
	assert.Equal(t, 3*time.Second, f.controls.BlinkInterval())
}

func TestBlinkToggle(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.blink.Enabled())

	w, _ := f.do(t, http.MethodPut, "/api/blink", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.blink.Enabled())

	w, _ = f.do(t, http.MethodPut, "/api/blink", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, f.blink.Enabled())
}

func TestState(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "idle", data["player"])
	assert.Equal(t, false, data["busy"])
	assert.Equal(t, float64(7), data["render"].(map[string]any)["frames"])
}

func TestRuns_NewestFirst(t *testing.T) {
	f := newFixture(t)
	f.player.history = []lipsync.Result{
		{ID: "a", Outcome: lipsync.OutcomePlayed},
		{ID: "b", Outcome: lipsync.OutcomeFallback},
	}
	_, resp := f.do(t, http.MethodGet, "/api/runs", "")
	runs := resp.Data.([]any)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].(map[string]any)["id"])
	assert.Equal(t, "fallback", runs[0].(map[string]any)["outcome"])
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	_, resp := f.do(t, http.MethodGet, "/api/logs?limit=1", "")
	logs := resp.Data.([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "two", logs[0].(map[string]any)["message"])

	w, _ := f.do(t, http.MethodGet, "/api/logs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	var hello struct {
		Type string        `json:"type"`
		Data StateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &hello))
	require.Equal(t, "hello", hello.Type)
	return conn
}

// readUntil reads socket messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(kind int, data []byte) bool) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if match(kind, data) {
			return
		}
	}
}

func TestWebSocket_ForwardsEvents(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	assert.Equal(t, 1, f.srv.Viewers())

	require.NoError(t, f.controls.Set(avatar.ControlGlow, 2))

	readUntil(t, conn, func(kind int, data []byte) bool {
		if kind != websocket.TextMessage {
			return false
		}
		var m struct {
			Type string    `json:"type"`
			Data bus.Event `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &m))
		return m.Type == "event" && m.Data.Type == bus.EventControlsChanged && m.Data.Data["value"] == 2.0
	})
}

func TestWebSocket_EventsKeepPublishOrder(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	want := []bus.EventType{bus.EventTriggerDisabled}
	f.events.Publish(bus.Event{Type: bus.EventTriggerDisabled})
	for i := 0; i < 20; i++ {
		f.events.Publish(bus.Event{Type: bus.EventMouthChanged, Data: map[string]any{"mouth": "mouth_o"}})
		want = append(want, bus.EventMouthChanged)
	}
	f.events.Publish(bus.Event{Type: bus.EventTriggerEnabled})
	want = append(want, bus.EventTriggerEnabled)

	var got []bus.EventType
	readUntil(t, conn, func(kind int, data []byte) bool {
		if kind != websocket.TextMessage {
			return false
		}
		var m struct {
			Type string    `json:"type"`
			Data bus.Event `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &m))
		if m.Type == "event" {
			got = append(got, m.Data.Type)
		}
		return m.Data.Type == bus.EventTriggerEnabled
	})
	assert.Equal(t, want, got)
}

func TestWebSocket_StreamsFrames(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	f.frames.push(img, time.Now())

	readUntil(t, conn, func(kind int, data []byte) bool {
		if kind != websocket.BinaryMessage {
			return false
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Width)
		assert.Equal(t, 6, cfg.Height)
		return true
	})
}

func TestWebSocket_BroadcastLog(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	f.srv.BroadcastLog(logging.Entry{Level: "info", Component: "test", Message: "hello there"})
	readUntil(t, conn, func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), "hello there")
	})
}

func TestFrameStream_SkipsWithoutViewers(t *testing.T) {
	h := newHub(func(*http.Request) bool { return true }, zerolog.Nop())
	s, err := newFrameStream(h, StreamOptions{}, zerolog.Nop())
	require.NoError(t, err)

	s.Frame(image.NewRGBA(image.Rect(0, 0, 2, 2)), time.Now())
	assert.True(t, s.last.IsZero(), "nothing encoded while nobody watches")
	assert.Equal(t, FormatJPEG, s.opts.Format)
	assert.Equal(t, time.Second/15, s.interval)
}
