package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
)

func (s *Server) handleIndex(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "viewer page missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	hello, err := json.Marshal(wsMessage{Type: "hello", Data: s.state()})
	if err != nil {
		hello = nil
	}
	s.hub.serve(c.Writer, c.Request, hello)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data: map[string]any{
			"frames":  s.frameCount(),
			"viewers": s.hub.count(),
		},
	})
}

func (s *Server) frameCount() uint64 {
	if s.deps.Frames == nil {
		return 0
	}
	return s.deps.Frames.Stats().Frames
}

func (s *Server) state() StateResponse {
	st := StateResponse{
		Controls:  s.controls(),
		Viewers:   s.hub.count(),
		StartedAt: s.startedAt,
	}
	if p := s.deps.Player; p != nil {
		st.Player = p.State()
		st.Busy = st.Player != lipsync.StateIdle
		if run := p.Current(); run != nil {
			st.RunID = run.ID
		}
	}
	if s.deps.Face != nil {
		st.Mouth = s.deps.Face.Mouth()
	}
	if s.deps.Blink != nil {
		st.Blink = s.deps.Blink.Enabled()
	}
	if s.deps.Frames != nil {
		st.Render = s.deps.Frames.Stats()
	}
	if s.deps.Assets != nil {
		st.Sprites = s.deps.Assets.Current().Catalog()
	}
	return st
}

func (s *Server) controls() map[string]float64 {
	out := make(map[string]float64)
	if s.deps.Controls == nil {
		return out
	}
	for name, v := range s.deps.Controls.Snapshot() {
		out[string(name)] = v
	}
	return out
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: s.state()})
}

func (s *Server) handleGetControls(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: s.controls()})
}

// handlePutControls applies every valid value and reports the rest.
func (s *Server) handlePutControls(c *gin.Context) {
	var req map[string]float64
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  "invalid controls body: " + err.Error(),
		})
		return
	}
	if s.deps.Controls == nil {
		c.JSON(http.StatusServiceUnavailable, ApiResponse{Status: "error", Error: "controls unavailable"})
		return
	}

	names := make([]string, 0, len(req))
	for name := range req {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		if err := s.deps.Controls.Set(avatar.Control(name), req[name]); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  strings.Join(problems, "; "),
			Data:   s.controls(),
		})
		return
	}
	c.JSON(http.StatusOK, ApiResponse{Status: "success", Message: "controls updated", Data: s.controls()})
}

func (s *Server) handleBlink(c *gin.Context) {
	var req BlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{Status: "error", Error: "invalid blink body: " + err.Error()})
		return
	}
	if s.deps.Blink == nil {
		c.JSON(http.StatusServiceUnavailable, ApiResponse{Status: "error", Error: "blink unavailable"})
		return
	}
	s.deps.Blink.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data:   map[string]bool{"enabled": s.deps.Blink.Enabled()},
	})
}

// handleSpeak starts a generate-and-play run. The body is optional.
func (s *Server) handleSpeak(c *gin.Context) {
	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ApiResponse{Status: "error", Error: "invalid speak body: " + err.Error()})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = s.opts.DefaultText
	}
	s.trigger(c, func() (*lipsync.Run, error) { return s.deps.Player.Start(text) })
}

func (s *Server) handleReplay(c *gin.Context) {
	s.trigger(c, s.deps.Player.StartReplay)
}

func (s *Server) trigger(c *gin.Context, start func() (*lipsync.Run, error)) {
	run, err := start()
	switch {
	case errors.Is(err, lipsync.ErrBusy):
		c.JSON(http.StatusConflict, ApiResponse{Status: "error", Error: "pumpkin is busy"})
	case errors.Is(err, lipsync.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, ApiResponse{Status: "error", Error: "pumpkin is shutting down"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, ApiResponse{Status: "error", Error: err.Error()})
	default:
		c.JSON(http.StatusAccepted, ApiResponse{
			Status:  "success",
			Message: fmt.Sprintf("%s started", run.Kind),
			Data:    RunAccepted{RunID: run.ID, Kind: run.Kind},
		})
	}
}

func (s *Server) handleRuns(c *gin.Context) {
	runs := s.deps.Player.History()
	// newest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: runs})
}

func (s *Server) handleLogs(c *gin.Context) {
	if s.deps.Logs == nil {
		c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: []any{}})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ApiResponse{Status: "error", Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: s.deps.Logs.History(limit)})
}
