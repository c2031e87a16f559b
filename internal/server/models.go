package server

import (
	"time"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/render"
)

// ApiResponse is the envelope every JSON endpoint answers with.
type ApiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SpeakRequest is the optional body of POST /api/speak.
type SpeakRequest struct {
	Text string `json:"text"`
}

// RunAccepted answers a trigger that started a run.
type RunAccepted struct {
	RunID string       `json:"runId"`
	Kind  lipsync.Kind `json:"kind"`
}

// BlinkRequest toggles the blink scheduler.
type BlinkRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	Player    lipsync.State      `json:"player"`
	Busy      bool               `json:"busy"`
	RunID     string             `json:"runId,omitempty"`
	Mouth     string             `json:"mouth"`
	Blink     bool               `json:"blinkEnabled"`
	Controls  map[string]float64 `json:"controls"`
	Render    render.Stats       `json:"render"`
	Viewers   int                `json:"viewers"`
	Sprites   []string           `json:"sprites"`
	StartedAt time.Time          `json:"startedAt"`
}

// wsMessage is a text frame on the viewer socket. Rendered frames travel as
// binary messages.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
