package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/server"
)

// ErrBusy is returned when the pumpkin rejects a trigger because a run is
// already playing.
var ErrBusy = errors.New("pumpkin is busy")

// APIError is a non-success answer from the control API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// API is the control surface the panel drives.
type API interface {
	State(ctx context.Context) (server.StateResponse, error)
	Speak(ctx context.Context, text string) (server.RunAccepted, error)
	Replay(ctx context.Context) (server.RunAccepted, error)
	SetControls(ctx context.Context, values map[string]float64) (map[string]float64, error)
	SetBlink(ctx context.Context, enabled bool) error
	Runs(ctx context.Context) ([]lipsync.Result, error)
}

// Client talks to a running `pumpkin serve`.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	return &Client{
		base:       u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// State fetches the live state.
func (c *Client) State(ctx context.Context) (server.StateResponse, error) {
	var out server.StateResponse
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &out)
	return out, err
}

// Speak starts a generate-and-play run.
func (c *Client) Speak(ctx context.Context, text string) (server.RunAccepted, error) {
	var out server.RunAccepted
	err := c.do(ctx, http.MethodPost, "/api/speak", server.SpeakRequest{Text: text}, &out)
	return out, err
}

// Replay starts the replay cue.
func (c *Client) Replay(ctx context.Context) (server.RunAccepted, error) {
	var out server.RunAccepted
	err := c.do(ctx, http.MethodPost, "/api/replay", nil, &out)
	return out, err
}

// SetControls updates live controls and returns the effective values.
func (c *Client) SetControls(ctx context.Context, values map[string]float64) (map[string]float64, error) {
	var out map[string]float64
	err := c.do(ctx, http.MethodPut, "/api/controls", values, &out)
	return out, err
}

// SetBlink turns blinking on or off.
func (c *Client) SetBlink(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/blink", server.BlinkRequest{Enabled: &enabled}, nil)
}

// Runs lists recent runs, newest first.
func (c *Client) Runs(ctx context.Context) ([]lipsync.Result, error) {
	var out []lipsync.Result
	err := c.do(ctx, http.MethodGet, "/api/runs", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Error  string          `json:"error"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &APIError{Code: resp.StatusCode, Message: "unreadable response"}
	}

	if resp.StatusCode == http.StatusConflict {
		return ErrBusy
	}
	if resp.StatusCode >= 300 || envelope.Status != "success" {
		return &APIError{Code: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
