// Package generator talks to the service that produces a spoken line, its
// audio clip and the matching viseme frames.
package generator

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

	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
)

// ErrIncomplete means the service answered but did not name both a frames
// resource and an audio resource.
var ErrIncomplete = errors.New("generation response missing frames or audio")

// Config configures the client
type Config struct {
	URL     string        // e.g. "http://localhost:5000"
	Timeout time.Duration // per request
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:5000",
		Timeout: 60 * time.Second,
	}
}

// Request is the body of POST /generate. An empty Text lets the service pick a line.
type Request struct {
	Text string `json:"text,omitempty"`
}

// Result is the body of a successful /generate call.
type Result struct {
	Audio  string `json:"audio"`
	Frames string `json:"frames"`
	Text   string `json:"text"`
}

// Complete reports whether both playable resources were named.
func (r *Result) Complete() bool {
	return r != nil && r.Audio != "" && r.Frames != ""
}

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Op      string
	Code    int
	Message string
	Detail  string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s failed: %d - %s", e.Op, e.Code, msg)
}

// Client calls the generation service.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new client
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultConfig().URL
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid generator url %q: %w", cfg.URL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "generator").Logger(),
	}, nil
}

// Resolve turns a resource reference from a Result into an absolute URL.
func (c *Client) Resolve(ref string) string {
	u, err := c.base.Parse(strings.TrimLeft(ref, "/"))
	if err != nil {
		return c.base.String() + strings.TrimLeft(ref, "/")
	}
	return u.String()
}

// Generate asks the service for a new line.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Resolve("generate"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("generate", resp)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}

	c.logger.Info().
		Str("text", res.Text).
		Str("audio", res.Audio).
		Str("frames", res.Frames).
		Dur("took", time.Since(start)).
		Msg("line generated")
	return &res, nil
}

// FetchFrames downloads and decodes a frames resource.
func (c *Client) FetchFrames(ctx context.Context, ref string) ([]avatar.VisemeFrame, error) {
	resp, err := c.get(ctx, "frames", ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var frames []avatar.VisemeFrame
	if err := json.NewDecoder(resp.Body).Decode(&frames); err != nil {
		return nil, fmt.Errorf("failed to decode frames: %w", err)
	}
	return frames, nil
}

// FetchAudio opens an audio resource. The caller closes the reader.
func (c *Client) FetchAudio(ctx context.Context, ref string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, "audio", ref)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, op, ref string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("fetch "+op, resp)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &StatusError{Op: op, Code: resp.StatusCode}

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		se.Message = payload.Error
		se.Detail = payload.Detail
	} else {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}
