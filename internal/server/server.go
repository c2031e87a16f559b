// Package server serves the browser viewer, the frame stream and the
// control API of a headless pumpkin.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/logging"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/render"
)

//go:embed static/index.html
var static embed.FS

// Player is the playback half the API triggers.
type Player interface {
	Start(text string) (*lipsync.Run, error)
	StartReplay() (*lipsync.Run, error)
	State() lipsync.State
	Current() *lipsync.Run
	History() []lipsync.Result
}

// Frames is the render loop as seen by the server.
type Frames interface {
	Stats() render.Stats
	AddSink(s render.Sink) (remove func())
}

// LogHistory serves recent log lines.
type LogHistory interface {
	History(limit int) []logging.Entry
}

// Subscriber delivers bus events in publish order.
type Subscriber interface {
	SubscribeOrdered(types []bus.EventType, h bus.Handler) (stop func())
}

// Deps are the runtime objects the API reads and drives.
type Deps struct {
	Player   Player
	Frames   Frames
	Face     *avatar.Controller
	Controls *avatar.Controls
	Blink    *blink.Scheduler
	Assets   *assets.Store
	Events   Subscriber
	Logs     LogHistory
}

// Options configure the HTTP surface.
type Options struct {
	Listen       string
	AllowOrigins []string
	DefaultText  string // sent with speak requests that carry no text
	Stream       StreamOptions
}

// Server is the viewer and control API.
type Server struct {
	deps      Deps
	opts      Options
	log       zerolog.Logger
	hub       *hub
	engine    *gin.Engine
	startedAt time.Time

	removeSink func()
	stopEvents func()
}

// New builds the server and attaches its frame stream to the render loop.
func New(deps Deps, opts Options, log zerolog.Logger) (*Server, error) {
	if deps.Player == nil {
		return nil, errors.New("server: a player is required")
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}
	if opts.Listen == "" {
		opts.Listen = ":8090"
	}

	s := &Server{
		deps:      deps,
		opts:      opts,
		log:       log.With().Str("component", "server").Logger(),
		startedAt: time.Now(),
	}
	s.hub = newHub(s.checkOrigin, s.log)

	stream, err := newFrameStream(s.hub, opts.Stream, s.log)
	if err != nil {
		return nil, err
	}
	if deps.Frames != nil {
		s.removeSink = deps.Frames.AddSink(stream)
	}
	if deps.Events != nil {
		s.stopEvents = deps.Events.SubscribeOrdered(bus.AllEvents, s.forwardEvent)
	}

	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  s.opts.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/", s.handleIndex)
	r.GET("/ws", s.handleWebSocket)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/controls", s.handleGetControls)
		api.PUT("/controls", s.handlePutControls)
		api.PUT("/blink", s.handleBlink)
		api.POST("/speak", s.handleSpeak)
		api.POST("/replay", s.handleReplay)
		api.GET("/runs", s.handleRuns)
		api.GET("/logs", s.handleLogs)
	}
	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.opts.Listen).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen %s: %w", s.opts.Listen, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// Close detaches the frame stream and disconnects viewers.
func (s *Server) Close() {
	if s.removeSink != nil {
		s.removeSink()
		s.removeSink = nil
	}
	if s.stopEvents != nil {
		s.stopEvents()
		s.stopEvents = nil
	}
	s.hub.close()
}

// BroadcastLog pushes a log line to connected viewers.
func (s *Server) BroadcastLog(e logging.Entry) {
	s.send(wsMessage{Type: "log", Data: e})
}

// Viewers returns the number of connected viewers.
func (s *Server) Viewers() int {
	return s.hub.count()
}

func (s *Server) forwardEvent(e bus.Event) {
	s.send(wsMessage{Type: "event", Data: e})
}

func (s *Server) send(m wsMessage) {
	if s.hub.count() == 0 {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		s.log.Warn().Err(err).Str("type", m.Type).Msg("viewer message not encoded")
		return
	}
	s.hub.broadcast(websocket.TextMessage, data)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.opts.AllowOrigins, "*") {
		return true
	}
	return slices.Contains(s.opts.AllowOrigins, origin)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/healthz" {
			return
		}
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
