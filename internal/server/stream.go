package server

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/metrics"
)

// Frame formats accepted by StreamOptions.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// StreamOptions configure the frames pushed to viewers.
type StreamOptions struct {
	Format  string
	Quality int // jpeg only
	FPS     int
}

// frameStream is a render sink that encodes frames for the hub at a
// reduced rate while anyone is watching.
type frameStream struct {
	hub  *hub
	opts StreamOptions
	log  zerolog.Logger

	interval time.Duration
	last     time.Time
	buf      bytes.Buffer
}

func newFrameStream(h *hub, opts StreamOptions, log zerolog.Logger) (*frameStream, error) {
	switch opts.Format {
	case "":
		opts.Format = FormatJPEG
	case FormatJPEG, FormatPNG:
	default:
		return nil, fmt.Errorf("unknown frame format %q", opts.Format)
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = jpeg.DefaultQuality
	}
	if opts.FPS <= 0 {
		opts.FPS = 15
	}
	return &frameStream{
		hub:      h,
		opts:     opts,
		log:      log,
		interval: time.Second / time.Duration(opts.FPS),
	}, nil
}

// Frame implements render.Sink. It runs on the render goroutine.
func (s *frameStream) Frame(img *image.RGBA, at time.Time) {
	if s.hub.count() == 0 {
		return
	}
	if !s.last.IsZero() && at.Sub(s.last) < s.interval {
		return
	}
	s.last = at

	s.buf.Reset()
	var err error
	if s.opts.Format == FormatPNG {
		err = png.Encode(&s.buf, img)
	} else {
		err = jpeg.Encode(&s.buf, img, &jpeg.Options{Quality: s.opts.Quality})
	}
	if err != nil {
		metrics.FrameErrors.Inc()
		s.log.Warn().Err(err).Msg("frame encode failed")
		return
	}

	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	s.hub.broadcast(websocket.BinaryMessage, data)
}
