// Package audio starts playback of generated speech clips.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"
)

// Player starts a clip and returns once playback has begun. It does not wait
// for the clip to finish.
type Player interface {
	Play(ctx context.Context, ref string) error
}

// Stopper is implemented by players that can silence a clip early.
type Stopper interface {
	Stop()
}

// Source opens an audio resource by reference.
type Source interface {
	FetchAudio(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Nop is a Player for machines without an audio device.
type Nop struct{}

// Play implements Player.
func (Nop) Play(context.Context, string) error { return nil }

// SpeakerPlayer plays WAV clips through the default output device.
type SpeakerPlayer struct {
	src    Source
	rate   beep.SampleRate
	logger zerolog.Logger

	once    sync.Once
	initErr error
}

// NewSpeakerPlayer creates a player mixing at sampleRate. The device is
// opened lazily on first Play.
func NewSpeakerPlayer(src Source, sampleRate int, logger zerolog.Logger) *SpeakerPlayer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &SpeakerPlayer{
		src:    src,
		rate:   beep.SampleRate(sampleRate),
		logger: logger.With().Str("component", "audio").Logger(),
	}
}

func (p *SpeakerPlayer) init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(p.rate, p.rate.N(100*time.Millisecond))
		if p.initErr == nil {
			p.logger.Info().Int("sample_rate", int(p.rate)).Msg("speaker initialized")
		}
	})
	return p.initErr
}

// Play fetches ref, decodes it and hands it to the speaker.
func (p *SpeakerPlayer) Play(ctx context.Context, ref string) error {
	if err := p.init(); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	rc, err := p.src.FetchAudio(ctx, ref)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	stream, length, err := decode(data, p.rate)
	if err != nil {
		return err
	}

	speaker.Clear()
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		p.logger.Debug().Str("ref", ref).Msg("clip finished")
	})))
	p.logger.Info().Str("ref", ref).Dur("length", length).Msg("clip playing")
	return nil
}

var _ Stopper = (*SpeakerPlayer)(nil)

// Stop silences any clip in progress.
func (p *SpeakerPlayer) Stop() {
	if p.init() == nil {
		speaker.Clear()
	}
}

// decode parses a WAV clip and resamples it to the mixer rate.
func decode(data []byte, rate beep.SampleRate) (beep.Streamer, time.Duration, error) {
	s, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	length := format.SampleRate.D(s.Len())
	if format.SampleRate == rate {
		return s, length, nil
	}
	return beep.Resample(4, format.SampleRate, rate, s), length, nil
}
