package schedule

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
)

type fakeSpeaker struct {
	texts []string
	err   error
}

func (f *fakeSpeaker) Start(text string) (*lipsync.Run, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &lipsync.Run{ID: "run-1"}, nil
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("not a cron", "", &fakeSpeaker{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestFire(t *testing.T) {
	sp := &fakeSpeaker{}
	s, err := New("*/5 * * * *", "happy halloween", sp, zerolog.Nop())
	require.NoError(t, err)

	s.Fire()
	sp.err = lipsync.ErrBusy
	s.Fire()
	sp.err = errors.New("closed")
	s.Fire()

	assert.Equal(t, []string{"happy halloween", "happy halloween", "happy halloween"}, sp.texts)
}

func TestStartStop(t *testing.T) {
	s, err := New("@every 1h", "", &fakeSpeaker{}, zerolog.Nop())
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
