package blink

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 10, 31, 18, 0, 0, 0, time.UTC)

func enabled() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	return cfg
}

func fixed(v float64) Option {
	return WithRand(func() float64 { return v })
}

func TestEvaluate_Timeline(t *testing.T) {
	s := New(enabled(), t0, fixed(0.5))

	assert.False(t, s.Evaluate(t0))
	assert.False(t, s.Evaluate(t0.Add(1999*time.Millisecond)))

	assert.True(t, s.Evaluate(t0.Add(2*time.Second)))
	st := s.State()
	assert.Equal(t, t0.Add(2*time.Second), st.LastBlinkAt)
	assert.Equal(t, t0.Add(2*time.Second+3*time.Second+600*time.Millisecond), st.NextBlinkAt)

	assert.True(t, s.Evaluate(t0.Add(2120*time.Millisecond)))
	assert.False(t, s.Evaluate(t0.Add(2121*time.Millisecond)))
	assert.False(t, s.Evaluate(t0.Add(5*time.Second)))
	assert.True(t, s.Evaluate(t0.Add(5600*time.Millisecond)))
}

func TestEvaluate_Idempotent(t *testing.T) {
	s := New(enabled(), t0, fixed(0.3))
	now := t0.Add(2050 * time.Millisecond)

	first := s.Evaluate(now)
	before := s.State()
	second := s.Evaluate(now)

	assert.Equal(t, first, second)
	assert.Equal(t, before, s.State())
}

func TestEvaluate_BoundedDuration(t *testing.T) {
	cfg := enabled()
	s := New(cfg, t0, WithRand(rand.New(rand.NewSource(7)).Float64))

	for now := t0; now.Before(t0.Add(30 * time.Second)); now = now.Add(7 * time.Millisecond) {
		if s.Evaluate(now) {
			assert.LessOrEqual(t, now.Sub(s.State().LastBlinkAt), cfg.Duration)
		}
	}
}

func TestEvaluate_BlinkCountBound(t *testing.T) {
	cfg := enabled()
	window := 60 * time.Second
	for _, r := range []float64{0, 0.5, 0.999} {
		s := New(cfg, t0, fixed(r))
		blinks := 0
		was := false
		for now := t0; !now.After(t0.Add(window)); now = now.Add(time.Millisecond) {
			is := s.Evaluate(now)
			if is && !was {
				blinks++
			}
			was = is
		}
		bound := int(window/cfg.Interval) + 1
		assert.LessOrEqual(t, blinks, bound, "jitter %v", r)
		assert.Greater(t, blinks, 0)
	}
}

func TestDisabled_NeverBlinks(t *testing.T) {
	s := New(DefaultConfig(), t0)
	require.False(t, s.Enabled())

	for now := t0; now.Before(t0.Add(20 * time.Second)); now = now.Add(10 * time.Millisecond) {
		require.False(t, s.Evaluate(now))
	}
	assert.Equal(t, t0.Add(2*time.Second), s.State().NextBlinkAt)
}

func TestSetEnabled_OffOpensEyes(t *testing.T) {
	s := New(enabled(), t0, fixed(0))
	require.True(t, s.Evaluate(t0.Add(2*time.Second)))

	s.SetEnabled(false)
	assert.False(t, s.State().Blinking)
	assert.False(t, s.Evaluate(t0.Add(2010*time.Millisecond)))
}

func TestSetInterval(t *testing.T) {
	s := New(enabled(), t0, fixed(0))
	s.SetInterval(5 * time.Second)
	s.SetInterval(0)
	assert.Equal(t, 5*time.Second, s.Interval())

	s.Evaluate(t0.Add(2 * time.Second))
	assert.Equal(t, t0.Add(7*time.Second), s.State().NextBlinkAt)
}
