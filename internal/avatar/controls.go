package avatar

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
)

// Control names a live tuning value.
type Control string

const (
	ControlBob       Control = "bob"        // head bob amplitude, pixels
	ControlGlow      Control = "glow"       // glow intensity multiplier
	ControlBlinkRate Control = "blink_rate" // base blink interval, milliseconds
)

// Control defaults used when a control has not been set.
const (
	DefaultBob       = 1.0
	DefaultGlow      = 1.0
	DefaultBlinkRate = 3000.0
)

var controlDefaults = map[Control]float64{
	ControlBob:       DefaultBob,
	ControlGlow:      DefaultGlow,
	ControlBlinkRate: DefaultBlinkRate,
}

// Controls is the live control panel. Absent values read as their defaults.
type Controls struct {
	mu     sync.RWMutex
	values map[Control]float64
	events bus.Publisher
}

// NewControls creates an empty panel.
func NewControls(events bus.Publisher) *Controls {
	if events == nil {
		events = bus.Discard{}
	}
	return &Controls{
		values: make(map[Control]float64),
		events: events,
	}
}

// Known reports whether name is a recognised control.
func Known(name Control) bool {
	_, ok := controlDefaults[name]
	return ok
}

// Get returns a control value, or its default when unset.
func (c *Controls) Get(name Control) float64 {
	c.mu.RLock()
	v, ok := c.values[name]
	c.mu.RUnlock()
	if ok {
		return v
	}
	return controlDefaults[name]
}

// Set stores a control value.
func (c *Controls) Set(name Control, v float64) error {
	if !Known(name) {
		return fmt.Errorf("unknown control %q", name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("control %s: invalid value %v", name, v)
	}
	if name == ControlBlinkRate && v == 0 {
		return fmt.Errorf("control %s: must be positive", name)
	}

	c.mu.Lock()
	c.values[name] = v
	c.mu.Unlock()

	c.events.Publish(bus.Event{
		Type: bus.EventControlsChanged,
		Data: map[string]any{"control": string(name), "value": v},
	})
	return nil
}

// Reset clears a control back to its default.
func (c *Controls) Reset(name Control) {
	c.mu.Lock()
	delete(c.values, name)
	c.mu.Unlock()
}

// Snapshot returns every control with its effective value.
func (c *Controls) Snapshot() map[Control]float64 {
	out := make(map[Control]float64, len(controlDefaults))
	for name := range controlDefaults {
		out[name] = c.Get(name)
	}
	return out
}

// Bob returns the bob amplitude.
func (c *Controls) Bob() float64 { return c.Get(ControlBob) }

// Glow returns the glow intensity.
func (c *Controls) Glow() float64 { return c.Get(ControlGlow) }

// BlinkInterval returns the base blink interval.
func (c *Controls) BlinkInterval() time.Duration {
	return time.Duration(c.Get(ControlBlinkRate) * float64(time.Millisecond))
}
