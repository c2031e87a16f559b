package avatar

import (
	"sync"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
)

// Controller owns the selected mouth sprite. The lip-sync player writes it,
// the render loop reads it every frame.
type Controller struct {
	mu    sync.RWMutex
	mouth string

	events        bus.Publisher
	onMouthChange func(string)
}

// NewController creates a Controller showing the closed mouth.
func NewController(events bus.Publisher) *Controller {
	if events == nil {
		events = bus.Discard{}
	}
	return &Controller{
		mouth:  SpriteClosed,
		events: events,
	}
}

// SetMouthHandler sets a callback invoked after every change of mouth.
func (c *Controller) SetMouthHandler(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMouthChange = fn
}

// Mouth returns the selected sprite name.
func (c *Controller) Mouth() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mouth
}

// SetMouth selects a sprite. Selecting the current sprite again is a no-op.
func (c *Controller) SetMouth(name string) {
	c.mu.Lock()
	if c.mouth == name {
		c.mu.Unlock()
		return
	}
	prev := c.mouth
	c.mouth = name
	handler := c.onMouthChange
	c.mu.Unlock()

	if handler != nil {
		handler(name)
	}
	c.events.Publish(bus.Event{
		Type: bus.EventMouthChanged,
		Data: map[string]any{"mouth": name, "previous": prev},
	})
}

// SetShape selects the sprite for a shape.
func (c *Controller) SetShape(shape MouthShape) {
	c.SetMouth(shape.Sprite())
}

// Close resets the mouth to the resting sprite.
func (c *Controller) Close() {
	c.SetMouth(SpriteClosed)
}
