package compositor

import (
	"image"
	"image/color"
	"sync"
)

// OpKind identifies a recorded drawing call.
type OpKind string

const (
	OpClear    OpKind = "clear"
	OpFillRect OpKind = "fill"
	OpDraw     OpKind = "draw"
	OpGlow     OpKind = "glow"
	OpReset    OpKind = "reset"
)

// Op is one recorded drawing call.
type Op struct {
	Kind  OpKind
	Rect  Rect
	Color color.Color
	Image image.Image
	Glow  Glow
}

// Recorder is a Canvas that records calls instead of drawing. The
// glow in effect is captured on every draw.
type Recorder struct {
	W, H int

	mu   sync.Mutex
	glow Glow
	ops  []Op
}

// NewRecorder creates a Recorder reporting the given size.
func NewRecorder(w, h int) *Recorder {
	return &Recorder{W: w, H: h}
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// Ops returns the calls recorded since the last Clear.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Size implements Canvas.
func (r *Recorder) Size() (int, int) { return r.W, r.H }

// Clear implements Canvas and starts a new recording.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.ops = []Op{{Kind: OpClear}}
	r.mu.Unlock()
}

// FillRect implements Canvas.
func (r *Recorder) FillRect(rect Rect, c color.Color) {
	r.add(Op{Kind: OpFillRect, Rect: rect, Color: c})
}

// DrawImage implements Canvas.
func (r *Recorder) DrawImage(img image.Image, rect Rect) {
	r.mu.Lock()
	g := r.glow
	r.mu.Unlock()
	r.add(Op{Kind: OpDraw, Rect: rect, Image: img, Glow: g})
}

// SetGlow implements Canvas.
func (r *Recorder) SetGlow(g Glow) {
	r.mu.Lock()
	r.glow = g
	r.mu.Unlock()
	r.add(Op{Kind: OpGlow, Glow: g})
}

// ResetEffects implements Canvas.
func (r *Recorder) ResetEffects() {
	r.mu.Lock()
	r.glow = Glow{}
	r.mu.Unlock()
	r.add(Op{Kind: OpReset})
}
