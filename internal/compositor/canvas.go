// Package compositor draws one frame of the pumpkin: head plate, blink
// overlay and mouth sprite, onto a Canvas.
package compositor

import (
	"image"
	"image/color"
	"math"
)

// Rect is a rectangle in canvas pixels. Coordinates may be fractional.
type Rect struct {
	X, Y, W, H float64
}

// Bounds rounds the rectangle to integer pixels.
func (r Rect) Bounds() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	return image.Rect(x0, y0, x0+int(math.Round(r.W)), y0+int(math.Round(r.H)))
}

// Glow is a coloured blur drawn behind images. A zero Blur disables it.
type Glow struct {
	Color color.NRGBA
	Blur  float64
}

// Canvas is the drawing surface the compositor targets.
type Canvas interface {
	Size() (w, h int)
	// Clear erases the canvas to transparent.
	Clear()
	FillRect(r Rect, c color.Color)
	// DrawImage scales img into r, honouring the current glow.
	DrawImage(img image.Image, r Rect)
	SetGlow(g Glow)
	// ResetEffects restores plain source-over drawing with no glow.
	ResetEffects()
}
