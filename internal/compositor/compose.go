package compositor

import (
	"image/color"
	"math"
	"time"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
)

// Layout constants, as fractions of the canvas.
const (
	mouthWidthFrac  = 0.30
	mouthHeightFrac = 0.18

	blinkX = 0.28
	blinkY = 0.14
	blinkW = 0.44
	blinkH = 0.12

	bobPeriod   = 800 * time.Millisecond // divisor of elapsed time in the bob sine
	glowBlurMax = 40.0
)

var (
	BackgroundColor = color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	BlinkColor      = color.NRGBA{R: 10, G: 6, B: 6, A: 230}
	GlowColor       = color.NRGBA{R: 255, G: 150, B: 30, A: 153}
)

// Frame is everything needed to draw one frame.
type Frame struct {
	Assets       *assets.Set
	Elapsed      time.Duration // since the loop started; drives the bob
	BlinkEnabled bool
	Blinking     bool
	Mouth        string
	Bob          float64 // amplitude in pixels
	Glow         float64 // intensity multiplier
}

// BobOffset returns the vertical head offset at elapsed.
func BobOffset(elapsed time.Duration, amplitude float64) float64 {
	return math.Sin(elapsed.Seconds()/bobPeriod.Seconds()) * amplitude
}

// BlinkRect returns the eyelid rectangle for a canvas. It does not follow the bob.
func BlinkRect(w, h int) Rect {
	fw, fh := float64(w), float64(h)
	return Rect{X: blinkX * fw, Y: blinkY * fh, W: blinkW * fw, H: blinkH * fh}
}

// MouthRect returns where the mouth sprite is drawn: centred on the anchor,
// shifted by the bob.
func MouthRect(w, h int, meta assets.HeadMeta, bob float64) Rect {
	fw, fh := float64(w), float64(h)
	mw := fw * mouthWidthFrac * meta.MouthScale
	mh := fh * mouthHeightFrac * meta.MouthScale
	return Rect{
		X: meta.MouthAnchor.X*fw - mw/2,
		Y: meta.MouthAnchor.Y*fh + bob - mh/2,
		W: mw,
		H: mh,
	}
}

// Compose draws f onto c: background or glowing head, blink overlay, then mouth.
func Compose(c Canvas, f Frame) {
	set := f.Assets
	if set == nil {
		set = assets.Empty()
	}
	w, h := c.Size()
	bob := BobOffset(f.Elapsed, f.Bob)

	c.Clear()
	c.ResetEffects()

	if set.Head != nil {
		if blur := glowBlurMax * f.Glow; blur > 0 {
			c.SetGlow(Glow{Color: GlowColor, Blur: blur})
		}
		c.DrawImage(set.Head, Rect{X: 0, Y: bob, W: float64(w), H: float64(h)})
	} else {
		c.FillRect(Rect{W: float64(w), H: float64(h)}, BackgroundColor)
	}

	c.ResetEffects()
	if f.BlinkEnabled && f.Blinking {
		c.FillRect(BlinkRect(w, h), BlinkColor)
	}

	if img, ok := set.Mouth(f.Mouth); ok {
		c.DrawImage(img, MouthRect(w, h, set.Meta, bob))
	}
}
