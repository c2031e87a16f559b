package compositor

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

const (
	glowBlurStep  = 4   // blur radii are snapped to multiples of this
	glowDetail    = 256 // shortest side of the image the glow is blurred at
	maxGlowShrink = 8
)

// Raster is a Canvas backed by an in-memory RGBA image.
type Raster struct {
	img    *image.RGBA
	glow   Glow
	scaler draw.Scaler

	// last rendered glow, reused while the head, its size and the blur are unchanged
	glowKey   glowKey
	glowLayer *image.NRGBA
}

type glowKey struct {
	src    image.Image
	w, h   int
	blur   float64
	colour color.NRGBA
}

// NewRaster creates a w×h canvas.
func NewRaster(w, h int) *Raster {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &Raster{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		scaler: draw.ApproxBiLinear,
	}
}

// Image returns the backing image. It is overwritten by the next frame.
func (r *Raster) Image() *image.RGBA { return r.img }

// Size implements Canvas.
func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear implements Canvas.
func (r *Raster) Clear() {
	stddraw.Draw(r.img, r.img.Bounds(), image.Transparent, image.Point{}, stddraw.Src)
}

// FillRect implements Canvas. The colour is composited source-over.
func (r *Raster) FillRect(rect Rect, c color.Color) {
	bounds := rect.Bounds().Intersect(r.img.Bounds())
	if bounds.Empty() {
		return
	}
	stddraw.Draw(r.img, bounds, image.NewUniform(c), image.Point{}, stddraw.Over)
}

// SetGlow implements Canvas.
func (r *Raster) SetGlow(g Glow) { r.glow = g }

// ResetEffects implements Canvas.
func (r *Raster) ResetEffects() { r.glow = Glow{} }

// DrawImage implements Canvas.
func (r *Raster) DrawImage(src image.Image, rect Rect) {
	if src == nil {
		return
	}
	dst := rect.Bounds()
	if dst.Empty() {
		return
	}
	if r.glow.Blur > 0 && r.glow.Color.A > 0 {
		r.drawGlow(src, dst)
	}
	r.scaler.Scale(r.img, dst, src, src.Bounds(), draw.Over, nil)
}

// drawGlow paints a blurred, tinted silhouette of src behind dst.
func (r *Raster) drawGlow(src image.Image, dst image.Rectangle) {
	g := r.glow
	g.Blur = snapBlur(g.Blur)
	if g.Blur == 0 {
		return
	}
	key := glowKey{src: src, w: dst.Dx(), h: dst.Dy(), blur: g.Blur, colour: g.Color}
	if r.glowLayer == nil || r.glowKey != key {
		r.glowLayer = renderGlow(src, dst.Dx(), dst.Dy(), g)
		r.glowKey = key
	}
	pad := int(g.Blur)
	at := image.Rect(dst.Min.X-pad, dst.Min.Y-pad, dst.Max.X+pad, dst.Max.Y+pad)
	stddraw.Draw(r.img, at, r.glowLayer, image.Point{}, stddraw.Over)
}

func snapBlur(b float64) float64 {
	return math.Round(b/glowBlurStep) * glowBlurStep
}

// glowShrink is the factor the silhouette is reduced by before blurring.
func glowShrink(w, h int) int {
	return max(1, min(min(w, h)/glowDetail, maxGlowShrink))
}

// renderGlow blurs the silhouette at reduced size and scales it back up to
// (w+2*blur)×(h+2*blur).
func renderGlow(src image.Image, w, h int, g Glow) *image.NRGBA {
	pad := int(g.Blur)
	k := glowShrink(w, h)
	sw, sh, spad := max(1, w/k), max(1, h/k), pad/k

	scaled := image.NewNRGBA(image.Rect(0, 0, sw, sh))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	// Silhouette: the glow colour at the sprite's alpha, padded so the blur can spread.
	shadow := image.NewNRGBA(image.Rect(0, 0, sw+2*spad, sh+2*spad))
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			a := scaled.NRGBAAt(x, y).A
			if a == 0 {
				continue
			}
			shadow.SetNRGBA(x+spad, y+spad, color.NRGBA{
				R: g.Color.R,
				G: g.Color.G,
				B: g.Color.B,
				A: uint8(uint16(a) * uint16(g.Color.A) / 255),
			})
		}
	}

	// A canvas shadowBlur of b approximates a Gaussian with sigma b/2.
	filter := gift.New(gift.GaussianBlur(float32(g.Blur / 2 / float64(k))))
	blurred := image.NewNRGBA(filter.Bounds(shadow.Bounds()))
	filter.Draw(blurred, shadow)
	if k == 1 {
		return blurred
	}

	out := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), blurred, blurred.Bounds(), draw.Src, nil)
	return out
}
