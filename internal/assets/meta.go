// Package assets loads the head plate, mouth sprites and head layout metadata.
package assets

import (
	"encoding/json"
	"fmt"
	"math"
)

// Anchor is a point expressed as fractions of the canvas size.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HeadMeta describes where the mouth sits on the head plate.
type HeadMeta struct {
	MouthAnchor Anchor  `json:"mouth_anchor"`
	MouthScale  float64 `json:"mouth_scale"`
	CanvasSize  [2]int  `json:"canvas_size"`
}

// DefaultHeadMeta is used when head_meta.json is missing or incomplete.
func DefaultHeadMeta() HeadMeta {
	return HeadMeta{
		MouthAnchor: Anchor{X: 0.5, Y: 0.65},
		MouthScale:  1.0,
		CanvasSize:  [2]int{2048, 2048},
	}
}

// Width returns the canvas width.
func (m HeadMeta) Width() int { return m.CanvasSize[0] }

// Height returns the canvas height.
func (m HeadMeta) Height() int { return m.CanvasSize[1] }

// ParseHeadMeta decodes head_meta.json. Fields that are absent or unusable
// keep their defaults.
func ParseHeadMeta(data []byte) (HeadMeta, error) {
	var raw struct {
		MouthAnchor *Anchor  `json:"mouth_anchor"`
		MouthScale  *float64 `json:"mouth_scale"`
		CanvasSize  []int    `json:"canvas_size"`
	}
	meta := DefaultHeadMeta()
	if err := json.Unmarshal(data, &raw); err != nil {
		return meta, fmt.Errorf("parse head meta: %w", err)
	}

	if a := raw.MouthAnchor; a != nil && finite(a.X) && finite(a.Y) {
		meta.MouthAnchor = *a
	}
	if s := raw.MouthScale; s != nil && finite(*s) && *s > 0 {
		meta.MouthScale = *s
	}
	if len(raw.CanvasSize) == 2 && raw.CanvasSize[0] > 0 && raw.CanvasSize[1] > 0 {
		meta.CanvasSize = [2]int{raw.CanvasSize[0], raw.CanvasSize[1]}
	}
	return meta, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
