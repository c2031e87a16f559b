package avatar

import "math"

// levelTable maps quantized amplitude buckets 0..4 to mouth shapes.
var levelTable = [5]MouthShape{
	MouthClosed,
	MouthSmile,
	MouthO,
	MouthWide,
	MouthWide,
}

// LevelIndex quantizes an amplitude level into a bucket in [0, 4].
// NaN counts as silence; out-of-range levels are clamped.
func LevelIndex(level float64) int {
	if math.IsNaN(level) {
		return 0
	}
	idx := math.Round(level * 4)
	switch {
	case idx < 0:
		return 0
	case idx > 4:
		return 4
	}
	return int(idx)
}

// MapLevel returns the sprite to show for an amplitude level.
// When the preferred sprite is not in catalog, the first catalog entry is used,
// and an empty catalog yields the closed sprite.
func MapLevel(level float64, catalog []string) string {
	want := levelTable[LevelIndex(level)].Sprite()
	for _, name := range catalog {
		if name == want {
			return want
		}
	}
	if len(catalog) > 0 {
		return catalog[0]
	}
	return SpriteClosed
}
