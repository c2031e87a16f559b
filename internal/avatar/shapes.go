// Package avatar holds the pumpkin's shared face state: the selected mouth
// sprite, the live controls, and the level-to-viseme mapping.
package avatar

// MouthShape names a mouth sprite without its "mouth_" prefix.
type MouthShape string

const (
	MouthClosed MouthShape = "closed" // rest, silence
	MouthWide   MouthShape = "wide"   // loud open
	MouthO      MouthShape = "o"      // rounded
	MouthEE     MouthShape = "ee"     // spread
	MouthAh     MouthShape = "ah"
	MouthOh     MouthShape = "oh"
	MouthFV     MouthShape = "fv" // labiodental
	MouthTH     MouthShape = "th" // dental
	MouthSmile  MouthShape = "smile"
	MouthSmirk  MouthShape = "smirk"
)

// Shapes is the sprite vocabulary in catalog order.
var Shapes = []MouthShape{
	MouthClosed,
	MouthWide,
	MouthO,
	MouthEE,
	MouthAh,
	MouthOh,
	MouthFV,
	MouthTH,
	MouthSmile,
	MouthSmirk,
}

// SpritePrefix is prepended to a shape to form its sprite name and file stem.
const SpritePrefix = "mouth_"

// Sprite returns the sprite name for the shape, e.g. "mouth_closed".
func (s MouthShape) Sprite() string {
	return SpritePrefix + string(s)
}

// SpriteClosed is the resting mouth and the initial selection.
var SpriteClosed = MouthClosed.Sprite()
