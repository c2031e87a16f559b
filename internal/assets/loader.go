package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // sprite format
	"os"
	"path/filepath"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
)

// File names inside the assets directory.
const (
	MetaFile = "head_meta.json"
	HeadFile = "plate_head.png"
)

// ErrNoAssetsDir is returned when the assets directory does not exist.
var ErrNoAssetsDir = errors.New("assets directory not found")

// MouthFile returns the file name of a mouth sprite, e.g. "mouth_o.png".
func MouthFile(shape avatar.MouthShape) string {
	return shape.Sprite() + ".png"
}

// Load reads everything it can from dir. It always returns a usable Set;
// the error lists what was missing or unreadable.
func Load(dir string) (*Set, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return Empty(), fmt.Errorf("%w: %s", ErrNoAssetsDir, dir)
	}

	var problems []error

	meta := DefaultHeadMeta()
	if data, err := os.ReadFile(filepath.Join(dir, MetaFile)); err == nil {
		m, perr := ParseHeadMeta(data)
		if perr != nil {
			problems = append(problems, perr)
		}
		meta = m
	} else if !errors.Is(err, os.ErrNotExist) {
		problems = append(problems, fmt.Errorf("read head meta: %w", err))
	}

	head, err := decodeFile(filepath.Join(dir, HeadFile))
	if err != nil {
		problems = append(problems, err)
	}

	mouths := make(map[string]image.Image, len(avatar.Shapes))
	for _, shape := range avatar.Shapes {
		path := filepath.Join(dir, MouthFile(shape))
		img, err := decodeFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				problems = append(problems, err)
			}
			continue
		}
		mouths[shape.Sprite()] = img
	}

	return NewSet(head, mouths, meta), errors.Join(problems...)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
