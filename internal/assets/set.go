package assets

import (
	"image"
	"sort"
	"sync/atomic"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
)

// Set is an immutable collection of loaded images.
type Set struct {
	Head    image.Image // nil when the plate is missing
	Mouths  map[string]image.Image
	Meta    HeadMeta
	catalog []string
}

// NewSet builds a Set. Mouth sprites outside the vocabulary are kept but
// listed after the vocabulary in the catalog.
func NewSet(head image.Image, mouths map[string]image.Image, meta HeadMeta) *Set {
	if mouths == nil {
		mouths = map[string]image.Image{}
	}
	s := &Set{Head: head, Mouths: mouths, Meta: meta}

	known := make(map[string]bool, len(avatar.Shapes))
	for _, shape := range avatar.Shapes {
		name := shape.Sprite()
		known[name] = true
		if _, ok := mouths[name]; ok {
			s.catalog = append(s.catalog, name)
		}
	}
	var extra []string
	for name := range mouths {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	s.catalog = append(s.catalog, extra...)
	return s
}

// Empty returns a Set with no images and default metadata.
func Empty() *Set {
	return NewSet(nil, nil, DefaultHeadMeta())
}

// Catalog lists the loaded mouth sprite names in vocabulary order.
func (s *Set) Catalog() []string {
	out := make([]string, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Mouth returns a mouth sprite by name.
func (s *Set) Mouth(name string) (image.Image, bool) {
	img, ok := s.Mouths[name]
	return img, ok && img != nil
}

// Store holds the current Set and swaps it atomically on reload.
type Store struct {
	cur atomic.Pointer[Set]
}

// NewStore creates a Store holding set, or an empty Set when nil.
func NewStore(set *Set) *Store {
	st := &Store{}
	if set == nil {
		set = Empty()
	}
	st.cur.Store(set)
	return st
}

// Current returns the active Set.
func (st *Store) Current() *Set {
	return st.cur.Load()
}

// Replace installs a new Set.
func (st *Store) Replace(set *Set) {
	if set != nil {
		st.cur.Store(set)
	}
}
