package asset

import (
	"slices"
	"strings"
)

// Set is the arena of loaded assets, indexed by key.
// References between assets are resolved through Get, never through pointers.
type Set struct {
	assets map[Key]*Asset
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{assets: make(map[Key]*Asset)}
}

// Add inserts an asset. Declaring the same key twice returns a DuplicateAssetError and keeps the
// first declaration.
func (s *Set) Add(a *Asset) error {
	if existing, ok := s.assets[a.Key()]; ok {
		return &DuplicateAssetError{
			Key:    a.Key(),
			First:  existing.Source(),
			Second: a.Source(),
		}
	}
	s.assets[a.Key()] = a
	return nil
}

// Get returns the asset with the given key.
func (s *Set) Get(key Key) (*Asset, bool) {
	a, ok := s.assets[key]
	return a, ok
}

// Contains reports whether the set holds an asset with the given key.
func (s *Set) Contains(key Key) bool {
	_, ok := s.assets[key]
	return ok
}

func (s *Set) Len() int { return len(s.assets) }

// ByKind returns the assets of a kind sorted by slug.
func (s *Set) ByKind(kind Kind) []*Asset {
	var assets []*Asset
	for key, a := range s.assets {
		if key.Kind == kind {
			assets = append(assets, a)
		}
	}
	slices.SortFunc(assets, func(a, b *Asset) int {
		return strings.Compare(a.Slug(), b.Slug())
	})
	return assets
}

// All returns every asset in sync order: by kind tier, then slug.
func (s *Set) All() []*Asset {
	all := make([]*Asset, 0, len(s.assets))
	for _, kind := range Kinds {
		all = append(all, s.ByKind(kind)...)
	}
	return all
}

// Keys returns every key in sync order.
func (s *Set) Keys() []Key {
	all := s.All()
	keys := make([]Key, 0, len(all))
	for _, a := range all {
		keys = append(keys, a.Key())
	}
	return keys
}

// Counts returns the number of assets per kind.
func (s *Set) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for key := range s.assets {
		counts[key.Kind]++
	}
	return counts
}
