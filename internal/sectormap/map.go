// Package sectormap tracks which sectors of a device have been read
// during a legitimate filesystem walk, so the brute scanner can skip them.
package sectormap

import "github.com/bits-and-blooms/bitset"

// Map is a bit-per-sector set over a device. Bits are only ever set, never
// cleared, for the lifetime of a tracking session (see sectortracker).
type Map struct {
	bits *bitset.BitSet
	n    uint
}

// New returns a Map with capacity for n sectors, all initially unset.
func New(n uint) *Map {
	return &Map{bits: bitset.New(n), n: n}
}

// Set marks sector i as used.
func (m *Map) Set(i uint) {
	m.bits.Set(i)
}

// Test reports whether sector i has been marked used.
//
// The original Python SectorMap.get called itself recursively instead of
// delegating to the bitmap, an infinite-recursion bug flagged in spec.md's
// Open Questions. This implementation does the correct thing directly.
func (m *Map) Test(i uint) bool {
	return m.bits.Test(i)
}

// Size returns the number of sectors this Map covers.
func (m *Map) Size() uint {
	return m.n
}

// Clone returns an independent copy of the Map. Used to snapshot a
// sectortracker's accumulated state without risking later mutation.
func (m *Map) Clone() *Map {
	return &Map{bits: m.bits.Clone(), n: m.n}
}

// SetSectors returns the set sector indices in ascending order.
func (m *Map) SetSectors() []uint {
	return m.collect(true)
}

// UnsetSectors returns the unset sector indices in ascending order.
func (m *Map) UnsetSectors() []uint {
	return m.collect(false)
}

func (m *Map) collect(set bool) []uint {
	out := make([]uint, 0)
	for i := uint(0); i < m.n; i++ {
		if m.bits.Test(i) == set {
			out = append(out, i)
		}
	}
	return out
}

// UnsetGen returns a finite generator over the unset sectors, in ascending
// order, restartable by calling UnsetGen again on the same Map. Mirrors
// sectormap.py's unset_gen without materializing the full index list.
func (m *Map) UnsetGen() func() (uint, bool) {
	next := uint(0)
	done := false
	return func() (uint, bool) {
		for !done {
			sector, found := m.bits.NextClear(next)
			if !found || sector >= m.n {
				done = true
				return 0, false
			}
			next = sector + 1
			return sector, true
		}
		return 0, false
	}
}

// SetGen returns a finite generator over the set sectors, in ascending
// order. Mirrors sectormap.py's set_gen.
func (m *Map) SetGen() func() (uint, bool) {
	next := uint(0)
	done := false
	return func() (uint, bool) {
		for !done {
			sector, found := m.bits.NextSet(next)
			if !found || sector >= m.n {
				done = true
				return 0, false
			}
			next = sector + 1
			return sector, true
		}
		return 0, false
	}
}
