// Package sectortracker wraps a block device read function and records
// which sectors each read touched, so the brute scanner can skip them.
package sectortracker

import (
	"zfinds/internal/blockdev"
	"zfinds/internal/sectormap"
)

// Tracker wraps a blockdev.ReadFunc and accumulates touched sectors into a
// sectormap.Map. Bytes returned are byte-identical to the wrapped read;
// tracking is a pure side effect on the Map.
type Tracker struct {
	read    blockdev.ReadFunc
	devSize int64
	sectors uint
	sectMap *sectormap.Map
}

// New builds a Tracker around read for a device of the given size. devSize
// must be a positive multiple of blockdev.SectorSize.
func New(read blockdev.ReadFunc, devSize int64) *Tracker {
	sectors := uint(devSize / blockdev.SectorSize)
	return &Tracker{
		read:    read,
		devSize: devSize,
		sectors: sectors,
		sectMap: sectormap.New(sectors),
	}
}

// Read normalizes offset, marks every sector the read spans, and delegates
// to the wrapped read function.
//
// The sector count is ceil(size / SectorSize) without folding in the
// within-sector remainder of the offset. This under-counts a read that
// starts a few bytes into a sector and is long enough to spill into one
// more sector than the naive division suggests. spec.md's Open Questions
// call this out explicitly and ask that a reimplementation preserve it for
// behavioral parity with the original rather than silently fix it.
func (t *Tracker) Read(offset int64, size int64) ([]byte, error) {
	normalized := offset
	if normalized < 0 {
		normalized += t.devSize
	}

	startSector := uint(normalized / blockdev.SectorSize)
	count := uint(ceilDiv(size, blockdev.SectorSize))

	for i := uint(0); i < count; i++ {
		sector := startSector + i
		if sector < t.sectors {
			t.sectMap.Set(sector)
		}
	}

	return t.read(offset, size)
}

// Snapshot returns an independent copy of the accumulated sector map. The
// Tracker continues to accumulate into its own map afterward.
func (t *Tracker) Snapshot() *sectormap.Map {
	return t.sectMap.Clone()
}

// Reset replaces the accumulated sector map with a fresh, all-unset one of
// the same size. Unused in the normal recovery flow, but available for a
// caller that wants to start a fresh tracking session on the same device.
func (t *Tracker) Reset() {
	t.sectMap = sectormap.New(t.sectors)
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
