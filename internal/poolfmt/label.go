package poolfmt

import (
	"encoding/binary"
	"fmt"
	"sort"

	"zfinds/internal/blockdev"
)

// Label layout constants, per spec.md §6: four fixed 256 KiB labels (two
// at the start of the device, two at the end), each with a 16 KiB..128 KiB
// name/value blob and a 128 KiB..256 KiB array of 128 one-KiB superblock
// slots.
const (
	LabelSize          = 256 << 10
	labelNVOffset      = 16 << 10
	labelNVSize        = 112 << 10
	labelSBArrayOffset = 128 << 10
	labelSBArraySize   = 128 << 10

	SlotSize      = 1 << 10
	SlotsPerLabel = 128

	sbMagic   = 0x00bab10c
	sbVersion = 5000
)

// Label is one of the four fixed-position regions carrying a copy of the
// pool's vdev tree and an array of historical superblocks.
type Label struct {
	Index       int
	AbsOffset   int64 // absolute byte offset of this label on the device
	VdevTree    VdevTree
	sbArray     []byte // raw bytes of the 128 KiB superblock slot array
}

// ReadLabels locates and parses all four labels on the device.
func ReadLabels(read blockdev.ReadFunc, devSize int64) ([]*Label, error) {
	offsets := []int64{
		0,
		LabelSize,
		devSize - 2*LabelSize,
		devSize - LabelSize,
	}

	labels := make([]*Label, 0, 4)
	for i, off := range offsets {
		raw, err := read(off, LabelSize)
		if err != nil {
			return nil, fmt.Errorf("poolfmt: read label %d at offset %d: %w", i, off, err)
		}
		if len(raw) < LabelSize {
			continue // near-empty device, not enough room for this label
		}

		tree, err := parseVdevTree(raw[labelNVOffset : labelNVOffset+labelNVSize])
		if err != nil {
			tree = VdevTree{Type: "disk"}
		}

		labels = append(labels, &Label{
			Index:     i,
			AbsOffset: off,
			VdevTree:  tree,
			sbArray:   raw[labelSBArrayOffset : labelSBArrayOffset+labelSBArraySize],
		})
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("poolfmt: device too small to contain any label")
	}
	return labels, nil
}

// Superblock is a historical root descriptor (an "uberblock"): spec.md §3.
type Superblock struct {
	Magic     uint64
	Version   uint64
	TXG       uint64
	GUIDSum   uint64
	Timestamp uint64

	SlotIndex int
	label     *Label
	rootBP    *BlockPointer
}

// Valid reports whether the superblock's magic and version match the
// format's expected constants.
func (sb *Superblock) Valid() bool {
	return sb.Magic == sbMagic && sb.Version == sbVersion
}

// Superblocks parses every slot in the label's superblock array, valid or
// not, so any txg can be revisited later by LoadByTXG.
func (l *Label) Superblocks() []*Superblock {
	out := make([]*Superblock, 0, SlotsPerLabel)
	for i := 0; i < SlotsPerLabel; i++ {
		off := i * SlotSize
		slot := l.sbArray[off : off+SlotSize]
		out = append(out, &Superblock{
			Magic:     binary.LittleEndian.Uint64(slot[0:8]),
			Version:   binary.LittleEndian.Uint64(slot[8:16]),
			TXG:       binary.LittleEndian.Uint64(slot[16:24]),
			GUIDSum:   binary.LittleEndian.Uint64(slot[24:32]),
			Timestamp: binary.LittleEndian.Uint64(slot[32:40]),
			SlotIndex: i,
			label:     l,
		})
	}
	return out
}

// Active returns the valid superblock with the highest (txg, timestamp)
// tuple in this label, or nil if the label has no valid superblock.
func (l *Label) Active() *Superblock {
	var best *Superblock
	for _, sb := range l.Superblocks() {
		if !sb.Valid() {
			continue
		}
		if best == nil || sb.TXG > best.TXG || (sb.TXG == best.TXG && sb.Timestamp > best.Timestamp) {
			best = sb
		}
	}
	return best
}

// LoadRootPointer decodes the superblock's root block pointer from bytes
// 40..168 of its slot, re-read from the retained label buffer. It is
// idempotent and lazy: callers that only need txg/timestamp metadata
// never pay this cost.
func (sb *Superblock) LoadRootPointer() (*BlockPointer, error) {
	if sb.rootBP != nil {
		return sb.rootBP, nil
	}

	off := sb.SlotIndex * SlotSize
	slot := sb.label.sbArray[off : off+SlotSize]
	bp, err := ParseBlockPointer(slot[40:168])
	if err != nil {
		return nil, fmt.Errorf("poolfmt: load root pointer for txg %d: %w", sb.TXG, err)
	}
	sb.rootBP = bp
	return bp, nil
}

// ActiveSuperblock returns the valid superblock with the highest
// (txg, timestamp) across all labels — the pool's current root.
func ActiveSuperblock(labels []*Label) (*Superblock, error) {
	var best *Superblock
	for _, l := range labels {
		sb := l.Active()
		if sb == nil {
			continue
		}
		if best == nil || sb.TXG > best.TXG || (sb.TXG == best.TXG && sb.Timestamp > best.Timestamp) {
			best = sb
		}
	}
	if best == nil {
		return nil, fmt.Errorf("poolfmt: no valid superblock found in any label")
	}
	return best, nil
}

// EnumerateAllSuperblocks returns every valid superblock across all
// labels, deduplicated by txg, sorted ascending by txg.
func EnumerateAllSuperblocks(labels []*Label) []*Superblock {
	byTXG := make(map[uint64]*Superblock)
	for _, l := range labels {
		for _, sb := range l.Superblocks() {
			if !sb.Valid() {
				continue
			}
			if _, seen := byTXG[sb.TXG]; !seen {
				byTXG[sb.TXG] = sb
			}
		}
	}

	out := make([]*Superblock, 0, len(byTXG))
	for _, sb := range byTXG {
		out = append(out, sb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TXG < out[j].TXG })
	return out
}

// LoadByTXG takes, in each label, the first slot whose txg matches and
// loads its root pointer. When several labels hold that txg, the last
// label in enumeration order wins.
func LoadByTXG(labels []*Label, txg uint64) (*Superblock, error) {
	var found *Superblock
	for _, l := range labels {
		for _, sb := range l.Superblocks() {
			if sb.TXG == txg {
				found = sb
				break
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("poolfmt: no superblock found for txg %d", txg)
	}
	if _, err := found.LoadRootPointer(); err != nil {
		return nil, err
	}
	return found, nil
}
