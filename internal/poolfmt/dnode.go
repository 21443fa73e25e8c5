package poolfmt

import (
	"encoding/binary"
	"fmt"

	"zfinds/internal/blockdev"
)

// DNodeSize is the fixed on-disk size of a dnode, per spec.md §6.
const DNodeSize = 512

// dnode header layout, mirroring dnode_phys_t: 64 bytes of fixed fields
// followed by up to NumBlkPtr block pointers, with the remainder of the
// 512-byte dnode given over to the bonus buffer.
const dnodeHeaderSize = 64

// Object types of interest for recovery, a reduced subset of the format's
// dmu_object_type_t enum.
const (
	TypeNone               = 0
	TypeObjectDirectory    = 1
	TypePlainFileContents  = 19
	TypeDirectoryContents  = 20
)

// DNode is the filesystem's serialized object metadata unit: a typed
// header, its block pointers, and a type-specific bonus buffer.
type DNode struct {
	Type        uint8
	IndBlkShift uint8
	NLevels     uint8
	NumBlkPtr   uint8
	BonusType   uint8
	Checksum    uint8
	Compress    uint8
	Flags       uint8
	DataBlkSize uint32 // bytes, derived from the on-disk sector count
	BonusLen    uint16
	MaxBlkID    uint64
	SecPhys     uint64
	BlkPtrs     []*BlockPointer
	Bonus       []byte
}

// ParseDNode decodes a 512-byte dnode. A malformed or unrecognized dnode
// returns an error; callers (the brute scanner, the object set reader)
// treat that as "not a dnode" and move on, per spec.md §7's ParseSkip
// taxonomy.
func ParseDNode(buf []byte) (*DNode, error) {
	if len(buf) < DNodeSize {
		return nil, fmt.Errorf("poolfmt: dnode requires %d bytes, got %d", DNodeSize, len(buf))
	}

	d := &DNode{
		Type:        buf[0],
		IndBlkShift: buf[1],
		NLevels:     buf[2],
		NumBlkPtr:   buf[3],
		BonusType:   buf[4],
		Checksum:    buf[5],
		Compress:    buf[6],
		Flags:       buf[7],
		DataBlkSize: uint32(binary.LittleEndian.Uint16(buf[8:])) * blockdev.SectorSize,
		BonusLen:    binary.LittleEndian.Uint16(buf[10:]),
	}

	if d.NumBlkPtr == 0 || int(d.NumBlkPtr) > 3 {
		return nil, fmt.Errorf("poolfmt: dnode has implausible block pointer count %d", d.NumBlkPtr)
	}

	d.MaxBlkID = binary.LittleEndian.Uint64(buf[16:])
	d.SecPhys = binary.LittleEndian.Uint64(buf[24:])

	blkPtrArea := buf[dnodeHeaderSize:]
	bonusStart := int(d.NumBlkPtr) * BlockPointerSize
	if bonusStart+int(d.BonusLen) > len(blkPtrArea) {
		return nil, fmt.Errorf("poolfmt: dnode bonus region overruns its slot")
	}

	for i := 0; i < int(d.NumBlkPtr); i++ {
		off := i * BlockPointerSize
		bp, err := ParseBlockPointer(blkPtrArea[off : off+BlockPointerSize])
		if err != nil {
			return nil, fmt.Errorf("poolfmt: dnode block pointer %d: %w", i, err)
		}
		d.BlkPtrs = append(d.BlkPtrs, bp)
	}

	d.Bonus = blkPtrArea[bonusStart : bonusStart+int(d.BonusLen)]

	if d.Type > TypeDirectoryContents && d.Type != TypeNone {
		// Still a recognized range for this reduced type set; anything far
		// outside it is almost certainly garbage rather than a real dnode.
		if d.Type > 64 {
			return nil, fmt.Errorf("poolfmt: dnode has implausible type %d", d.Type)
		}
	}

	return d, nil
}

// Data dereferences the dnode's content — the file bytes for a plain file,
// or the serialized ZAP for a directory. Only level-0 (direct block
// pointer) dnodes are supported; anything requiring indirect block
// traversal is rejected rather than guessed at, consistent with spec.md's
// bound on completeness.
func (d *DNode) Data(read blockdev.ReadFunc) ([]byte, error) {
	if d.NLevels > 1 {
		return nil, fmt.Errorf("poolfmt: indirect dnode (nlevels=%d) unsupported", d.NLevels)
	}

	var out []byte
	for _, bp := range d.BlkPtrs {
		if bp.IsHole() {
			out = append(out, make([]byte, bp.LSize)...)
			continue
		}
		block, err := bp.Dereference(read)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}
