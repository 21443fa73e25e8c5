package poolfmt

import (
	"encoding/binary"
	"fmt"

	"zfinds/internal/blockdev"
)

// BlockPointerSize is the on-disk size of a block pointer, per spec.md §4.1
// and §6 ("128-byte descriptor").
const BlockPointerSize = 128

// Compression algorithm identifiers. Only Off and LZJB are meaningful to
// this recovery tool; any other value is treated as LZJB-or-nothing when
// dereferencing, since spec.md's Non-goals bound completeness to "what the
// decompressor can identify".
const (
	CompressOff = 0
	CompressLZJB = 1
)

// DVA (Data Virtual Address) identifies one physical copy of a block. Since
// only single-disk pools are supported, VDevID is always expected to be 0.
type DVA struct {
	VDevID uint32
	Offset uint64 // byte offset into the device, already sector-aligned
	ASize  uint32 // allocated size in sectors
}

// BlockPointer is a 128-byte on-disk reference to one or more copies of a
// data block, its compression algorithm and checksum, mirroring spec.md's
// Block Pointer entity.
type BlockPointer struct {
	DVA         [3]DVA
	LSize       uint32 // logical (decompressed) size in bytes
	PSize       uint32 // physical (on-disk) size in bytes
	Compression uint8
	Type        uint8
	Level       uint8
	Hole        bool
	Birth       uint64
	FillCount   uint64
	Checksum    [4]uint64
}

// IsHole reports whether this block pointer refers to no data (a sparse
// hole in the file). A zero-valued pointer is treated as a hole.
func (bp *BlockPointer) IsHole() bool {
	return bp.Hole || (bp.DVA[0].Offset == 0 && bp.PSize == 0)
}

// ParseBlockPointer decodes a 128-byte block pointer. The field layout
// mirrors blkptr_t: three 16-byte DVAs, an 8-byte packed properties word,
// 16 bytes of padding, physical birth, birth, fill count, and a 4-word
// checksum.
func ParseBlockPointer(buf []byte) (*BlockPointer, error) {
	if len(buf) < BlockPointerSize {
		return nil, fmt.Errorf("poolfmt: block pointer requires %d bytes, got %d", BlockPointerSize, len(buf))
	}

	bp := &BlockPointer{}
	for i := 0; i < 3; i++ {
		off := i * 16
		word0 := binary.LittleEndian.Uint64(buf[off:])
		asize := binary.LittleEndian.Uint32(buf[off+8:])
		vdev := binary.LittleEndian.Uint32(buf[off+12:])
		bp.DVA[i] = DVA{
			VDevID: vdev,
			Offset: word0 * blockdev.SectorSize,
			ASize:  asize,
		}
	}

	props := binary.LittleEndian.Uint64(buf[48:])
	bp.LSize = uint32((props&0xFFFF)+1) * blockdev.SectorSize
	bp.PSize = uint32(((props>>16)&0xFFFF)+1) * blockdev.SectorSize
	bp.Compression = uint8((props >> 32) & 0x7F)
	bp.Type = uint8((props >> 48) & 0xFF)
	bp.Level = uint8((props >> 56) & 0x1F)
	bp.Hole = props == 0 && buf[48] == 0 && buf[49] == 0

	// offset 56 is 16 bytes of padding and offset 72 the physical birth,
	// both unused here

	bp.Birth = binary.LittleEndian.Uint64(buf[80:])
	bp.FillCount = binary.LittleEndian.Uint64(buf[88:])
	for i := 0; i < 4; i++ {
		bp.Checksum[i] = binary.LittleEndian.Uint64(buf[96+i*8:])
	}

	return bp, nil
}

// Dereference reads the block this pointer describes through read and, if
// it was stored compressed, decompresses it back to its logical size. All
// filesystem parsing must go through a wrapped read function (see
// sectortracker.Tracker.Read) so the sector map stays accurate.
func (bp *BlockPointer) Dereference(read blockdev.ReadFunc) ([]byte, error) {
	if bp.IsHole() {
		return make([]byte, bp.LSize), nil
	}

	raw, err := read(int64(bp.DVA[0].Offset), int64(bp.PSize))
	if err != nil {
		return nil, fmt.Errorf("poolfmt: dereference block pointer: %w", err)
	}

	switch bp.Compression {
	case CompressOff:
		return raw, nil
	default:
		out := LZJBDecompress(raw, int(bp.LSize))
		if out == nil {
			return nil, fmt.Errorf("poolfmt: lzjb decompression failed for block at offset %d", bp.DVA[0].Offset)
		}
		return out, nil
	}
}
