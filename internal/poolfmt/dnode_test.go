package poolfmt

import (
	"encoding/binary"
	"testing"
)

func buildDNode(typ uint8, numBlkPtr uint8, bonusLen uint16, bonus []byte) []byte {
	buf := make([]byte, DNodeSize)
	buf[0] = typ
	buf[3] = numBlkPtr
	binary.LittleEndian.PutUint16(buf[10:], bonusLen)

	blkPtrArea := buf[dnodeHeaderSize:]
	for i := 0; i < int(numBlkPtr); i++ {
		off := i * BlockPointerSize
		bp := buildBlockPointer(uint64(i), 1, 1, 1, CompressOff)
		copy(blkPtrArea[off:off+BlockPointerSize], bp)
	}
	bonusStart := int(numBlkPtr) * BlockPointerSize
	copy(blkPtrArea[bonusStart:bonusStart+len(bonus)], bonus)

	return buf
}

func TestParseDNodeDecodesHeaderAndBlockPointers(t *testing.T) {
	buf := buildDNode(TypePlainFileContents, 1, 8, []byte("deadbeef"))

	d, err := ParseDNode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Type != TypePlainFileContents {
		t.Fatalf("got type %d, want %d", d.Type, TypePlainFileContents)
	}
	if len(d.BlkPtrs) != 1 {
		t.Fatalf("got %d block pointers, want 1", len(d.BlkPtrs))
	}
	if string(d.Bonus) != "deadbeef" {
		t.Fatalf("got bonus %q, want %q", d.Bonus, "deadbeef")
	}
}

func TestParseDNodeRejectsImplausibleBlockPointerCount(t *testing.T) {
	buf := buildDNode(TypePlainFileContents, 0, 0, nil)
	if _, err := ParseDNode(buf); err == nil {
		t.Fatalf("expected error for zero block pointer count")
	}
}

func TestParseDNodeRejectsShortBuffer(t *testing.T) {
	if _, err := ParseDNode(make([]byte, 100)); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}

func TestDNodeDataConcatenatesBlocks(t *testing.T) {
	buf := buildDNode(TypePlainFileContents, 2, 0, nil)
	d, err := ParseDNode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reads := map[int64][]byte{
		0:                       []byte("AAAAAAAA"),
		int64(1 * 512): []byte("BBBBBBBB"),
	}
	read := func(offset, size int64) ([]byte, error) {
		return reads[offset], nil
	}
	// block pointer sizes are 1 sector (512 bytes) logical; our fake reads
	// are shorter but Dereference only cares that LSize/PSize sides agree.
	for _, bp := range d.BlkPtrs {
		bp.LSize = 8
		bp.PSize = 8
	}

	data, err := d.Data(read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "AAAAAAAABBBBBBBB" {
		t.Fatalf("got %q", data)
	}
}

func TestDNodeDataRejectsIndirectLevels(t *testing.T) {
	buf := buildDNode(TypePlainFileContents, 1, 0, nil)
	buf[2] = 2 // NLevels
	d, err := ParseDNode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Data(func(int64, int64) ([]byte, error) { return nil, nil }); err == nil {
		t.Fatalf("expected error for indirect dnode")
	}
}
