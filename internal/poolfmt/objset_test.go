package poolfmt

import (
	"encoding/binary"
	"errors"
	"testing"
)

func buildPlainFileDNode(contentSector uint64, contentLen int) []byte {
	buf := make([]byte, DNodeSize)
	buf[0] = TypePlainFileContents
	buf[3] = 1
	bonusLen := uint16(bonusSizeOff + 8)
	binary.LittleEndian.PutUint16(buf[10:], bonusLen)

	bp := buildBlockPointer(contentSector, 1, 1, 1, CompressOff)
	copy(buf[dnodeHeaderSize:dnodeHeaderSize+BlockPointerSize], bp)

	bonusStart := dnodeHeaderSize + BlockPointerSize
	bonus := buf[bonusStart : bonusStart+int(bonusLen)]
	binary.LittleEndian.PutUint64(bonus[bonusSizeOff:], uint64(contentLen))

	return buf
}

// buildObjectSetFixture wires together a root block pointer, its
// dereferenced meta-dnode block, and a two-object array (a hole at id 0,
// a plain file at id 1) entirely through a read function over an
// in-memory disk map.
func buildObjectSetFixture() (*BlockPointer, blockdevReadFunc) {
	disk := make(map[int64][]byte)

	contentBlock := make([]byte, 512)
	copy(contentBlock, "ZFILEDAT")
	disk[16*512] = contentBlock

	objectArray := make([]byte, 1024)
	copy(objectArray[512:1024], buildPlainFileDNode(16, 8))
	disk[4096] = objectArray

	dataBP := buildBlockPointer(8, 2, 2, 2, CompressOff)
	metaBlock := make([]byte, 512)
	metaBlock[3] = 1 // numBlkPtr
	copy(metaBlock[dnodeHeaderSize:dnodeHeaderSize+BlockPointerSize], dataBP)
	disk[0] = metaBlock

	read := func(offset, size int64) ([]byte, error) {
		buf, ok := disk[offset]
		if !ok || int64(len(buf)) < size {
			return nil, errBoundsForTest
		}
		return buf[:size], nil
	}

	rootBP, _ := ParseBlockPointer(buildBlockPointer(0, 1, 1, 1, CompressOff))
	return rootBP, read
}

type blockdevReadFunc = func(int64, int64) ([]byte, error)

var errBoundsForTest = errors.New("poolfmt: test fixture read out of bounds")

func TestOpenObjectSetParsesMetaDNodeAndObjects(t *testing.T) {
	rootBP, read := buildObjectSetFixture()

	set, err := OpenObjectSet(rootBP, read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.NumObjects() != 2 {
		t.Fatalf("got %d objects, want 2", set.NumObjects())
	}
}

func TestObjectSetOpenObjectHole(t *testing.T) {
	rootBP, read := buildObjectSetFixture()
	set, err := OpenObjectSet(rootBP, read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = set.OpenObject(0)
	if !errors.Is(err, ErrHoleObject) {
		t.Fatalf("got error %v, want ErrHoleObject", err)
	}
}

func TestObjectSetOpenObjectPlainFile(t *testing.T) {
	rootBP, read := buildObjectSetFixture()
	set, err := OpenObjectSet(rootBP, read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, err := set.OpenObject(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Type != TypePlainFileContents {
		t.Fatalf("got type %d, want %d", d.Type, TypePlainFileContents)
	}
}

func TestObjectSetOpenObjectOutOfRange(t *testing.T) {
	rootBP, read := buildObjectSetFixture()
	set, err := OpenObjectSet(rootBP, read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := set.OpenObject(99); err == nil {
		t.Fatalf("expected error for out-of-range object id")
	}
}
