package poolfmt

import (
	"encoding/binary"
	"testing"
)

func buildLabelDevice(devSize int64, activeTXG uint64) []byte {
	dev := make([]byte, devSize)
	offsets := []int64{0, LabelSize, devSize - 2*LabelSize, devSize - LabelSize}

	for _, labelOff := range offsets {
		sbArray := dev[labelOff+labelSBArrayOffset : labelOff+labelSBArrayOffset+labelSBArraySize]
		writeSlot(sbArray, 0, activeTXG, 100)
		writeSlot(sbArray, 1, activeTXG-1, 50) // older, lower priority
	}
	return dev
}

func writeSlot(sbArray []byte, slot int, txg, timestamp uint64) {
	off := slot * SlotSize
	s := sbArray[off : off+SlotSize]
	binary.LittleEndian.PutUint64(s[0:8], sbMagic)
	binary.LittleEndian.PutUint64(s[8:16], sbVersion)
	binary.LittleEndian.PutUint64(s[16:24], txg)
	binary.LittleEndian.PutUint64(s[32:40], timestamp)
	bp := buildBlockPointer(0, 1, 1, 1, CompressOff)
	copy(s[40:168], bp)
}

func TestReadLabelsFindsAllFourOffsets(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 5)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 4 {
		t.Fatalf("got %d labels, want 4", len(labels))
	}
}

func TestLabelActivePicksHighestTXG(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 5)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb := labels[0].Active()
	if sb == nil {
		t.Fatalf("expected an active superblock")
	}
	if sb.TXG != 5 {
		t.Fatalf("got txg %d, want 5", sb.TXG)
	}
}

func TestActiveSuperblockAcrossLabels(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 9)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, err := ActiveSuperblock(labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.TXG != 9 {
		t.Fatalf("got txg %d, want 9", sb.TXG)
	}
}

func TestSuperblockLoadRootPointerIsLazyAndIdempotent(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 5)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sb := labels[0].Active()

	bp1, err := sb.LoadRootPointer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bp2, err := sb.LoadRootPointer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp1 != bp2 {
		t.Fatalf("expected cached root pointer on second call")
	}
}

func TestLoadByTXGFindsMatchingSlotAcrossLabels(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 5)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, err := LoadByTXG(labels, 4) // the "older" slot written at txg-1=4
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.TXG != 4 {
		t.Fatalf("got txg %d, want 4", sb.TXG)
	}
}

func TestEnumerateAllSuperblocksSortedAscendingAndDeduped(t *testing.T) {
	devSize := int64(8 * LabelSize)
	dev := buildLabelDevice(devSize, 5)
	read := func(offset, size int64) ([]byte, error) { return dev[offset : offset+size], nil }

	labels, err := ReadLabels(read, devSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := EnumerateAllSuperblocks(labels)
	if len(all) != 2 {
		t.Fatalf("got %d superblocks, want 2 (deduped by txg)", len(all))
	}
	if all[0].TXG >= all[1].TXG {
		t.Fatalf("expected ascending order, got %d then %d", all[0].TXG, all[1].TXG)
	}
}
