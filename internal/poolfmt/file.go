package poolfmt

import (
	"encoding/binary"
	"time"

	"zfinds/internal/blockdev"
)

// znode bonus buffer layout (a reduced znode_phys_t): four timestamps —
// atime, mtime, ctime, crtime — each a (seconds, nanoseconds) pair of
// uint64s, followed by generation, mode, size, parent object id, and link
// count. spec.md only requires access/modify time and content length, so
// only those fields are decoded.
const (
	bonusAtimeOff = 0
	bonusMtimeOff = 16
	bonusSizeOff  = 80
)

// ZFile is an object-metadata node of plain-file type plus its parsed
// bonus region, matching spec.md's File Descriptor entity.
type ZFile struct {
	DNode      *DNode
	Read_      blockdev.ReadFunc
	AccessTime time.Time
	ModifyTime time.Time
	Size       uint64

	literal []byte // set only by NewLiteralFileInfo; bypasses DNode dereferencing
}

// NewZFile builds a ZFile from a plain-file DNode, parsing its bonus
// region for timestamps and declared size.
func NewZFile(d *DNode, read blockdev.ReadFunc) *ZFile {
	zf := &ZFile{DNode: d, Read_: read}

	if len(d.Bonus) >= bonusMtimeOff+16 {
		zf.AccessTime = decodeTimestamp(d.Bonus[bonusAtimeOff:])
		zf.ModifyTime = decodeTimestamp(d.Bonus[bonusMtimeOff:])
	}
	if len(d.Bonus) >= bonusSizeOff+8 {
		zf.Size = binary.LittleEndian.Uint64(d.Bonus[bonusSizeOff:])
	}

	return zf
}

func decodeTimestamp(buf []byte) time.Time {
	sec := binary.LittleEndian.Uint64(buf[0:8])
	nsec := binary.LittleEndian.Uint64(buf[8:16])
	if sec == 0 && nsec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// Contents materializes the file's byte contents by dereferencing its
// block pointers, truncated to the declared size.
func (z *ZFile) Contents() ([]byte, error) {
	if z.literal != nil {
		return z.literal, nil
	}

	data, err := z.DNode.Data(z.Read_)
	if err != nil {
		return nil, err
	}
	if z.Size > 0 && uint64(len(data)) > z.Size {
		data = data[:z.Size]
	}
	return data, nil
}

// FileInfo pairs a ZFile with an optional path-derived name, matching
// spec.md's File Info entity. A nil Name means the file was scavenged
// without any surviving path context (e.g. a brute-scan find).
type FileInfo struct {
	File *ZFile
	Name *string
}

// Read returns the underlying file's contents.
func (fi *FileInfo) Read() ([]byte, error) {
	return fi.File.Contents()
}

// NewLiteralFileInfo builds a FileInfo backed directly by in-memory bytes
// rather than a DNode to dereference, with the given access/modify
// times. Used by the writer tests, where exercising the
// full label/object-set/dnode pipeline just to get bytes and timestamps
// onto a FileInfo would obscure what's actually under test.
func NewLiteralFileInfo(name *string, data []byte, atime, mtime time.Time) *FileInfo {
	return &FileInfo{
		File: &ZFile{
			AccessTime: atime,
			ModifyTime: mtime,
			Size:       uint64(len(data)),
			literal:    data,
		},
		Name: name,
	}
}
