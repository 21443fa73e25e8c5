package poolfmt

import (
	"encoding/binary"
	"fmt"
)

// nvlist value type tags, a reduced subset of the format's DATA_TYPE enum
// (see original_source's monkeypatch.py, which patches NVPair._single_pair_decode).
const (
	nvTypeBoolean = 1
	nvTypeUint64  = 8
	nvTypeString  = 9
)

// VdevTree is the pool's vdev tree description, parsed out of a label's
// name/value header. Only single-disk pools are supported (see spec.md's
// Non-goals), so the tree is reduced to the single leaf vdev's declared
// type and path.
type VdevTree struct {
	Type string
	Path string
	GUID uint64
}

// parseNVList decodes a (deliberately reduced) XDR-encoded name/value list:
// a sequence of (encoded_sz, decoded_sz, name, type, value) records
// terminated by a pair of zero encoded/decoded sizes. Only the primitive
// types the vdev tree header actually uses (string, uint64, boolean) are
// supported; anything else is skipped by its encoded size so parsing can
// continue.
func parseNVList(buf []byte) (map[string]any, error) {
	values := make(map[string]any)
	off := 0

	for off+8 <= len(buf) {
		encodedSz := binary.BigEndian.Uint32(buf[off:])
		decodedSz := binary.BigEndian.Uint32(buf[off+4:])
		if encodedSz == 0 && decodedSz == 0 {
			break
		}
		if encodedSz == 0 || int(encodedSz) > len(buf)-off {
			return values, fmt.Errorf("poolfmt: nvlist record at offset %d has invalid size %d", off, encodedSz)
		}

		record := buf[off : off+int(encodedSz)]
		name, rest, err := xdrString(record[8:])
		if err != nil {
			return values, fmt.Errorf("poolfmt: nvlist name: %w", err)
		}

		if len(rest) < 8 {
			return values, fmt.Errorf("poolfmt: nvlist record truncated after name %q", name)
		}
		typ := binary.BigEndian.Uint32(rest[0:])
		_ = binary.BigEndian.Uint32(rest[4:]) // element count, unused for scalars
		valueBuf := rest[8:]

		switch typ {
		case nvTypeUint64:
			if len(valueBuf) >= 8 {
				values[name] = binary.BigEndian.Uint64(valueBuf)
			}
		case nvTypeString:
			s, _, err := xdrString(valueBuf)
			if err == nil {
				values[name] = s
			}
		case nvTypeBoolean:
			values[name] = true
		}

		off += int(encodedSz)
	}

	return values, nil
}

// xdrString decodes a length-prefixed, 4-byte-padded string as used
// throughout the nvlist encoding.
func xdrString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, fmt.Errorf("poolfmt: xdr string length truncated")
	}
	n := binary.BigEndian.Uint32(buf)
	padded := int((n + 3) &^ 3)
	if len(buf) < 4+padded {
		return "", nil, fmt.Errorf("poolfmt: xdr string body truncated")
	}
	s := string(buf[4 : 4+n])
	return s, buf[4+padded:], nil
}

// parseVdevTree extracts the single-disk vdev description (type, path,
// guid) from a label's name/value blob. It does not count top-level
// vdevs, so a multi-device pool is not rejected here.
func parseVdevTree(nvBuf []byte) (VdevTree, error) {
	values, err := parseNVList(nvBuf)
	if err != nil && len(values) == 0 {
		return VdevTree{}, err
	}

	tree := VdevTree{Type: "disk"}
	if t, ok := values["type"].(string); ok {
		tree.Type = t
	}
	if p, ok := values["path"].(string); ok {
		tree.Path = p
	}
	if g, ok := values["guid"].(uint64); ok {
		tree.GUID = g
	}
	return tree, nil
}
