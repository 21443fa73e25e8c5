package poolfmt

import (
	"fmt"

	"zfinds/internal/blockdev"
)

// objSetHeaderSize is the portion of an object set block occupied by its
// own meta-dnode; spec.md §4.1 describes the object set as "a meta-dnode
// whose data is the flat array of every other dnode in the set".
const objSetHeaderSize = DNodeSize

// ObjectSet is a flat array of dnodes reachable from a single meta-dnode,
// matching spec.md's Object Set entity (a filesystem's own object space).
type ObjectSet struct {
	read     blockdev.ReadFunc
	metaDNode *DNode
	dnodes   [][]byte // raw, unparsed: most objects in a set are holes
}

// OpenObjectSet parses the object set block a root (or directory-entry)
// block pointer refers to.
func OpenObjectSet(bp *BlockPointer, read blockdev.ReadFunc) (*ObjectSet, error) {
	block, err := bp.Dereference(read)
	if err != nil {
		return nil, fmt.Errorf("poolfmt: dereference object set block: %w", err)
	}
	if len(block) < objSetHeaderSize {
		return nil, fmt.Errorf("poolfmt: object set block truncated")
	}

	meta, err := ParseDNode(block[:objSetHeaderSize])
	if err != nil {
		return nil, fmt.Errorf("poolfmt: parse object set meta-dnode: %w", err)
	}

	data, err := meta.Data(read)
	if err != nil {
		return nil, fmt.Errorf("poolfmt: read object set meta-dnode data: %w", err)
	}

	count := len(data) / DNodeSize
	dnodes := make([][]byte, count)
	for i := 0; i < count; i++ {
		dnodes[i] = data[i*DNodeSize : (i+1)*DNodeSize]
	}

	return &ObjectSet{read: read, metaDNode: meta, dnodes: dnodes}, nil
}

// NumObjects reports how many object id slots this set has, including
// unused (all-zero) ones.
func (os *ObjectSet) NumObjects() int {
	return len(os.dnodes)
}

// OpenObject parses and returns the dnode at the given object id.
// A hole (never-allocated) slot returns ErrHoleObject.
var ErrHoleObject = fmt.Errorf("poolfmt: object id refers to an unallocated slot")

func (os *ObjectSet) OpenObject(id uint64) (*DNode, error) {
	if id >= uint64(len(os.dnodes)) {
		return nil, fmt.Errorf("poolfmt: object id %d out of range (set has %d objects)", id, len(os.dnodes))
	}

	raw := os.dnodes[id]
	if allZero(raw) {
		return nil, ErrHoleObject
	}

	d, err := ParseDNode(raw)
	if err != nil {
		return nil, fmt.Errorf("poolfmt: object %d: %w", id, err)
	}
	return d, nil
}

func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
