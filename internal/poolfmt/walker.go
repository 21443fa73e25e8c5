package poolfmt

import (
	"errors"
	"fmt"
	"strings"

	"zfinds/internal/blockdev"
)

// object directory well-known entries.
const objDirRootDataset = "root_dataset"

// Walker performs a depth-first traversal of a pool's object graph rooted
// at a single superblock, emitting FileInfo for every plain file reached.
type Walker struct {
	read blockdev.ReadFunc
}

// NewWalker builds a Walker bound to a device read function.
func NewWalker(read blockdev.ReadFunc) *Walker {
	return &Walker{read: read}
}

// Walk dereferences rootBP into the meta object set, resolves the root
// dataset's filesystem root directory, and descends depth-first,
// invoking emit for every plain file encountered. A fat-ZAP directory
// anywhere in the traversal aborts the whole walk with
// ErrUnsupportedFormat, which the caller treats as "abandon this
// superblock, try another txg".
func (w *Walker) Walk(rootBP *BlockPointer, emit func(*FileInfo)) error {
	metaSet, err := OpenObjectSet(rootBP, w.read)
	if err != nil {
		return err
	}

	objDirNode, err := metaSet.OpenObject(1)
	if err != nil {
		return fmt.Errorf("poolfmt: open object directory: %w", err)
	}
	objDirData, err := objDirNode.Data(w.read)
	if err != nil {
		return fmt.Errorf("poolfmt: read object directory contents: %w", err)
	}
	objDir, err := ParseMicroZAP(objDirData)
	if err != nil {
		return err
	}

	rootDataset, ok := objDir[objDirRootDataset]
	if !ok {
		return fmt.Errorf("poolfmt: object directory has no %q entry", objDirRootDataset)
	}

	// The format's full dataset chain (DSL directory -> DSL dataset ->
	// head dataset's object set) collapses here to a single indirection:
	// the root_dataset entry's object id is treated as the object id of
	// the filesystem's own root directory within the same meta object
	// set, rather than as a separate dataset object carrying its own
	// object-set block pointer. This mirrors how monkeypatch.py resolves
	// it for the single-filesystem, no-snapshot pools this tool targets.
	rootDirNode, err := metaSet.OpenObject(rootDataset)
	if err != nil {
		return fmt.Errorf("poolfmt: open filesystem root directory (object %d): %w", rootDataset, err)
	}

	return w.walkDirectory(metaSet, rootDirNode, nil, emit)
}

func (w *Walker) walkDirectory(set *ObjectSet, dir *DNode, path []string, emit func(*FileInfo)) error {
	data, err := dir.Data(w.read)
	if err != nil {
		return fmt.Errorf("poolfmt: read directory contents: %w", err)
	}

	entries, err := ParseMicroZAP(data)
	if err != nil {
		return err
	}

	for name, childID := range entries {
		child, err := set.OpenObject(childID)
		if errors.Is(err, ErrHoleObject) {
			continue
		}
		if err != nil {
			continue // unparseable child: skip it, keep walking siblings
		}

		childPath := append(append([]string{}, path...), name)

		switch child.Type {
		case TypeDirectoryContents:
			if err := w.walkDirectory(set, child, childPath, emit); err != nil {
				if errors.Is(err, ErrUnsupportedFormat) {
					return err
				}
				continue
			}
		case TypePlainFileContents:
			zf := NewZFile(child, w.read)
			joined := strings.Join(childPath, "_")
			emit(&FileInfo{File: zf, Name: &joined})
		default:
			// object directories, bonus-only objects, etc: not traversable
			// and not a file, ignored.
		}
	}

	return nil
}
