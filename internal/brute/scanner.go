// Package brute scans the sectors a legitimate filesystem walk never
// touched, looking for orphaned DNodes whose metadata survives even
// though nothing live still points to them.
package brute

import (
	"github.com/sirupsen/logrus"

	"zfinds/internal/blockdev"
	"zfinds/internal/poolfmt"
	"zfinds/internal/sectormap"
)

// readSize is the number of bytes read per candidate sector: two sectors
// at once, so a DNode straddling a sector boundary is still caught in a
// single read, at bounded extra cost.
const readSize = 1024

// chunkSize is the DNode size, and the inner scan step within a
// readSize read.
const chunkSize = poolfmt.DNodeSize

// Scan walks every unset sector in snapshot, attempting to decompress and
// parse candidate DNodes, and emits a FileInfo (with no name) for every
// plain-file DNode found. It never advances past sectors snapshot has
// already marked: those were consumed by the legitimate walk.
func Scan(read blockdev.ReadFunc, snapshot *sectormap.Map, log *logrus.Logger, emit func(*poolfmt.FileInfo)) {
	gen := snapshot.UnsetGen()
	for {
		sector, ok := gen()
		if !ok {
			break
		}

		offset := int64(sector) * blockdev.SectorSize
		raw, err := read(offset, readSize)
		if err != nil {
			log.WithError(err).WithField("sector", sector).Debug("brute: read failed")
			continue
		}
		if len(raw) == 0 {
			continue
		}

		decompressed := poolfmt.LZJBDecompress(raw, len(raw))
		if len(decompressed) == 0 {
			continue
		}

		chunks := len(decompressed) / chunkSize
		for j := 0; j < chunks; j++ {
			chunk := decompressed[j*chunkSize : (j+1)*chunkSize]

			d, err := poolfmt.ParseDNode(chunk)
			if err != nil {
				log.WithError(err).WithField("sector", sector).Debug("brute: not a dnode")
				continue
			}
			if d.Type == poolfmt.TypeNone {
				continue
			}
			if d.Type != poolfmt.TypePlainFileContents {
				continue
			}

			zf := poolfmt.NewZFile(d, read)
			emit(&poolfmt.FileInfo{File: zf, Name: nil})
		}
	}
}
