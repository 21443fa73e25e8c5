// Package collector implements the content-addressed, deduplicating file
// set that mediates between the live, historical, and brute-scavenged
// file populations.
package collector

import (
	"crypto/sha256"
	"fmt"
)

// Entry is anything a Collector can deduplicate by content: a File Info
// in production use, or a lightweight stand-in in tests. Collector only
// needs Read(); callers that need the richer poolfmt.FileInfo surface
// (Name, timestamps) type-assert Values()'s results back to it.
type Entry interface {
	Read() ([]byte, error)
}

// Collector is a plain mapping from content digest to Entry, plus
// hashing and exclusion-chain checks performed on Add.
type Collector struct {
	exclude *Collector
	entries map[[sha256.Size]byte]Entry
}

// New builds a Collector. A non-nil exclude chains to another Collector
// (or Collectors, via its own exclude) whose keys are treated as already
// present.
func New(exclude *Collector) *Collector {
	return &Collector{exclude: exclude, entries: make(map[[sha256.Size]byte]Entry)}
}

// Add computes the SHA-256 digest of the file's full contents and inserts
// it under that digest, unless the digest already exists in this
// Collector or anywhere in its exclusion chain, in which case the add is
// silently discarded. Read errors are returned so the caller can log and
// skip rather than corrupt the set with a zero-length digest.
func (c *Collector) Add(fi Entry) error {
	data, err := fi.Read()
	if err != nil {
		return fmt.Errorf("collector: read file contents: %w", err)
	}

	digest := sha256.Sum256(data)
	if c.contains(digest) {
		return nil
	}
	c.entries[digest] = fi
	return nil
}

func (c *Collector) contains(digest [sha256.Size]byte) bool {
	for cur := c; cur != nil; cur = cur.exclude {
		if _, ok := cur.entries[digest]; ok {
			return true
		}
	}
	return false
}

// Merge returns a new Collector whose key set is the union of c and
// other's. A nil other is treated as empty. The result has no exclusion
// chain of its own; it is a standalone snapshot.
func (c *Collector) Merge(other *Collector) *Collector {
	merged := New(nil)
	if c != nil {
		for k, v := range c.entries {
			merged.entries[k] = v
		}
	}
	if other != nil {
		for k, v := range other.entries {
			merged.entries[k] = v
		}
	}
	return merged
}

// Values returns every Entry currently held, in arbitrary order.
func (c *Collector) Values() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, fi := range c.entries {
		out = append(out, fi)
	}
	return out
}

// Len reports the number of distinct digests held.
func (c *Collector) Len() int {
	return len(c.entries)
}
