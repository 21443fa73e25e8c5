// Package recovery sequences cache-build, uber, and brute recovery
// against a single device, composing exclusion chains between the three
// file populations and forwarding results to an external writer.
package recovery

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zfinds/internal/blockdev"
	"zfinds/internal/brute"
	"zfinds/internal/collector"
	"zfinds/internal/logging"
	"zfinds/internal/poolfmt"
	"zfinds/internal/sectormap"
	"zfinds/internal/sectortracker"
)

// State is the orchestrator's run state machine, per spec.md §4.8.
type State int

const (
	StateInit State = iota
	StateCached
	StateUberDone
	StateBruteDone
	StateWritten
)

// Writer is the external collaborator that persists recovered files.
type Writer interface {
	WriteUber(entries []collector.Entry) error
	WriteBrute(entries []collector.Entry) error
}

// Orchestrator sequences the recovery run described in spec.md §4.8.
type Orchestrator struct {
	reader *blockdev.Reader
	writer Writer
	log    *logrus.Logger
	state  State

	files      *collector.Collector
	filesUber  *collector.Collector
	filesBrute *collector.Collector

	tracker *sectortracker.Tracker
}

// New builds an Orchestrator over an already-open device reader.
func New(reader *blockdev.Reader, writer Writer, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		reader: reader,
		writer: writer,
		log:    log,
		state:  StateInit,
		files:  collector.New(nil),
	}
}

// State reports the orchestrator's current phase.
func (o *Orchestrator) State() State { return o.state }

// BuildCache installs a Sector Tracker in place of the raw device read
// entry point, opens the pool at its current active superblock, and
// walks it into the live-file Collector.
func (o *Orchestrator) BuildCache() error {
	log := logging.Component(o.log, "cache")

	o.tracker = sectortracker.New(o.reader.Read, o.reader.Size())

	labels, err := poolfmt.ReadLabels(o.tracker.Read, o.reader.Size())
	if err != nil {
		return fmt.Errorf("recovery: build cache: %w", err)
	}

	sb, err := poolfmt.ActiveSuperblock(labels)
	if err != nil {
		return fmt.Errorf("recovery: build cache: %w", err)
	}
	rootBP, err := sb.LoadRootPointer()
	if err != nil {
		return fmt.Errorf("recovery: build cache: %w", err)
	}

	w := poolfmt.NewWalker(o.tracker.Read)
	if err := w.Walk(rootBP, func(fi *poolfmt.FileInfo) {
		if err := o.files.Add(fi); err != nil {
			log.WithError(err).Debug("discarding unreadable live file")
		}
	}); err != nil {
		if errors.Is(err, poolfmt.ErrUnsupportedFormat) {
			log.WithError(err).Warn("active superblock uses unsupported directory format")
		} else {
			return fmt.Errorf("recovery: build cache: %w", err)
		}
	}

	o.state = StateCached
	return nil
}

// FindUber enumerates every valid historical superblock across all
// labels, deduplicated by txg, and walks each into the uber Collector,
// excluding anything already in files.
func (o *Orchestrator) FindUber() error {
	log := logging.Component(o.log, "uber")
	o.filesUber = collector.New(o.files)

	read := o.readFunc()
	labels, err := poolfmt.ReadLabels(read, o.reader.Size())
	if err != nil {
		return fmt.Errorf("recovery: find uber: %w", err)
	}

	for _, sb := range poolfmt.EnumerateAllSuperblocks(labels) {
		rootBP, err := sb.LoadRootPointer()
		if err != nil {
			log.WithError(err).WithField("txg", sb.TXG).Debug("could not load root pointer")
			continue
		}

		w := poolfmt.NewWalker(read)
		err = w.Walk(rootBP, func(fi *poolfmt.FileInfo) {
			if err := o.filesUber.Add(fi); err != nil {
				log.WithError(err).WithField("txg", sb.TXG).Debug("discarding unreadable uber file")
			}
		})
		if err == nil {
			continue
		}
		if errors.Is(err, poolfmt.ErrUnsupportedFormat) {
			log.WithError(err).WithField("txg", sb.TXG).Warn("skipping txg: unsupported directory format")
			continue
		}
		log.WithError(err).WithField("txg", sb.TXG).Debug("skipping txg: walk failed")
	}

	o.state = StateUberDone
	return nil
}

// FindBrute scans the complement of the tracker's sector map (or, if no
// cache was built, every sector) for orphaned plain-file DNodes,
// excluding anything already in files and files_uber.
func (o *Orchestrator) FindBrute() error {
	log := logging.Component(o.log, "brute")

	o.filesBrute = collector.New(o.files.Merge(o.filesUber))

	var snapshot *sectormap.Map
	if o.tracker != nil {
		snapshot = o.tracker.Snapshot()
	} else {
		snapshot = sectormap.New(uint(o.reader.Size() / blockdev.SectorSize))
	}

	brute.Scan(o.reader.Read, snapshot, o.log, func(fi *poolfmt.FileInfo) {
		if err := o.filesBrute.Add(fi); err != nil {
			log.WithError(err).Debug("discarding unreadable brute file")
		}
	})

	o.state = StateBruteDone
	return nil
}

// WriteUber hands the uber Collector to the external Writer.
func (o *Orchestrator) WriteUber() error {
	if o.filesUber == nil {
		return nil
	}
	if err := o.writer.WriteUber(o.filesUber.Values()); err != nil {
		return fmt.Errorf("recovery: write uber: %w", err)
	}
	o.state = StateWritten
	return nil
}

// WriteBrute hands the brute Collector to the external Writer.
func (o *Orchestrator) WriteBrute() error {
	if o.filesBrute == nil {
		return nil
	}
	if err := o.writer.WriteBrute(o.filesBrute.Values()); err != nil {
		return fmt.Errorf("recovery: write brute: %w", err)
	}
	o.state = StateWritten
	return nil
}

// UberCount and BruteCount report how many files are in each Collector so
// far, for progress reporting.
func (o *Orchestrator) UberCount() int {
	if o.filesUber == nil {
		return 0
	}
	return o.filesUber.Len()
}

func (o *Orchestrator) BruteCount() int {
	if o.filesBrute == nil {
		return 0
	}
	return o.filesBrute.Len()
}

func (o *Orchestrator) readFunc() blockdev.ReadFunc {
	if o.tracker != nil {
		return o.tracker.Read
	}
	return o.reader.Read
}
