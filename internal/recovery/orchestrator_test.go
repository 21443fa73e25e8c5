package recovery

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"zfinds/internal/blockdev"
	"zfinds/internal/collector"
)

type spyWriter struct {
	uberCalls  [][]collector.Entry
	bruteCalls [][]collector.Entry
}

func (s *spyWriter) WriteUber(entries []collector.Entry) error {
	s.uberCalls = append(s.uberCalls, entries)
	return nil
}

func (s *spyWriter) WriteBrute(entries []collector.Entry) error {
	s.bruteCalls = append(s.bruteCalls, entries)
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewOrchestratorStartsInInitState(t *testing.T) {
	reader := &blockdev.Reader{}
	o := New(reader, &spyWriter{}, testLogger())
	if o.State() != StateInit {
		t.Fatalf("got state %v, want StateInit", o.State())
	}
}

func TestFindBruteWithoutCacheScansFullDevice(t *testing.T) {
	// An empty device (size 0) should yield a zero-sector map and complete
	// cleanly with no files found, matching spec.md's "empty device"
	// boundary behavior.
	reader, err := blockdevOpenTemp(t, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reader.Close()

	o := New(reader, &spyWriter{}, testLogger())
	if err := o.FindBrute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != StateBruteDone {
		t.Fatalf("got state %v, want StateBruteDone", o.State())
	}
	if o.BruteCount() != 0 {
		t.Fatalf("got brute count %d, want 0", o.BruteCount())
	}
}

func TestWriteUberAndWriteBruteAreNoOpsWithoutPriorFind(t *testing.T) {
	reader := &blockdev.Reader{}
	w := &spyWriter{}
	o := New(reader, w, testLogger())

	if err := o.WriteUber(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.WriteBrute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.uberCalls) != 0 || len(w.bruteCalls) != 0 {
		t.Fatalf("expected no writer calls without a prior find")
	}
}

// blockdevOpenTemp creates a zero-or-n-byte temp file and opens it as a
// blockdev.Reader, for tests that need a real device handle.
func blockdevOpenTemp(t *testing.T, size int64) (*blockdev.Reader, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.img")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return nil, err
	}
	return blockdev.Open(path)
}
