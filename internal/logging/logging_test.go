package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewDefaultsToWarn(t *testing.T) {
	log, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("got level %v, want Warn", log.GetLevel())
	}
}

func TestNewAcceptsKnownLevelsCaseInsensitively(t *testing.T) {
	log, err := New("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("got level %v, want Debug", log.GetLevel())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("TRACE-ALL"); err == nil {
		t.Fatalf("expected error for unrecognized level")
	}
}

func TestComponentAttachesField(t *testing.T) {
	log, _ := New("INFO")
	entry := Component(log, "uber")
	if entry.Data["component"] != "uber" {
		t.Fatalf("got fields %v, want component=uber", entry.Data)
	}
}
