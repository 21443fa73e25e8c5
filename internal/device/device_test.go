package device

import (
	"strings"
	"testing"
)

func TestFormatTableEmpty(t *testing.T) {
	if got := FormatTable(nil); got != "no devices found" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatTableListsEachDevice(t *testing.T) {
	devices := []Device{
		{Path: "/dev/sda", Name: "disk", SizeHuman: "8.0 GB", Filesystem: "zfs_member"},
	}
	got := FormatTable(devices)
	if !strings.Contains(got, "/dev/sda") || !strings.Contains(got, "zfs_member") {
		t.Fatalf("got %q", got)
	}
}

func TestHumanSizeFormatsUnits(t *testing.T) {
	if got := humanSize(512); got != "512 B" {
		t.Fatalf("got %q", got)
	}
	if got := humanSize(2048); got != "2.0 KB" {
		t.Fatalf("got %q", got)
	}
}

func TestParseSizeConvertsUnits(t *testing.T) {
	if got := parseSize("2", "GB"); got != 2*1024*1024*1024 {
		t.Fatalf("got %d", got)
	}
}
