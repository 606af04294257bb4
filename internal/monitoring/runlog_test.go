package monitoring

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/blobtrack/internal/timeutil"
)

func TestRunLog_Printf(t *testing.T) {
	var buf bytes.Buffer
	clock := timeutil.NewMockClock(time.Date(2026, 10, 19, 8, 5, 0, 0, time.UTC))
	l := NewRunLog(&buf, clock)

	l.Printf("Images %s were skipped because unreadable", "3, 7")
	clock.Advance(time.Second)
	l.Printf("done\n")

	want := "2026-10-19 08:05:00\tImages 3, 7 were skipped because unreadable\n" +
		"2026-10-19 08:05:01\tdone\n"
	if buf.String() != want {
		t.Errorf("run log = %q, want %q", buf.String(), want)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on writer log: %v", err)
	}
}

func TestOpenRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	l, err := OpenRunLog(path, timeutil.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	if err != nil {
		t.Fatalf("OpenRunLog error: %v", err)
	}
	l.Printf("fatal at frame %d", 12)
	if err := l.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "2026-01-02 03:04:05\tfatal at frame 12\n"; got != want {
		t.Errorf("log file = %q, want %q", got, want)
	}

	if _, err := OpenRunLog(filepath.Join(t.TempDir(), "missing", "log"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}
