package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/blobtrack/internal/timeutil"
)

func TestResultDirFor(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "run 1 (cam).avi")
	if err := os.WriteFile(video, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ResultDirFor(OSFileSystem{}, dir)
	if err != nil {
		t.Fatalf("ResultDirFor(dir) error: %v", err)
	}
	if want := filepath.Join(dir, "Tracking_Result"); got != want {
		t.Errorf("ResultDirFor(dir) = %q, want %q", got, want)
	}

	got, err = ResultDirFor(OSFileSystem{}, video)
	if err != nil {
		t.Fatalf("ResultDirFor(video) error: %v", err)
	}
	if want := filepath.Join(dir, "Tracking_Result_run_1_cam"); got != want {
		t.Errorf("ResultDirFor(video) = %q, want %q", got, want)
	}

	if _, err := ResultDirFor(OSFileSystem{}, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestPrepareResultDir_Fresh(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ResultDirName)

	archived, err := PrepareResultDir(OSFileSystem{}, dir, nil)
	if err != nil {
		t.Fatalf("PrepareResultDir error: %v", err)
	}
	if archived != "" {
		t.Errorf("archived = %q, want none", archived)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Errorf("result dir not created: %v", err)
	}
}

func TestPrepareResultDir_ArchivesExisting(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ResultDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, LogFile), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	clock := timeutil.NewMockClock(time.Date(2026, 10, 19, 14, 3, 59, 0, time.UTC))

	archived, err := PrepareResultDir(OSFileSystem{}, dir, clock)
	if err != nil {
		t.Fatalf("PrepareResultDir error: %v", err)
	}
	want := filepath.Join(root, "Tracking_Result_Archive-19-Oct-2026-14-03-59")
	if archived != want {
		t.Errorf("archived = %q, want %q", archived, want)
	}
	if data, err := os.ReadFile(filepath.Join(archived, LogFile)); err != nil || string(data) != "old" {
		t.Errorf("archived log = %q, %v", data, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh result dir has %d entries", len(entries))
	}

	// Same second again: the archive name gets a suffix.
	archived, err = PrepareResultDir(OSFileSystem{}, dir, clock)
	if err != nil {
		t.Fatalf("second PrepareResultDir error: %v", err)
	}
	if archived != want+"-1" {
		t.Errorf("second archive = %q, want %q", archived, want+"-1")
	}
}

type failingRename struct {
	OSFileSystem
}

func (failingRename) Rename(string, string) error { return errors.New("device busy") }

func TestPrepareResultDir_RenameFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := PrepareResultDir(failingRename{}, dir, nil)
	if err == nil {
		t.Fatal("expected error when archiving fails")
	}
}

type statDenied struct {
	OSFileSystem
}

func (statDenied) Stat(name string) (fs.FileInfo, error) {
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrPermission}
}

func TestPrepareResultDir_StatFailure(t *testing.T) {
	_, err := PrepareResultDir(statDenied{}, filepath.Join(t.TempDir(), "x"), nil)
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("error = %v, want permission error", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"clip01", "clip01"},
		{"my video", "my_video"},
		{"a//b\\c", "a_b_c"},
		{"__x__", "x"},
		{"", "video"},
		{"$$$", "video"},
		{"fish-tank.v2", "fish-tank.v2"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
