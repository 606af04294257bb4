// Package fsutil lays out the result directory of a tracking run.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/blobtrack/internal/timeutil"
)

// ResultDirName is the result directory created next to an image sequence.
// A video gets ResultDirName + "_" + its base name.
const ResultDirName = "Tracking_Result"

// Names of the files written into a result directory.
const (
	ConfigFile   = "cfg.json"
	DatabaseFile = "tracking.db"
	LogFile      = "log"
)

// FileSystem abstracts the directory operations used to lay out results.
// Use OSFileSystem for production.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldpath, newpath string) error
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

// Stat returns file info for the named file.
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// MkdirAll creates a directory path.
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// Rename moves oldpath to newpath.
func (OSFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

// ResultDirFor returns where the results of input go: inside input when it
// is a directory of frames, beside it when it is a video file.
func ResultDirFor(fsys FileSystem, input string) (string, error) {
	st, err := fsys.Stat(input)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	if st.IsDir() {
		return filepath.Join(input, ResultDirName), nil
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), ResultDirName+"_"+SanitizeName(base)), nil
}

// PrepareResultDir creates an empty dir. An existing dir is first renamed to
// dir_Archive-<timestamp>; the archive path is returned, or "" when there
// was nothing to archive.
func PrepareResultDir(fsys FileSystem, dir string, clock timeutil.Clock) (string, error) {
	clock = timeutil.OrReal(clock)
	var archived string

	_, err := fsys.Stat(dir)
	switch {
	case err == nil:
		archived, err = freeName(fsys, dir+"_Archive-"+clock.Now().Format(timeutil.ArchiveLayout))
		if err != nil {
			return "", err
		}
		if err := fsys.Rename(dir, archived); err != nil {
			return "", fmt.Errorf("archive %s: %w", dir, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("stat %s: %w", dir, err)
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return archived, nil
}

// freeName returns name, or name-N for the first N that does not exist.
func freeName(fsys FileSystem, name string) (string, error) {
	candidate := name
	for n := 1; ; n++ {
		_, err := fsys.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = name + "-" + strconv.Itoa(n)
	}
}

// SanitizeName makes a directory-name fragment from an arbitrary file
// base name. Runs of characters other than ASCII letters, digits, dot,
// underscore or dash become a single underscore.
func SanitizeName(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "video"
	}
	return out
}
