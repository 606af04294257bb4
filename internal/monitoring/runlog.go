package monitoring

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/banshee-data/blobtrack/internal/timeutil"
)

// RunLog appends timestamped, tab-separated lines to the log file of a
// result directory. It is safe for concurrent use.
type RunLog struct {
	mu    sync.Mutex
	w     io.Writer
	c     io.Closer
	clock timeutil.Clock
}

// OpenRunLog creates (truncating) the log file at path.
func OpenRunLog(path string, clock timeutil.Clock) (*RunLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	l := NewRunLog(f, clock)
	l.c = f
	return l, nil
}

// NewRunLog writes to w. A nil clock uses the real clock.
func NewRunLog(w io.Writer, clock timeutil.Clock) *RunLog {
	return &RunLog{w: w, clock: timeutil.OrReal(clock)}
}

// Printf writes one line: the timestamp, a tab, then the message.
func (l *RunLog) Printf(format string, v ...interface{}) {
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\t%s\n", l.clock.Now().Format(timeutil.LogLayout), msg)
}

// Close closes the underlying file, if OpenRunLog created it.
func (l *RunLog) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
