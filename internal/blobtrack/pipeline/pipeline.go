package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l5tracks"
	"github.com/banshee-data/blobtrack/internal/timeutil"
)

// DetectionStage produces the detection set of one frame (L1-L3). A frame
// that cannot be decoded returns an error wrapping
// blobtrack.ErrFrameUnreadable.
type DetectionStage interface {
	DetectFrame(ctx context.Context, index int) (blobtrack.DetectionSet, error)
}

// ResultSink receives the snapshot of every processed frame. Flush makes
// everything written so far durable.
type ResultSink interface {
	WriteFrame(out blobtrack.FrameOutput) error
	Flush() error
}

// Observer receives each frame snapshot after the sink. It runs on the
// worker goroutine and must not retain out beyond the call unless it copies
// it.
type Observer func(out blobtrack.FrameOutput)

// ProgressFunc reports done of total frames.
type ProgressFunc func(done, total int)

// Config holds the dependencies of a pipeline run.
type Config struct {
	Params   blobtrack.Params
	Detector DetectionStage
	Sink     ResultSink // Optional
	Observer Observer   // Optional
	Progress ProgressFunc

	// Frames [Start, Stop) are processed. Stop 0 means every frame when
	// the detector reports its length.
	Start int
	Stop  int

	Clock timeutil.Clock
}

// Summary describes a finished, cancelled or failed run.
type Summary struct {
	FramesProcessed int
	LastFrame       int // last frame fully applied, Start-1 if none
	SkippedFrames   []int
	TracksCreated   int
	TracksRemoved   int
	Elapsed         time.Duration
	Cancelled       bool
}

// SkippedMessage renders the skipped frames the way the run log reports
// them, or "" when none were skipped.
func (s Summary) SkippedMessage() string {
	if len(s.SkippedFrames) == 0 {
		return ""
	}
	parts := make([]string, len(s.SkippedFrames))
	for i, f := range s.SkippedFrames {
		parts[i] = strconv.Itoa(f)
	}
	return fmt.Sprintf("Images %s were skipped because unreadable", strings.Join(parts, ", "))
}

// FatalError stops a run. Everything up to LastProcessed was flushed to the
// sink before it was returned.
type FatalError struct {
	Frame         int
	LastProcessed int
	Err           error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("error during the processing of frame %d: %v (processed up to frame %d)", e.Frame, e.Err, e.LastProcessed)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Pipeline is a single-run tracking worker.
type Pipeline struct {
	cfg    Config
	tracks *l5tracks.Manager
}

// New validates cfg and builds an empty track table.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Detector == nil {
		return nil, errors.New("pipeline: detector is required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if cfg.Stop == 0 {
		if l, ok := cfg.Detector.(interface{ Len() int }); ok {
			cfg.Stop = l.Len()
		}
	}
	if cfg.Start < 0 || cfg.Stop < cfg.Start {
		return nil, fmt.Errorf("pipeline: invalid frame range [%d, %d)", cfg.Start, cfg.Stop)
	}
	cfg.Clock = timeutil.OrReal(cfg.Clock)
	return &Pipeline{cfg: cfg, tracks: l5tracks.NewManager(cfg.Params)}, nil
}

// Tracks exposes the track table for read access.
func (p *Pipeline) Tracks() *l5tracks.Manager { return p.tracks }

// Run processes every frame in order on the calling goroutine. On
// cancellation it flushes the sink and returns the partial summary with
// Cancelled set and a nil error. On a fatal error it flushes the sink and
// returns a *FatalError.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.cfg.Clock.Now()
	s := Summary{LastFrame: p.cfg.Start - 1}
	total := p.cfg.Stop - p.cfg.Start

	finish := func(err error) (Summary, error) {
		s.TracksCreated = p.tracks.TracksCreated
		s.TracksRemoved = p.tracks.TracksRemoved
		s.Elapsed = p.cfg.Clock.Since(start)
		if ferr := p.flush(); ferr != nil {
			if err == nil {
				err = &FatalError{Frame: s.LastFrame, LastProcessed: s.LastFrame, Err: fmt.Errorf("flush: %w", ferr)}
			} else {
				opsf("flush after failure: %v", ferr)
			}
		}
		if msg := s.SkippedMessage(); msg != "" {
			opsf("%s", msg)
		}
		return s, err
	}

	for idx := p.cfg.Start; idx < p.cfg.Stop; idx++ {
		if ctx.Err() != nil {
			s.Cancelled = true
			opsf("cancelled before frame %d", idx)
			return finish(nil)
		}

		set, err := p.cfg.Detector.DetectFrame(ctx, idx)
		switch {
		case err == nil:
		case errors.Is(err, blobtrack.ErrFrameUnreadable):
			opsf("frame %d skipped: %v", idx, err)
			s.SkippedFrames = append(s.SkippedFrames, idx)
			set = nil
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			s.Cancelled = true
			opsf("cancelled during frame %d", idx)
			return finish(nil)
		default:
			return finish(p.fatal(idx, s.LastFrame, err))
		}

		for i, f := range set {
			if !f.Finite() {
				return finish(p.fatal(idx, s.LastFrame, fmt.Errorf("detection %d has non-finite features", i)))
			}
		}

		res, err := p.tracks.Update(idx, set)
		if err != nil {
			return finish(p.fatal(idx, s.LastFrame, err))
		}
		diagf("frame %d: %d detections, %d tracks, %d occluded, new %v, removed %v",
			idx, len(set), len(res.Output.Records), len(res.Output.Occluded), res.NewIDs, res.RemovedIDs)

		if p.cfg.Sink != nil {
			if err := p.cfg.Sink.WriteFrame(res.Output); err != nil {
				return finish(p.fatal(idx, s.LastFrame, fmt.Errorf("write results: %w", err)))
			}
		}
		if p.cfg.Observer != nil {
			p.cfg.Observer(res.Output)
		}

		s.LastFrame = idx
		s.FramesProcessed++
		if p.cfg.Progress != nil {
			p.cfg.Progress(idx-p.cfg.Start+1, total)
		}
	}
	return finish(nil)
}

func (p *Pipeline) fatal(frame, last int, err error) error {
	fe := &FatalError{Frame: frame, LastProcessed: last, Err: err}
	opsf("%v", fe)
	return fe
}

func (p *Pipeline) flush() error {
	if p.cfg.Sink == nil {
		return nil
	}
	return p.cfg.Sink.Flush()
}
