package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/blobtrack/internal/blobtrack"
	"github.com/banshee-data/blobtrack/internal/timeutil"
)

func init() {
	SetLogWriters(nil, nil)
}

func testParams() blobtrack.Params {
	return blobtrack.Params{
		MinArea:          0,
		MaxArea:          1000,
		Spot:             blobtrack.SpotHead,
		Length:           5,
		Angle:            0.5,
		MaxDist:          20,
		MaxOcclusionTime: 2,
		Prediction:       blobtrack.PredictBorrowedMagnitude,
	}
}

func at(x, y float64) blobtrack.ObjectFeatures {
	p := blobtrack.Pose{X: x, Y: y}
	return blobtrack.ObjectFeatures{Head: p, Tail: p, Body: p, Area: 100, Perimeter: 40}
}

// fakeDetector serves scripted frames. errs overrides a frame's result.
type fakeDetector struct {
	frames []blobtrack.DetectionSet
	errs   map[int]error
	onCall func(index int)
}

func (d *fakeDetector) Len() int { return len(d.frames) }

func (d *fakeDetector) DetectFrame(_ context.Context, index int) (blobtrack.DetectionSet, error) {
	if d.onCall != nil {
		d.onCall(index)
	}
	if err, ok := d.errs[index]; ok {
		return nil, err
	}
	return d.frames[index], nil
}

type memorySink struct {
	frames   []blobtrack.FrameOutput
	flushed  int // frames durable at the last flush
	flushes  int
	failOn   int
	writeErr error
}

func (s *memorySink) WriteFrame(out blobtrack.FrameOutput) error {
	if s.writeErr != nil && out.FrameIndex == s.failOn {
		return s.writeErr
	}
	s.frames = append(s.frames, out)
	return nil
}

func (s *memorySink) Flush() error {
	s.flushes++
	s.flushed = len(s.frames)
	return nil
}

func walking(n int) []blobtrack.DetectionSet {
	frames := make([]blobtrack.DetectionSet, n)
	for i := range frames {
		frames[i] = blobtrack.DetectionSet{at(float64(10+i), 10), at(100, float64(50+i))}
	}
	return frames
}

func TestRun_ProcessesAllFrames(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	var progress []int
	var observed int
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p, err := New(Config{
		Params:   testParams(),
		Detector: &fakeDetector{frames: walking(5), onCall: func(int) { clock.Advance(time.Second) }},
		Sink:     sink,
		Observer: func(blobtrack.FrameOutput) { observed++ },
		Progress: func(done, total int) { progress = append(progress, done*10+total) },
		Clock:    clock,
	})
	require.NoError(t, err)

	s, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, s.FramesProcessed)
	assert.Equal(t, 4, s.LastFrame)
	assert.Equal(t, 2, s.TracksCreated)
	assert.Equal(t, 5*time.Second, s.Elapsed)
	assert.False(t, s.Cancelled)
	assert.Equal(t, 5, observed)
	assert.Equal(t, []int{15, 25, 35, 45, 55}, progress)
	require.Len(t, sink.frames, 5)
	assert.Equal(t, 5, sink.flushed)
	for i, out := range sink.frames {
		assert.Equal(t, i, out.FrameIndex)
		require.Len(t, out.Records, 2)
		assert.Equal(t, 0, out.Records[0].ID)
		assert.Equal(t, 1, out.Records[1].ID)
	}
}

func TestRun_StartStop(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	p, err := New(Config{
		Params:   testParams(),
		Detector: &fakeDetector{frames: walking(10)},
		Sink:     sink,
		Start:    3,
		Stop:     6,
	})
	require.NoError(t, err)

	s, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.FramesProcessed)
	assert.Equal(t, 5, s.LastFrame)
	require.Len(t, sink.frames, 3)
	assert.Equal(t, 3, sink.frames[0].FrameIndex)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Params: testParams()})
	assert.Error(t, err, "missing detector")

	bad := testParams()
	bad.MaxDist = 0
	_, err = New(Config{Params: bad, Detector: &fakeDetector{}})
	assert.Error(t, err)

	_, err = New(Config{Params: testParams(), Detector: &fakeDetector{frames: walking(3)}, Start: 2, Stop: 1})
	assert.Error(t, err)
}

func TestRun_SkipsUnreadableFrames(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	det := &fakeDetector{
		frames: walking(6),
		errs: map[int]error{
			2: fmt.Errorf("frame_002.png: %w", blobtrack.ErrFrameUnreadable),
			3: fmt.Errorf("frame_003.png: %w", blobtrack.ErrFrameUnreadable),
		},
	}
	p, err := New(Config{Params: testParams(), Detector: det, Sink: sink})
	require.NoError(t, err)

	s, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, s.SkippedFrames)
	assert.Equal(t, "Images 2, 3 were skipped because unreadable", s.SkippedMessage())
	assert.Equal(t, 6, s.FramesProcessed)

	// Skipped frames count as empty: both tracks are occluded, not moved.
	skipped := sink.frames[2]
	assert.ElementsMatch(t, []int{0, 1}, skipped.Occluded)
	assert.Equal(t, sink.frames[1].Records[0].Head, skipped.Records[0].Head)
	assert.Empty(t, skipped.Observed())
	// MaxOcclusionTime 2: the tracks survive two empty frames and recover.
	assert.Empty(t, sink.frames[4].Occluded)
	assert.Equal(t, 2, s.TracksCreated)
}

func TestRun_FatalFlushesFirst(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	boom := errors.New("mask corrupted")
	det := &fakeDetector{frames: walking(6), errs: map[int]error{4: boom}}
	p, err := New(Config{Params: testParams(), Detector: det, Sink: sink})
	require.NoError(t, err)

	s, err := p.Run(context.Background())
	require.Error(t, err)

	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 4, fe.Frame)
	assert.Equal(t, 3, fe.LastProcessed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "processed up to frame 3")
	assert.Equal(t, 3, s.LastFrame)
	assert.Equal(t, 4, sink.flushed, "frames 0-3 must be flushed before the error surfaces")
}

func TestRun_SinkFailureIsFatal(t *testing.T) {
	t.Parallel()
	sink := &memorySink{failOn: 2, writeErr: errors.New("disk full")}
	p, err := New(Config{Params: testParams(), Detector: &fakeDetector{frames: walking(5)}, Sink: sink})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Frame)
	assert.Equal(t, 1, fe.LastProcessed)
	assert.Equal(t, 2, sink.flushed)
}

func TestRun_NonFiniteFeaturesAreFatal(t *testing.T) {
	t.Parallel()
	frames := walking(3)
	bad := at(1, 1)
	bad.Curvature = 1 / zero()
	frames[1] = blobtrack.DetectionSet{bad}
	p, err := New(Config{Params: testParams(), Detector: &fakeDetector{frames: frames}})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Frame)
	assert.Equal(t, 0, fe.LastProcessed)
}

func zero() float64 { return 0 }

func TestRun_CancelFlushesPartialOutput(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())
	det := &fakeDetector{frames: walking(10), onCall: func(index int) {
		if index == 3 {
			cancel()
		}
	}}
	p, err := New(Config{Params: testParams(), Detector: det, Sink: sink})
	require.NoError(t, err)

	s, err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, s.Cancelled)
	assert.Equal(t, 3, s.LastFrame)
	assert.Equal(t, 4, s.FramesProcessed)
	assert.Equal(t, 4, sink.flushed)
}

func TestStart_Handle(t *testing.T) {
	t.Parallel()
	sink := &memorySink{}
	p, err := New(Config{Params: testParams(), Detector: &fakeDetector{frames: walking(4)}, Sink: sink})
	require.NoError(t, err)

	h := p.Start(context.Background())
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
	s, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 4, s.FramesProcessed)
	assert.Equal(t, 2, p.Tracks().Len())
}

func TestStart_CancelStopsAtFrameBoundary(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	det := &fakeDetector{frames: walking(100), onCall: func(index int) {
		if index == 1 {
			<-release
		}
	}}
	p, err := New(Config{Params: testParams(), Detector: det, Sink: &memorySink{}})
	require.NoError(t, err)

	h := p.Start(context.Background())
	h.Cancel()
	close(release)

	s, err := h.Wait()
	require.NoError(t, err)
	assert.True(t, s.Cancelled)
	assert.Less(t, s.FramesProcessed, 100)
}
