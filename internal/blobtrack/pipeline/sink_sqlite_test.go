package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/blobtrack/internal/blobtrack/storage/sqlite"
	"github.com/banshee-data/blobtrack/internal/monitoring"
)

func openTrackingDB(t *testing.T) (*sqlite.DB, string) {
	t.Helper()
	monitoring.SetLogger(nil)
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	run, err := sqlite.NewRunStore(db.DB, nil).Create("walking")
	require.NoError(t, err)
	return db, run.ID
}

func TestRun_FatalDetectionKeepsStoredFrames(t *testing.T) {
	db, runID := openTrackingDB(t)
	p, err := New(Config{
		Params: testParams(),
		Detector: &fakeDetector{
			frames: walking(6),
			errs:   map[int]error{4: errors.New("camera gone")},
		},
		Sink: sqlite.NewTrackingSink(db.DB, runID, 50),
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.LastProcessed)

	n, err := sqlite.NewTrackingStore(db.DB).CountRecords(runID)
	require.NoError(t, err)
	assert.Equal(t, 2*(fe.LastProcessed+1), n, "two tracks per frame up to the last processed frame")
}

func TestRun_FatalSinkWriteKeepsStoredFrames(t *testing.T) {
	db, runID := openTrackingDB(t)
	_, err := db.Exec(`CREATE TRIGGER fail_frame BEFORE INSERT ON tracking
		WHEN NEW.imageNumber = 3 AND NEW.id = 1
		BEGIN SELECT RAISE(ABORT, 'disk says no'); END`)
	require.NoError(t, err)

	p, err := New(Config{
		Params:   testParams(),
		Detector: &fakeDetector{frames: walking(6)},
		Sink:     sqlite.NewTrackingSink(db.DB, runID, 50),
	})
	require.NoError(t, err)

	s, err := p.Run(context.Background())
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Frame)
	assert.Equal(t, 2, fe.LastProcessed)
	assert.Equal(t, 2, s.LastFrame)

	records, err := sqlite.NewTrackingStore(db.DB).ListRecords(runID)
	require.NoError(t, err)
	require.Len(t, records, 2*(fe.LastProcessed+1))
	for _, r := range records {
		assert.LessOrEqual(t, r.FrameIndex, fe.LastProcessed)
	}
}
