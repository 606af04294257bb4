package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/banshee-data/blobtrack/internal/blobtrack/export"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l1frames"
	"github.com/banshee-data/blobtrack/internal/blobtrack/l3detect"
	"github.com/banshee-data/blobtrack/internal/blobtrack/pipeline"
	"github.com/banshee-data/blobtrack/internal/blobtrack/storage/sqlite"
	"github.com/banshee-data/blobtrack/internal/config"
	"github.com/banshee-data/blobtrack/internal/fsutil"
	"github.com/banshee-data/blobtrack/internal/monitoring"
	"github.com/banshee-data/blobtrack/internal/timeutil"
)

// TrackOptions holds the flags of the track command.
type TrackOptions struct {
	Input      string
	ConfigPath string
	OutDir     string // overrides the default result directory
	Start      int
	Stop       int
	NoProgress bool

	stderr io.Writer
	clock  timeutil.Clock
}

// TrackResult describes where a run left its outputs.
type TrackResult struct {
	ResultDir string
	Archived  string
	Run       *sqlite.Run
	Summary   pipeline.Summary
	Rows      int
}

var trackOpts TrackOptions

var trackCmd = &cobra.Command{
	Use:   "track <frames-dir | video>",
	Short: "Track objects through an image sequence or video of binary masks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := trackOpts
		opts.Input = args[0]
		opts.stderr = cmd.ErrOrStderr()
		res, err := runTrack(cmd.Context(), opts)
		if res != nil {
			printSummary(cmd.OutOrStdout(), res)
		}
		return err
	},
}

func init() {
	trackCmd.Flags().StringVarP(&trackOpts.ConfigPath, "config", "c", "", "Tuning config JSON (default: built-in defaults)")
	trackCmd.Flags().StringVarP(&trackOpts.OutDir, "out", "o", "", "Result directory (default: Tracking_Result next to the input)")
	trackCmd.Flags().IntVar(&trackOpts.Start, "start", 0, "First frame to process")
	trackCmd.Flags().IntVar(&trackOpts.Stop, "stop", 0, "Stop before this frame (0: process to the end)")
	trackCmd.Flags().BoolVar(&trackOpts.NoProgress, "no-progress", false, "Disable the progress bar")
	rootCmd.AddCommand(trackCmd)
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// openSource opens a directory as an image sequence and anything else as a
// video.
func openSource(input string, opts l1frames.Options) (l1frames.Source, error) {
	st, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return l1frames.OpenSequence(input, opts)
	}
	return l1frames.OpenVideo(input, opts)
}

// runTrack performs one tracking run. A non-nil result is returned as soon
// as the run is registered, even when the run then fails.
func runTrack(ctx context.Context, opts TrackOptions) (*TrackResult, error) {
	clock := timeutil.OrReal(opts.clock)
	stderr := opts.stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := openSource(opts.Input, l1frames.OptionsFromParams(params))
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	res := &TrackResult{ResultDir: opts.OutDir}
	if res.ResultDir == "" {
		if res.ResultDir, err = fsutil.ResultDirFor(fsutil.OSFileSystem{}, opts.Input); err != nil {
			return nil, err
		}
	}
	if res.Archived, err = fsutil.PrepareResultDir(fsutil.OSFileSystem{}, res.ResultDir, clock); err != nil {
		return nil, err
	}
	if err := cfg.WriteFile(filepath.Join(res.ResultDir, fsutil.ConfigFile)); err != nil {
		return nil, err
	}

	runLog, err := monitoring.OpenRunLog(filepath.Join(res.ResultDir, fsutil.LogFile), clock)
	if err != nil {
		return nil, err
	}
	defer runLog.Close()
	previous := monitoring.Logf
	if verbose {
		monitoring.SetLogger(monitoring.Tee(log.Printf, runLog.Printf))
	} else {
		monitoring.SetLogger(runLog.Printf)
	}
	defer monitoring.SetLogger(previous)

	db, err := sqlite.Open(filepath.Join(res.ResultDir, fsutil.DatabaseFile))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	runs := sqlite.NewRunStore(db.DB, clock)
	if res.Run, err = runs.Create(opts.Input); err != nil {
		return nil, err
	}
	if err := sqlite.NewParameterStore(db.DB).Save(res.Run.ID, parametersOf(cfg)); err != nil {
		return res, err
	}

	sink := sqlite.NewTrackingSink(db.DB, res.Run.ID, cfg.GetCommitEvery())
	p, err := pipeline.New(pipeline.Config{
		Params:   params,
		Detector: l3detect.NewFrameDetector(src, params),
		Sink:     sink,
		Progress: progressReporter(opts, src.Len(), stderr),
		Start:    opts.Start,
		Stop:     opts.Stop,
		Clock:    clock,
	})
	if err != nil {
		if ferr := runs.Finish(res.Run.ID, sqlite.RunFailed, opts.Start-1, err.Error()); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return res, err
	}

	res.Summary, err = p.Run(ctx)
	res.Rows = sink.Committed()

	status, message := sqlite.RunComplete, res.Summary.SkippedMessage()
	if message != "" {
		runLog.Printf("%s", message)
	}
	switch {
	case err != nil:
		status, message = sqlite.RunFailed, err.Error()
		runLog.Printf("%v", err)
	case res.Summary.Cancelled:
		status = sqlite.RunCancelled
		runLog.Printf("cancelled after frame %d", res.Summary.LastFrame)
	}
	if ferr := runs.Finish(res.Run.ID, status, res.Summary.LastFrame, message); ferr != nil {
		err = errors.Join(err, ferr)
	}

	// The text export is written after failures too: it holds everything
	// flushed before the fatal frame.
	records, lerr := sqlite.NewTrackingStore(db.DB).ListRecords(res.Run.ID)
	if lerr == nil {
		_, lerr = export.WriteFile(res.ResultDir, records)
	}
	if lerr != nil {
		err = errors.Join(err, fmt.Errorf("export %s: %w", export.FileName, lerr))
	}
	if res.Run, lerr = runs.Get(res.Run.ID); lerr != nil {
		err = errors.Join(err, lerr)
	}
	return res, err
}

func parametersOf(cfg *config.TuningConfig) []sqlite.Parameter {
	entries := cfg.Entries()
	params := make([]sqlite.Parameter, len(entries))
	for i, e := range entries {
		params[i] = sqlite.Parameter{Name: e.Name, Value: e.Value}
	}
	return params
}

func progressReporter(opts TrackOptions, n int, w io.Writer) pipeline.ProgressFunc {
	if opts.NoProgress {
		return nil
	}
	stop := opts.Stop
	if stop == 0 {
		stop = n
	}
	total := stop - opts.Start
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("tracking"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
	)
	return func(done, total int) {
		bar.Set(done)
		if done == total {
			bar.Finish()
			fmt.Fprintln(w)
		}
	}
}

func printSummary(w io.Writer, res *TrackResult) {
	s := res.Summary
	if res.Archived != "" {
		fmt.Fprintf(w, "Previous results archived to %s\n", res.Archived)
	}
	fmt.Fprintf(w, "Results: %s\n", res.ResultDir)
	if res.Run != nil {
		fmt.Fprintf(w, "Run %s: %s\n", res.Run.ID, res.Run.Status)
	}
	fmt.Fprintf(w, "Processed %d frames (last %d) in %s\n", s.FramesProcessed, s.LastFrame, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Tracks created: %d, removed: %d, rows stored: %d\n", s.TracksCreated, s.TracksRemoved, res.Rows)
	if msg := s.SkippedMessage(); msg != "" {
		fmt.Fprintln(w, msg)
	}
}
