package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/blobtrack/internal/blobtrack/export"
	"github.com/banshee-data/blobtrack/internal/blobtrack/storage/sqlite"
	"github.com/banshee-data/blobtrack/internal/fsutil"
)

var importDBPath string

var importCmd = &cobra.Command{
	Use:   "import <tracking.txt | result-dir>",
	Short: "Load a tracking.txt export into a tracking database as a new run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, n, err := importTracking(args[0], importDBPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows as run %s\n", n, run.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDBPath, "db", "", "Target database (default: tracking.db beside the export)")
	rootCmd.AddCommand(importCmd)
}

// importTracking reads a tracking.txt and stores it as a completed run.
func importTracking(src, dbPath string) (*sqlite.Run, int, error) {
	records, err := export.ReadFile(src)
	if err != nil {
		return nil, 0, err
	}
	if dbPath == "" {
		dir := src
		if st, err := os.Stat(src); err == nil && !st.IsDir() {
			dir = filepath.Dir(src)
		}
		dbPath = filepath.Join(dir, fsutil.DatabaseFile)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, 0, err
	}
	defer db.Close()

	runs := sqlite.NewRunStore(db.DB, nil)
	run, err := runs.Create(src)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlite.NewTrackingStore(db.DB).InsertRecords(run.ID, records); err != nil {
		runs.Finish(run.ID, sqlite.RunFailed, -1, err.Error())
		return nil, 0, err
	}

	last := -1
	for _, r := range records {
		last = max(last, r.FrameIndex)
	}
	if err := runs.Finish(run.ID, sqlite.RunComplete, last, "imported from "+src); err != nil {
		return nil, 0, err
	}
	run, err = runs.Get(run.ID)
	return run, len(records), err
}
