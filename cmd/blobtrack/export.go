package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/blobtrack/internal/blobtrack/export"
	"github.com/banshee-data/blobtrack/internal/blobtrack/storage/sqlite"
)

var (
	exportRunID  string
	exportOutDir string
)

var exportCmd = &cobra.Command{
	Use:   "export <tracking.db>",
	Short: "Write the tracking table of a run to tracking.txt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, n, err := exportTracking(args[0], exportRunID, exportOutDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", n, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "Run id (default: latest run)")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "Output directory (default: the database directory)")
	rootCmd.AddCommand(exportCmd)
}

// exportTracking writes tracking.txt for runID (latest when empty) and
// returns its path and row count.
func exportTracking(dbPath, runID, outDir string) (string, int, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return "", 0, err
	}
	defer db.Close()

	run, err := resolveRun(sqlite.NewRunStore(db.DB, nil), runID)
	if err != nil {
		return "", 0, err
	}
	records, err := sqlite.NewTrackingStore(db.DB).ListRecords(run.ID)
	if err != nil {
		return "", 0, err
	}
	if outDir == "" {
		outDir = filepath.Dir(dbPath)
	}
	path, err := export.WriteFile(outDir, records)
	if err != nil {
		return "", 0, err
	}
	return path, len(records), nil
}

func resolveRun(runs *sqlite.RunStore, id string) (*sqlite.Run, error) {
	if id == "" {
		run, err := runs.Latest()
		if err != nil {
			return nil, fmt.Errorf("no run to export: %w", err)
		}
		return run, nil
	}
	return runs.Get(id)
}
