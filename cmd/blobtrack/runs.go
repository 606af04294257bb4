package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/blobtrack/internal/blobtrack/storage/sqlite"
)

var runsCmd = &cobra.Command{
	Use:   "runs <tracking.db>",
	Short: "List the runs stored in a tracking database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sqlite.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := sqlite.NewRunStore(db.DB, nil).List()
		if err != nil {
			return err
		}
		tracking := sqlite.NewTrackingStore(db.DB)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tLAST FRAME\tROWS\tSOURCE")
		for _, r := range runs {
			n, err := tracking.CountRecords(r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Format(time.DateTime), r.Status, r.LastFrame, n, r.Source)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
