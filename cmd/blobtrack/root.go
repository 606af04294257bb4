package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/blobtrack/internal/blobtrack/pipeline"
	"github.com/banshee-data/blobtrack/internal/version"
)

// verbose enables per-frame diagnostics and mirrors component logs to
// stderr.
var verbose bool

var rootCmd = &cobra.Command{
	Use:           "blobtrack",
	Short:         "Track indistinguishable moving objects in binary frames",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			pipeline.SetLogWriters(os.Stderr, os.Stderr)
		}
	},
}

// Execute runs the root command with a context cancelled by Ctrl+C or
// SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-frame diagnostics to stderr")
}
