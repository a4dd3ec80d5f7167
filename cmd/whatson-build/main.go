// Command whatson-build generates the published What's On calendar feed
// from the curated events file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shropcal/whatson/internal/config"
	"github.com/shropcal/whatson/internal/ics"
	"github.com/shropcal/whatson/internal/logger"
	"github.com/shropcal/whatson/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagEvents  string
	flagOut     string
	flagName    string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatson-build",
		Short: "Build the What's On calendar feed",
		Long: `Builds the published .ics calendar feed from the curated events file.
Loads data/events.yaml, validates and windows the entries, and writes a
standards-compliant all-day-event feed. An empty or missing events file
still produces a valid, empty feed.`,
		RunE:         runBuild,
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&flagEvents, "events", "data/events.yaml", "Path to the events YAML file")
	cmd.Flags().StringVar(&flagOut, "out", "whatson-shropshire-cheshire-northwales.ics", "Path of the .ics file to write")
	cmd.Flags().StringVar(&flagName, "calendar-name", ics.DefaultCalendarName, "Calendar display name")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	return cmd
}

// runBuild is the main command logic
func runBuild(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	res, err := pipeline.Run(pipeline.Options{
		EventsPath:   flagEvents,
		OutPath:      flagOut,
		CalendarName: flagName,
		Stamp:        time.Now().UTC(),
		Window: pipeline.Window{
			Open: cfg.WindowOpen,
			From: cfg.WindowFrom,
			To:   cfg.WindowTo,
		},
	})

	// Counts are reported regardless of outcome.
	logger.Info("build finished", logger.Fields{
		"raw":          res.Raw,
		"rejected":     res.RejectedTotal(),
		"by_reason":    res.Rejected,
		"filtered":     res.Filtered,
		"deduplicated": res.Deduplicated,
		"emitted":      res.Emitted,
	})

	if err != nil {
		return fmt.Errorf("building feed: %w", err)
	}

	fmt.Printf("Wrote %s with %d events.\n", flagOut, res.Emitted)
	return nil
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		logger.Error("build failed", nil, err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
