// Command whatson-scrape harvests event candidates from the Shropshire
// Events Guide website into the events YAML file.
package main

import (
	"fmt"
	"os"

	"github.com/shropcal/whatson/internal/event"
	"github.com/shropcal/whatson/internal/logger"
	"github.com/shropcal/whatson/internal/scraper"
	"github.com/shropcal/whatson/internal/store"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagFrom    string
	flagTo      string
	flagOut     string
	flagMerge   bool
	flagBaseURL string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatson-scrape",
		Short: "Scrape events from the Shropshire Events Guide",
		Long: `Scrapes event candidates from the events guide website and writes
them to the events YAML file consumed by whatson-build. With --merge,
existing entries are kept and only new (summary, start) pairs are added.`,
		RunE:         runScrape,
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&flagFrom, "from", "", "Range start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&flagTo, "to", "", "Range end, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&flagOut, "out", "data/events.yaml", "Events YAML file to write")
	cmd.Flags().BoolVar(&flagMerge, "merge", false, "Merge with existing file instead of overwriting")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Override the site base URL")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	from, err := event.ParseDate(flagFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := event.ParseDate(flagTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", flagTo, flagFrom)
	}

	s := scraper.New(flagBaseURL)
	scraped, err := s.FetchRange(from, to)
	if err != nil {
		return fmt.Errorf("scraping events: %w", err)
	}
	fmt.Printf("Scraped %d events.\n", len(scraped))

	if flagMerge {
		existing := store.Load(flagOut)
		merged, added := store.Merge(existing, scraped)
		if err := store.Save(flagOut, merged); err != nil {
			return fmt.Errorf("saving events file: %w", err)
		}
		fmt.Printf("Added %d new; total %d.\n", added, len(merged))
		return nil
	}

	if err := store.Save(flagOut, scraped); err != nil {
		return fmt.Errorf("saving events file: %w", err)
	}
	fmt.Printf("Wrote %s with %d events.\n", flagOut, len(scraped))
	return nil
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		logger.Error("scrape failed", nil, err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
