// Package pipeline turns the raw events file into the published feed.
//
// A run is a pure function of the input batch, the window configuration
// and the generation timestamp: load, normalize each entry, filter by
// window, deduplicate, sort, serialize, write. Bad entries are dropped
// individually and counted; only a failure to write the output itself
// is an error.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shropcal/whatson/internal/event"
	"github.com/shropcal/whatson/internal/ics"
	"github.com/shropcal/whatson/internal/logger"
	"github.com/shropcal/whatson/internal/store"
)

// Options configures one pipeline run.
type Options struct {
	// EventsPath is the YAML events file to load.
	EventsPath string
	// OutPath is where the finished feed is written.
	OutPath string
	// Window is the inclusion interval applied to every event.
	Window Window
	// CalendarName is the feed's display name.
	CalendarName string
	// Stamp is the generation timestamp written to the feed. Injected
	// rather than taken from the clock so runs are reproducible.
	Stamp time.Time
}

// Result reports what happened to every entry in the batch.
type Result struct {
	// Raw is the number of entries loaded from the source.
	Raw int
	// Rejected counts dropped entries by rejection reason.
	Rejected map[string]int
	// Filtered is the number of valid events outside the window.
	Filtered int
	// Deduplicated is the number of events collapsed into an earlier
	// record with the same identity key.
	Deduplicated int
	// Emitted is the number of events in the written feed.
	Emitted int
}

// RejectedTotal sums the rejection counts across reasons.
func (r *Result) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Run executes the full build. It always attempts to write a
// well-formed feed; an empty feed from an empty or entirely invalid
// source is success, and only an output write failure returns an error.
// The Result is valid even when an error is returned.
func Run(opts Options) (*Result, error) {
	res := &Result{Rejected: make(map[string]int)}

	raw := store.Load(opts.EventsPath)
	res.Raw = len(raw)

	accepted := make([]*event.Event, 0, len(raw))
	for _, entry := range raw {
		ev, rej := Normalize(entry)
		if rej != nil {
			res.Rejected[rej.Reason]++
			logger.Warn("entry rejected", logger.Fields{
				"reason":  rej.Reason,
				"field":   rej.Field,
				"value":   rej.Value,
				"summary": store.Text(entry["summary"]),
			})
			continue
		}
		if !opts.Window.Includes(ev) {
			res.Filtered++
			continue
		}
		accepted = append(accepted, ev)
	}

	emitted := dedupe(accepted)
	res.Deduplicated = len(accepted) - len(emitted)

	sortEvents(emitted)
	res.Emitted = len(emitted)

	name := opts.CalendarName
	if name == "" {
		name = ics.DefaultCalendarName
	}
	data := ics.Calendar(emitted, name, opts.Stamp)

	if err := writeAtomic(opts.OutPath, data); err != nil {
		return res, fmt.Errorf("writing feed: %w", err)
	}
	return res, nil
}

// dedupe drops later records sharing an identity key with an earlier
// one. It runs on arrival order, before sorting, so "first seen wins"
// means first in the source file.
func dedupe(events []*event.Event) []*event.Event {
	seen := make(map[event.Key]bool, len(events))
	unique := make([]*event.Event, 0, len(events))
	for _, ev := range events {
		k := ev.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, ev)
	}
	return unique
}

// sortEvents orders events by start date, then case-insensitive summary
// as a stable tie-break.
func sortEvents(events []*event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return strings.ToLower(events[i].Summary) < strings.ToLower(events[j].Summary)
	})
}

// writeAtomic writes data to path via a temp file in the same directory
// and a rename, so a write failure never leaves a truncated feed at the
// canonical location.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".whatson-*.ics")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing output file: %w", err)
	}
	return nil
}
