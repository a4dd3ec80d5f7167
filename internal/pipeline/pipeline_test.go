package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shropcal/whatson/internal/event"
)

var testStamp = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func writeEventsFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("writing events file: %v", err)
	}
	return path
}

func runPipeline(t *testing.T, eventsPath string, win Window) (*Result, string) {
	t.Helper()
	outPath := filepath.Join(t.TempDir(), "feed.ics")
	res, err := Run(Options{
		EventsPath: eventsPath,
		OutPath:    outPath,
		Window:     win,
		Stamp:      testStamp,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output feed: %v", err)
	}
	return res, string(data)
}

func openWindow() Window { return Window{Open: true} }

func standardWindow() Window {
	return Window{
		From: event.NewDate(2025, time.June, 1),
		To:   event.NewDate(2026, time.December, 31),
	}
}

func TestRunScenario(t *testing.T) {
	// Two exact duplicates of "Fete" plus a "Market" outside the
	// window: one emitted, one filtered, one deduplicated.
	path := writeEventsFile(t, `
events:
  - summary: Fete
    start: "2025-07-04"
  - summary: Fete
    start: "2025-07-04"
  - summary: Market
    start: "2025-01-01"
`)

	res, feed := runPipeline(t, path, standardWindow())

	if res.Raw != 3 {
		t.Errorf("raw = %d, expected 3", res.Raw)
	}
	if res.Emitted != 1 {
		t.Errorf("emitted = %d, expected 1", res.Emitted)
	}
	if res.Filtered != 1 {
		t.Errorf("filtered = %d, expected 1", res.Filtered)
	}
	if res.Deduplicated != 1 {
		t.Errorf("deduplicated = %d, expected 1", res.Deduplicated)
	}
	if res.RejectedTotal() != 0 {
		t.Errorf("rejected = %d, expected 0", res.RejectedTotal())
	}

	if strings.Count(feed, "BEGIN:VEVENT") != 1 {
		t.Errorf("feed should contain exactly one event:\n%s", feed)
	}
	if !strings.Contains(feed, "SUMMARY:Fete") {
		t.Error("feed should contain the Fete event")
	}
	if strings.Contains(feed, "Market") {
		t.Error("Market is outside the window and should not appear")
	}
}

func TestRunIdempotence(t *testing.T) {
	path := writeEventsFile(t, `
events:
  - summary: Fair
    start: "2025-07-04"
    end: "2025-07-06"
    location: Shrewsbury
  - summary: Concert
    start: "2025-08-01"
    url: https://example.com/concert
`)

	_, first := runPipeline(t, path, standardWindow())
	_, second := runPipeline(t, path, standardWindow())

	if !bytes.Equal([]byte(first), []byte(second)) {
		t.Error("two runs over identical input and stamp should be byte-identical")
	}
}

func TestRunRejectionIsNonFatal(t *testing.T) {
	path := writeEventsFile(t, `
events:
  - summary: Good One
    start: "2025-07-04"
  - start: "2025-07-05"
  - summary: Bad Date
    start: "05/07/2025"
  - summary: Good Two
    start: "2025-07-06"
`)

	res, feed := runPipeline(t, path, openWindow())

	if res.Emitted != 2 {
		t.Errorf("emitted = %d, expected 2", res.Emitted)
	}
	if res.Rejected[ReasonMissingField] != 1 {
		t.Errorf("missing field rejections = %d, expected 1", res.Rejected[ReasonMissingField])
	}
	if res.Rejected[ReasonBadDate] != 1 {
		t.Errorf("bad date rejections = %d, expected 1", res.Rejected[ReasonBadDate])
	}
	if strings.Count(feed, "BEGIN:VEVENT") != 2 {
		t.Errorf("feed should contain the two valid events:\n%s", feed)
	}
}

func TestRunDedupFirstSeenWins(t *testing.T) {
	// Both records share the identity key; the first in load order
	// keeps its optional fields.
	path := writeEventsFile(t, `
events:
  - summary: Fete
    start: "2025-07-04"
    location: First Venue
  - summary: Fete
    start: "2025-07-04"
    location: Second Venue
`)

	res, feed := runPipeline(t, path, openWindow())

	if res.Emitted != 1 {
		t.Fatalf("emitted = %d, expected 1", res.Emitted)
	}
	if !strings.Contains(feed, "LOCATION:First Venue") {
		t.Errorf("first-seen record should win:\n%s", feed)
	}
	if strings.Contains(feed, "Second Venue") {
		t.Error("later duplicate should be dropped entirely")
	}
}

func TestRunSortOrder(t *testing.T) {
	path := writeEventsFile(t, `
events:
  - summary: zebra crossing walk
    start: "2025-07-04"
  - summary: Apple Day
    start: "2025-07-04"
  - summary: Early Market
    start: "2025-06-02"
`)

	_, feed := runPipeline(t, path, openWindow())

	early := strings.Index(feed, "SUMMARY:Early Market")
	apple := strings.Index(feed, "SUMMARY:Apple Day")
	zebra := strings.Index(feed, "SUMMARY:zebra crossing walk")
	if early < 0 || apple < 0 || zebra < 0 {
		t.Fatalf("missing events in feed:\n%s", feed)
	}
	if !(early < apple && apple < zebra) {
		t.Errorf("expected start-date then case-insensitive summary order, got positions %d %d %d",
			early, apple, zebra)
	}
}

func TestRunMissingSourceProducesEmptyFeed(t *testing.T) {
	res, feed := runPipeline(t, filepath.Join(t.TempDir(), "nope.yaml"), openWindow())

	if res.Raw != 0 || res.Emitted != 0 {
		t.Errorf("counts should be zero, got %+v", res)
	}
	if !strings.Contains(feed, "BEGIN:VCALENDAR") || !strings.Contains(feed, "END:VCALENDAR") {
		t.Errorf("missing source must still produce a well-formed feed:\n%s", feed)
	}
	if strings.Contains(feed, "BEGIN:VEVENT") {
		t.Error("empty batch should produce zero event units")
	}
}

func TestRunMalformedSourceProducesEmptyFeed(t *testing.T) {
	path := writeEventsFile(t, "events: {this is: [not a list\n")

	res, feed := runPipeline(t, path, openWindow())

	if res.Raw != 0 || res.Emitted != 0 {
		t.Errorf("counts should be zero, got %+v", res)
	}
	if !strings.Contains(feed, "END:VCALENDAR") {
		t.Errorf("malformed source must still produce a well-formed feed:\n%s", feed)
	}
}

func TestRunWriteFailureReturnsError(t *testing.T) {
	path := writeEventsFile(t, "events: []\n")

	_, err := Run(Options{
		EventsPath: path,
		OutPath:    filepath.Join(t.TempDir(), "no-such-dir", "feed.ics"),
		Window:     openWindow(),
		Stamp:      testStamp,
	})
	if err == nil {
		t.Fatal("expected an error when the output directory does not exist")
	}
}
