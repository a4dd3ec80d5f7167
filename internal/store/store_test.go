package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeFile(t, `
events:
  - summary: Fete
    start: "2025-07-04"
    location: Shrewsbury
  - summary: Market
    start: "2025-08-01"
`)

	entries := Load(path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if Text(entries[0]["summary"]) != "Fete" {
		t.Errorf("first summary = %q", Text(entries[0]["summary"]))
	}
	if Text(entries[1]["location"]) != "" {
		t.Errorf("absent key should read as empty, got %q", Text(entries[1]["location"]))
	}
}

func TestLoadMissingFile(t *testing.T) {
	entries := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if entries != nil {
		t.Errorf("missing file should load as empty batch, got %v", entries)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken yaml", "events: [unclosed\n"},
		{"events not a list", "events: just a string\n"},
		{"events is a mapping", "events:\n  summary: Fete\n"},
		{"binary junk", "\x00\x01\x02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Load(writeFile(t, tt.content))
			if len(entries) != 0 {
				t.Errorf("malformed file should load as empty batch, got %v", entries)
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "Fete", "Fete"},
		{"nil", nil, ""},
		{"int", 2025, "2025"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.value); got != tt.want {
				t.Errorf("Text(%v) = %q, expected %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "events.yaml")

	records := []Record{
		{Summary: "Fete", Start: "2025-07-04", Location: "Shrewsbury"},
		{Summary: "Market", Start: "2025-08-01"},
	}
	if err := Save(path, records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries := Load(path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", len(entries))
	}
	if Text(entries[0]["summary"]) != "Fete" || Text(entries[0]["location"]) != "Shrewsbury" {
		t.Errorf("first entry did not round trip: %v", entries[0])
	}
	// Empty optionals must not be written at all.
	if _, present := entries[1]["location"]; present {
		t.Error("empty location should be omitted from the saved file")
	}
}

func TestMerge(t *testing.T) {
	existing := []Entry{
		{"summary": "Fete", "start": "2025-07-04", "location": "Original Venue"},
		{"summary": "Market", "start": "2025-08-01"},
	}
	scraped := []Record{
		{Summary: "Fete", Start: "2025-07-04", Location: "Scraped Venue"}, // duplicate key
		{Summary: "Concert", Start: "2025-06-15"},
		{Summary: "", Start: "2025-06-16"}, // keyless, skipped
	}

	merged, added := Merge(existing, scraped)

	if added != 1 {
		t.Errorf("added = %d, expected 1", added)
	}
	if len(merged) != 3 {
		t.Fatalf("merged length = %d, expected 3", len(merged))
	}

	// Existing entries win over scraped duplicates.
	for _, r := range merged {
		if r.Summary == "Fete" && r.Location != "Original Venue" {
			t.Errorf("existing entry should win the merge, got location %q", r.Location)
		}
	}

	// Sorted by start date then summary.
	wantOrder := []string{"Concert", "Fete", "Market"}
	for i, want := range wantOrder {
		if merged[i].Summary != want {
			t.Errorf("merged[%d].Summary = %q, expected %q", i, merged[i].Summary, want)
		}
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	scraped := []Record{
		{Summary: "B Event", Start: "2025-07-04"},
		{Summary: "a event", Start: "2025-07-04"},
	}

	merged, added := Merge(nil, scraped)
	if added != 2 || len(merged) != 2 {
		t.Fatalf("added = %d, len = %d, expected 2 and 2", added, len(merged))
	}
	// Case-insensitive summary tie-break.
	if merged[0].Summary != "a event" {
		t.Errorf("expected case-insensitive ordering, got %q first", merged[0].Summary)
	}
}
