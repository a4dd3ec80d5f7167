// Package store reads and writes the on-disk events file.
//
// The events file is a YAML document with a single top-level "events"
// list. Loading is deliberately forgiving: a missing or unreadable or
// malformed file yields an empty batch and a warning, never an error,
// because the feed must still be published. Entries come out untyped;
// the pipeline's normalizer is the single point that turns them into
// validated events.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shropcal/whatson/internal/logger"
	"gopkg.in/yaml.v3"
)

// Entry is one raw record from the events file, keys and values as the
// source gave them.
type Entry map[string]any

type eventsFile struct {
	Events []Entry `yaml:"events"`
}

// Load reads the events file at path and returns its raw entries.
// A missing file, an unparseable file, or an "events" value that is not
// a list all log a warning and return an empty batch.
func Load(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("events file not found, continuing with empty batch", logger.Fields{
				"path": path,
			})
			return nil
		}
		logger.Warn("events file unreadable, continuing with empty batch", logger.Fields{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}

	var f eventsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		logger.Warn("events file malformed, continuing with empty batch", logger.Fields{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}

	return f.Events
}

// Text coerces a raw entry value to a string. Missing values and nils
// become "", scalars print with their natural formatting.
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// Record is a fully-stringed entry in the shape the scraper writes.
// Empty optional fields are omitted from the YAML output.
type Record struct {
	Summary     string `yaml:"summary"`
	Start       string `yaml:"start"`
	End         string `yaml:"end,omitempty"`
	Location    string `yaml:"location,omitempty"`
	URL         string `yaml:"url,omitempty"`
	Categories  string `yaml:"categories,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// key is the (summary, start) dedup identity of a record.
func (r Record) key() [2]string {
	return [2]string{strings.TrimSpace(r.Summary), strings.TrimSpace(r.Start)}
}

// Save writes records to the events file at path, creating parent
// directories as needed.
func Save(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	data, err := yaml.Marshal(recordsFile{Events: records})
	if err != nil {
		return fmt.Errorf("encoding events file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing events file: %w", err)
	}

	return nil
}

type recordsFile struct {
	Events []Record `yaml:"events"`
}

// entryToRecord converts a loaded raw entry back to a Record,
// best-effort, for merging.
func entryToRecord(e Entry) Record {
	return Record{
		Summary:     Text(e["summary"]),
		Start:       Text(e["start"]),
		End:         Text(e["end"]),
		Location:    Text(e["location"]),
		URL:         Text(e["url"]),
		Categories:  Text(e["categories"]),
		Description: Text(e["description"]),
	}
}

// Merge combines existing raw entries with newly scraped records.
// Existing entries win over scraped ones sharing the same (summary,
// start) key; scraped records with a blank summary or start are
// skipped. The merged list comes back sorted by start date then
// case-insensitive summary, and the count of newly added records is
// returned alongside.
func Merge(existing []Entry, scraped []Record) ([]Record, int) {
	merged := make([]Record, 0, len(existing)+len(scraped))
	seen := make(map[[2]string]bool, len(existing))

	for _, e := range existing {
		r := entryToRecord(e)
		merged = append(merged, r)
		seen[r.key()] = true
	}

	added := 0
	for _, r := range scraped {
		k := r.key()
		if k[0] == "" || k[1] == "" {
			continue
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, r)
		added++
	}

	SortRecords(merged)
	return merged, added
}

// SortRecords orders records by start date then case-insensitive
// summary, the same ordering the published feed uses.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Start != records[j].Start {
			return records[i].Start < records[j].Start
		}
		return strings.ToLower(records[i].Summary) < strings.ToLower(records[j].Summary)
	})
}
