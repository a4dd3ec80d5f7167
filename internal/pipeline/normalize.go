package pipeline

import (
	"strings"

	"github.com/shropcal/whatson/internal/event"
	"github.com/shropcal/whatson/internal/store"
)

// Rejection reasons reported in run counts and warnings.
const (
	ReasonMissingField = "missing field"
	ReasonBadDate      = "bad date"
)

// Rejection names why a single raw entry was dropped. A rejection never
// aborts the batch; the entry is skipped and counted.
type Rejection struct {
	Reason string
	Field  string
	Value  string
}

// categories values sometimes arrive with stray separators from sloppy
// hand edits ("Music, " or ";Family").
const categoryCutset = " \t\r\n,;"

// Normalize converts one raw entry into a validated Event, or explains
// why it cannot. Required fields are summary and start; start and end
// must be strict YYYY-MM-DD dates. An end before start is a correctable
// anomaly, clamped up to start rather than rejected. Optional fields
// are trimmed, and empty-after-trim means absent.
func Normalize(raw store.Entry) (*event.Event, *Rejection) {
	summary := strings.TrimSpace(store.Text(raw["summary"]))
	if summary == "" {
		return nil, &Rejection{Reason: ReasonMissingField, Field: "summary"}
	}

	startText := strings.TrimSpace(store.Text(raw["start"]))
	if startText == "" {
		return nil, &Rejection{Reason: ReasonMissingField, Field: "start"}
	}
	start, err := event.ParseDate(startText)
	if err != nil {
		return nil, &Rejection{Reason: ReasonBadDate, Field: "start", Value: startText}
	}

	end := start
	if endText := strings.TrimSpace(store.Text(raw["end"])); endText != "" {
		end, err = event.ParseDate(endText)
		if err != nil {
			return nil, &Rejection{Reason: ReasonBadDate, Field: "end", Value: endText}
		}
		if end.Before(start) {
			end = start
		}
	}

	return &event.Event{
		Summary:     summary,
		Start:       start,
		End:         end,
		Location:    strings.TrimSpace(store.Text(raw["location"])),
		URL:         strings.TrimSpace(store.Text(raw["url"])),
		Categories:  strings.Trim(strings.TrimSpace(store.Text(raw["categories"])), categoryCutset),
		Description: strings.TrimSpace(store.Text(raw["description"])),
	}, nil
}
