package pipeline

import "github.com/shropcal/whatson/internal/event"

// Window is the inclusion date interval for the feed, closed on both
// ends. Open mode passes every event regardless of date.
type Window struct {
	Open bool
	From event.Date
	To   event.Date
}

// Includes reports whether the event's [Start, End] span overlaps the
// window. An event whose span merely touches a boundary (End equal to
// the window start, or Start equal to the window end) is in.
func (w Window) Includes(ev *event.Event) bool {
	if w.Open {
		return true
	}
	return !(ev.End.Before(w.From) || ev.Start.After(w.To))
}
