package event

import "fmt"

// UIDDomain is the namespace suffix appended to every generated UID.
const UIDDomain = "whatson.example"

// Event represents one validated calendar entry. Start and End span the
// whole days of the event inclusively; End is never before Start.
// Optional text fields hold "" when absent.
type Event struct {
	Summary     string
	Start       Date
	End         Date
	Location    string
	URL         string
	Categories  string
	Description string
}

// Key identifies a logical event for deduplication: the summary exactly
// as given plus the canonical start date. Two records sharing a Key are
// the same event.
type Key struct {
	Summary string
	Start   string
}

// Key returns the event's identity key.
func (e *Event) Key() Key {
	return Key{Summary: e.Summary, Start: e.Start.ISO()}
}

// UID returns the stable iCalendar UID for the event. Consuming
// applications match this across feed refreshes, so it must come out
// identical on every run over the same input.
func (e *Event) UID() string {
	return fmt.Sprintf("%s-%d@%s", Slugify(e.Summary), e.Start.Year(), UIDDomain)
}
