// Package ics renders the What's On feed as an iCalendar document.
//
// The output is consumed by third-party calendar applications with
// known interoperability quirks, so the rendering is deliberately
// conservative: fixed property order, CRLF line endings, RFC 5545 text
// escaping on every free-text value, all-day DATE values with an
// exclusive DTEND, and no property emitted with an empty value (some
// importers treat an empty LOCATION: or CATEGORIES: line as a parse
// error or show a blank entry).
package ics

import (
	"strings"
	"time"

	"github.com/shropcal/whatson/internal/event"
)

const (
	// ProdID identifies the generator in the calendar header.
	ProdID = "-//WhatsOn Builder//EN"

	// DefaultCalendarName is the display name of the published feed.
	DefaultCalendarName = "What’s On — Shropshire • Cheshire • North Wales"

	timezone        = "Europe/London"
	refreshInterval = "P1D"
	publishedTTL    = "PT12H"

	stampLayout = "20060102T150405Z"
)

// Escape applies RFC 5545 TEXT escaping: backslash, comma and semicolon
// are backslash-escaped and a newline becomes the two characters "\n".
// Unescaped separators corrupt the feed for importing applications.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// Calendar renders the complete feed document for the given events,
// already filtered, deduplicated and sorted by the caller. The stamp is
// the generation timestamp written to every DTSTAMP; it is a parameter
// rather than a call to time.Now so that two runs over the same input
// can produce byte-identical output.
func Calendar(events []*event.Event, name string, stamp time.Time) []byte {
	var b strings.Builder

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+ProdID)
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	writeLine(&b, "X-WR-TIMEZONE:"+timezone)
	writeLine(&b, "X-WR-CALNAME:"+Escape(name))
	writeLine(&b, "REFRESH-INTERVAL;VALUE=DURATION:"+refreshInterval)
	writeLine(&b, "X-PUBLISHED-TTL:"+publishedTTL)

	stampText := stamp.UTC().Format(stampLayout)
	for _, ev := range events {
		writeEvent(&b, ev, stampText)
	}

	writeLine(&b, "END:VCALENDAR")
	return []byte(b.String())
}

// writeEvent renders one VEVENT. Property order is fixed; optional
// properties are skipped entirely when their value is empty.
func writeEvent(b *strings.Builder, ev *event.Event, stamp string) {
	writeLine(b, "BEGIN:VEVENT")
	writeLine(b, "UID:"+ev.UID())
	writeLine(b, "DTSTAMP:"+stamp)
	writeLine(b, "DTSTART;VALUE=DATE:"+ev.Start.Compact())
	// DTEND is exclusive in the wire format: the day after the last day
	// of the event, even for single-day events.
	writeLine(b, "DTEND;VALUE=DATE:"+ev.End.AddDays(1).Compact())
	writeLine(b, "SUMMARY:"+Escape(ev.Summary))

	if ev.Location != "" {
		writeLine(b, "LOCATION:"+Escape(ev.Location))
	}
	if desc := description(ev); desc != "" {
		writeLine(b, "DESCRIPTION:"+desc)
	}
	if ev.URL != "" {
		writeLine(b, "URL:"+Escape(ev.URL))
	}
	if ev.Categories != "" {
		writeLine(b, "CATEGORIES:"+Escape(ev.Categories))
	}

	writeLine(b, "STATUS:CONFIRMED")
	writeLine(b, "TRANSP:TRANSPARENT")
	writeLine(b, "END:VEVENT")
}

// description combines the event description and a "More info" pointer
// to the event URL into a single escaped text block, joined by an
// escaped line break. Either part may be absent.
func description(ev *event.Event) string {
	parts := make([]string, 0, 2)
	if ev.Description != "" {
		parts = append(parts, Escape(ev.Description))
	}
	if ev.URL != "" {
		parts = append(parts, "More info: "+Escape(ev.URL))
	}
	return strings.Join(parts, "\\n")
}

func writeLine(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\r\n")
}
