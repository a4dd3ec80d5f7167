// Package event provides the core types for What's On calendar entries.
//
// The event package holds the validated Event record, the strict
// calendar Date type used for all-day spans, and the identity helpers
// (dedup Key, summary slug, stable iCalendar UID) that keep the
// published feed deterministic across runs.
package event
