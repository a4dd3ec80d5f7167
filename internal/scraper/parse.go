package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shropcal/whatson/internal/event"
	"github.com/shropcal/whatson/internal/store"
)

// Event pages spell dates like "30th May 2025" or ranges like
// "26th July 2025 – 10th August 2025".
var longDateRE = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})`)

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Venue fallbacks look for text mentioning a local town or a Shropshire
// postcode prefix.
var townMarkers = []string{"Shrewsbury", "Oswestry", "Ludlow", "Telford", "SY"}

const (
	maxLocationLen    = 120
	maxDescriptionLen = 600
	minDescriptionLen = 40
)

// parseLongDate extracts the first long-form date from text.
func parseLongDate(text string) (event.Date, error) {
	m := longDateRE.FindStringSubmatch(text)
	if m == nil {
		return event.Date{}, fmt.Errorf("no date in %q", clip(text, 120))
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	month := monthNumbers[strings.ToLower(m[2])]
	return event.NewDate(year, month, day), nil
}

// parseEventPage fetches and parses one /mc-events/ page. A page that
// fails to fetch, has no recognizable date, or falls entirely outside
// [from, to] yields nil.
func (s *Scraper) parseEventPage(pageURL string, from, to event.Date) *store.Record {
	resp, err := s.get(pageURL)
	if err != nil || resp.StatusCode() != 200 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil
	}

	title := strings.TrimSpace(doc.Find("h1, h2").First().Text())
	if title == "" {
		title = "Untitled"
	}

	// Flatten the page text for date extraction; event pages bury the
	// dates in assorted markup.
	flat := strings.Join(strings.Fields(doc.Text()), " ")

	loc := longDateRE.FindStringIndex(flat)
	if loc == nil {
		return nil
	}
	start, err := parseLongDate(flat[loc[0]:loc[1]])
	if err != nil {
		return nil
	}

	// A second date after the first marks a range.
	end := start
	if tail, err2 := parseLongDate(flat[loc[1]:]); err2 == nil {
		end = tail
		if end.Before(start) {
			end = start
		}
	}

	if start.After(to) || end.Before(from) {
		return nil
	}

	return &store.Record{
		Summary:     title,
		Start:       start.ISO(),
		End:         end.ISO(),
		Location:    extractLocation(doc),
		URL:         pageURL,
		Categories:  Categories,
		Description: extractDescription(doc),
	}
}

// extractLocation pulls a venue out of the page: preferably the "View
// Location" / "Map ..." block the plugin renders, otherwise the first
// early paragraph that mentions a local town or postcode.
func extractLocation(doc *goquery.Document) string {
	loc := ""
	doc.Find("a, strong, div, p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		t := strings.Join(strings.Fields(sel.Text()), " ")
		if strings.Contains(t, "View Location") || strings.HasPrefix(t, "Map ") {
			loc = strings.TrimSpace(strings.ReplaceAll(t, "View Location", ""))
			return false
		}
		return true
	})
	if loc != "" {
		return clip(loc, maxLocationLen)
	}

	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		t := strings.Join(strings.Fields(sel.Text()), " ")
		for _, marker := range townMarkers {
			if strings.Contains(t, marker) {
				loc = clip(t, maxLocationLen)
				return false
			}
		}
		return true
	})
	return loc
}

// extractDescription takes the first paragraph long enough to be a
// real blurb rather than navigation chrome.
func extractDescription(doc *goquery.Document) string {
	desc := ""
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		t := strings.Join(strings.Fields(sel.Text()), " ")
		if len(t) > minDescriptionLen {
			desc = clip(t, maxDescriptionLen)
			return false
		}
		return true
	})
	return desc
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
