// Package scraper harvests event candidates from the Shropshire Events
// Guide website, a WordPress site running the My Calendar plugin.
//
// Two strategies run in order: the plugin's JSON export API (rarely
// enabled by site admins, tried quietly), then a crawl of the monthly
// calendar pages collecting /mc-events/ links and parsing each event
// page heuristically. Extraction is best effort; everything scraped
// still goes through the pipeline's normalizer like any hand-authored
// entry, so the scraper only has to be roughly right.
package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/shropcal/whatson/internal/event"
	"github.com/shropcal/whatson/internal/logger"
	"github.com/shropcal/whatson/internal/store"
)

const (
	// DefaultBaseURL is the public site the feed is curated from.
	DefaultBaseURL = "https://shropshire-events-guide.co.uk"

	// Categories is stamped onto every scraped record.
	Categories = "Shropshire,Shropshire Events Guide"

	UserAgent = "whatson-scraper/1.0 (github.com/shropcal/whatson)"

	requestTimeout = 20 * time.Second
	politeDelay    = 700 * time.Millisecond
	maxRetries     = 3
)

// Scraper fetches and parses events from the events guide site.
type Scraper struct {
	client *resty.Client
	base   string
	delay  time.Duration
}

// New creates a Scraper for the given base URL, or the public site when
// baseURL is empty.
func New(baseURL string) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetTimeout(requestTimeout).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "text/html,application/json")
	return &Scraper{
		client: client,
		base:   strings.TrimRight(baseURL, "/"),
		delay:  politeDelay,
	}
}

// FetchRange collects events whose span overlaps [from, to]. The export
// API result and the crawl result are combined, deduplicated on
// (summary, start) and sorted. An error comes back only when the site
// is unreachable outright and nothing was collected.
func (s *Scraper) FetchRange(from, to event.Date) ([]store.Record, error) {
	records := s.fetchExportAPI(from, to)

	crawled, err := s.crawl(from, to)
	if err != nil && len(records) == 0 {
		return nil, err
	}
	records = append(records, crawled...)

	// collapse duplicates within the scrape batch, first wins
	seen := make(map[[2]string]bool, len(records))
	unique := make([]store.Record, 0, len(records))
	for _, r := range records {
		k := [2]string{r.Summary, r.Start}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, r)
	}
	store.SortRecords(unique)
	return unique, nil
}

// get fetches a URL, retrying transport errors and 5xx responses with
// exponential backoff.
func (s *Scraper) get(u string) (*resty.Response, error) {
	var resp *resty.Response
	op := func() error {
		r, err := s.client.R().Get(u)
		if err != nil {
			return err
		}
		if r.StatusCode() >= 500 {
			return fmt.Errorf("server status %d", r.StatusCode())
		}
		resp = r
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	return resp, nil
}

// fetchExportAPI tries the My Calendar JSON export endpoint. Most sites
// leave it disabled, so every failure mode just logs at debug level and
// returns nothing.
func (s *Scraper) fetchExportAPI(from, to event.Date) []store.Record {
	u := fmt.Sprintf("%s/?my-calendar-api=events&format=json&from=%s&to=%s",
		s.base, from.ISO(), to.ISO())

	resp, err := s.get(u)
	if err != nil || resp.StatusCode() != 200 {
		logger.Debug("export api unavailable", logger.Fields{"url": u})
		return nil
	}

	entries, err := decodeExportPayload(resp.Body())
	if err != nil {
		logger.Debug("export api payload unusable", logger.Fields{"error": err.Error()})
		return nil
	}

	records := make([]store.Record, 0, len(entries))
	for _, ev := range entries {
		r, ok := exportEntryToRecord(ev)
		if !ok {
			continue
		}
		records = append(records, r)
	}
	if len(records) > 0 {
		logger.Info("export api returned events", logger.Fields{"count": len(records)})
	}
	return records
}

// decodeExportPayload accepts both payload shapes the plugin is known
// to produce: a bare JSON array of events, or an object with an
// "events" member.
func decodeExportPayload(body []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding export payload: %w", err)
	}
	return wrapper.Events, nil
}

// exportEntryToRecord maps one API entry onto a Record. The plugin has
// shipped several field spellings over the years, so each value is
// taken from the first populated alias.
func exportEntryToRecord(ev map[string]any) (store.Record, bool) {
	title := strings.TrimSpace(firstText(ev, "title", "event_title"))
	if title == "" {
		title = "Untitled"
	}
	start := firstText(ev, "dtstart", "event_begin", "date")
	if start == "" {
		return store.Record{}, false
	}
	end := firstText(ev, "dtend", "event_end")
	if end == "" {
		end = start
	}

	return store.Record{
		Summary:     title,
		Start:       clipDate(start),
		End:         clipDate(end),
		Location:    strings.TrimSpace(firstText(ev, "location", "venue")),
		URL:         firstText(ev, "link", "event_link"),
		Categories:  Categories,
		Description: strings.TrimSpace(firstText(ev, "description")),
	}, true
}

func firstText(ev map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := store.Text(ev[k]); v != "" {
			return v
		}
	}
	return ""
}

// clipDate trims a datetime string down to its YYYY-MM-DD prefix.
func clipDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// crawl walks the monthly calendar pages in the requested range and
// parses every event page it discovers. Individual page failures are
// skipped; only an unreachable landing page is an error.
func (s *Scraper) crawl(from, to event.Date) ([]store.Record, error) {
	cid, err := s.discoverCalendarID()
	if err != nil {
		return nil, err
	}

	var records []store.Record
	seenLinks := make(map[string]bool)

	for year, month := from.Year(), from.Month(); !afterMonth(year, month, to); year, month = nextMonth(year, month) {
		resp, err := s.get(s.monthPageURL(cid, year, month))
		if err != nil || resp.StatusCode() != 200 {
			logger.Warn("month page unavailable, skipping", logger.Fields{
				"year":  year,
				"month": int(month),
			})
			s.sleep()
			continue
		}

		for _, link := range s.extractEventLinks(resp.String()) {
			if seenLinks[link] {
				continue
			}
			seenLinks[link] = true
			if r := s.parseEventPage(link, from, to); r != nil {
				records = append(records, *r)
			}
			s.sleep()
		}
		s.sleep()
	}

	if len(records) > 0 {
		logger.Info("crawl collected events", logger.Fields{"count": len(records)})
	}
	return records, nil
}

// discoverCalendarID finds the plugin's cid parameter from the
// "Previous" navigation link on the monthly view. Sites with a single
// calendar work without one, so anything short of an unreachable site
// falls back to an empty cid and the crawl carries on.
func (s *Scraper) discoverCalendarID() (string, error) {
	resp, err := s.get(s.base + "/obt/")
	if err != nil {
		return "", fmt.Errorf("fetching calendar landing page: %w", err)
	}
	if resp.StatusCode() != 200 {
		logger.Warn("calendar landing page unavailable, crawling without cid", logger.Fields{
			"status": resp.StatusCode(),
		})
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		logger.Warn("calendar landing page unparseable, crawling without cid", logger.Fields{
			"error": err.Error(),
		})
		return "", nil
	}

	cid := ""
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(sel.Text()), "previous") {
			return true
		}
		href, _ := sel.Attr("href")
		if u, err := url.Parse(href); err == nil {
			cid = u.Query().Get("cid")
		}
		return false
	})
	if cid != "" {
		logger.Debug("discovered calendar id", logger.Fields{"cid": cid})
	}
	return cid, nil
}

func (s *Scraper) monthPageURL(cid string, year int, month time.Month) string {
	if cid != "" {
		return fmt.Sprintf("%s/obt/?cid=%s&month=%d&yr=%d", s.base, url.QueryEscape(cid), int(month), year)
	}
	return fmt.Sprintf("%s/obt/?month=%d&yr=%d", s.base, int(month), year)
}

// extractEventLinks returns the absolute /mc-events/ links present in a
// month page, sorted for a stable crawl order.
func (s *Scraper) extractEventLinks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	set := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "/mc-events/") {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = s.base + "/" + strings.TrimLeft(href, "/")
		}
		set[href] = true
	})

	links := make([]string, 0, len(set))
	for l := range set {
		links = append(links, l)
	}
	sort.Strings(links)
	return links
}

func (s *Scraper) sleep() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func afterMonth(year int, month time.Month, limit event.Date) bool {
	if year != limit.Year() {
		return year > limit.Year()
	}
	return month > limit.Month()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}
