package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/HPDell/RSSHub/app/feed"
)

// SectionRule names one logical section of a list page and the selectors
// that locate its entries and their date text.
type SectionRule struct {
	Name         string
	Selector     string
	DateSelector string
}

// absoluteLinkRe matches hrefs that carry their own host. List pages link
// internal posts relatively; an absolute href points off-site unless its
// host matches the source site.
var absoluteLinkRe = regexp.MustCompile(`^(https?://)?([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,6}/`)

// Extract applies each rule against the page and returns one candidate
// slice per rule, in rule order. That fixed order is part of the contract:
// source pages mix independently-dated sections, so downstream assembly
// relies on it instead of sorting. A missing section or a malformed entry
// yields an empty slot, never an error.
func Extract(doc *goquery.Document, base string, rules []SectionRule) [][]feed.Candidate {
	sections := make([][]feed.Candidate, len(rules))
	for i, rule := range rules {
		sections[i] = extractSection(doc, base, rule)
	}
	return sections
}

func extractSection(doc *goquery.Document, base string, rule SectionRule) []feed.Candidate {
	var candidates []feed.Candidate
	doc.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
		if c, ok := parseEntry(s, rule, base); ok {
			candidates = append(candidates, c)
		}
	})
	return candidates
}

func parseEntry(s *goquery.Selection, rule SectionRule, base string) (feed.Candidate, bool) {
	anchor := s.Find("a").First()
	href, ok := anchor.Attr("href")
	if !ok || href == "" {
		return feed.Candidate{}, false
	}

	external := IsExternal(href, base)
	link := href
	if !external {
		link = Join(base, href)
	}

	return feed.Candidate{
		Section:  rule.Name,
		Title:    strings.TrimSpace(anchor.Text()),
		Link:     link,
		RawDate:  strings.TrimSpace(s.Find(rule.DateSelector).First().Text()),
		PageURL:  base,
		External: external,
	}, true
}

// IsExternal reports whether href leaves the site that base belongs to:
// it must be an absolute URL and its host must differ from base's host.
func IsExternal(href, base string) bool {
	if !absoluteLinkRe.MatchString(href) {
		return false
	}
	hrefURL, err := url.Parse(href)
	if err != nil {
		return true
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return true
	}
	return !strings.EqualFold(hrefURL.Hostname(), baseURL.Hostname())
}

// Join resolves a relative href against the list page's base URL.
func Join(base, href string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

// ParseDate parses the raw date text of a list entry, interpreting times
// without zone information at the given UTC offset, and normalizes to UTC.
func ParseDate(raw string, tzOffsetHours int) (time.Time, error) {
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", tzOffsetHours), tzOffsetHours*3600)
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", raw, err)
	}
	return t.UTC(), nil
}
