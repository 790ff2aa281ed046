package feed

import (
	"time"
)

// Candidate is a minimally-parsed reference to one content item as pulled
// from a list page: title, link and the raw date text, before any detail
// enrichment. External candidates point off-site and never get a detail
// fetch.
type Candidate struct {
	Section  string
	Title    string
	Link     string
	RawDate  string
	PageURL  string
	External bool
}

// Item is an enriched feed entry. Description is always populated by the
// enricher: either the enrichment result or a fallback.
type Item struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
	Author      string
	Comments    int

	// Media fields for podcast-style consumers
	ImageURL      string
	Duration      int
	EnclosureURL  string
	EnclosureType string
}

// Metadata is the feed-level header resolved from the request's category or
// subject.
type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Author      string
}

type Feed struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Author      string
	Items       []Item
}
