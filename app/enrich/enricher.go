package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HPDell/RSSHub/app/feed"
)

// Stage is one enrichment step mutating an item in place. Stages run in
// order; the first failing stage stops the remaining ones and the item
// keeps the best partial result accumulated so far.
type Stage func(ctx context.Context, item *feed.Item) error

// StageBuilder produces the enrichment stages for one candidate.
type StageBuilder func(c feed.Candidate) []Stage

// Enricher turns raw candidates into enriched feed items. Candidates are
// processed concurrently and re-joined by index, so output order always
// matches input order regardless of which fetch completed first. Detail
// fetch deduplication is the cache collaborator's responsibility inside the
// stages; the enricher itself holds no shared state.
type Enricher struct {
	// Source names the site module for log attribution.
	Source string
	// ParseDate normalizes the candidate's raw date text. Optional; a
	// parse failure only costs the item its timestamp.
	ParseDate func(raw string) (time.Time, error)
	// Stages builds the per-candidate enrichment pipeline. External
	// candidates never run stages.
	Stages StageBuilder
	// ReadOriginalLabel is the anchor text for external candidates.
	ReadOriginalLabel string
}

// Run enriches every candidate of a batch. Per-item failures degrade to the
// fallback form; they never abort the batch, so the result always has one
// item per candidate.
func (e *Enricher) Run(ctx context.Context, cands []feed.Candidate) []feed.Item {
	items := make([]feed.Item, len(cands))

	var wg sync.WaitGroup
	for i, c := range cands {
		wg.Add(1)
		go func(i int, c feed.Candidate) {
			defer wg.Done()
			items[i] = e.enrichOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	return items
}

func (e *Enricher) enrichOne(ctx context.Context, c feed.Candidate) feed.Item {
	item := feed.Item{
		Title: c.Title,
		Link:  c.Link,
	}

	if e.ParseDate != nil && c.RawDate != "" {
		ts, err := e.ParseDate(c.RawDate)
		if err != nil {
			slog.Debug("Unparseable item date", "source", e.Source, "link", c.Link, "raw", c.RawDate)
		} else {
			item.PublishedAt = ts
		}
	}

	if c.External {
		// Off-site content cannot be trusted to reuse the site's markup
		// conventions, so external links are never fetched.
		label := e.ReadOriginalLabel
		if label == "" {
			label = "Read original"
		}
		item.Description = fmt.Sprintf(`<a href="%s">%s</a>`, c.Link, label)
		return item
	}

	if e.Stages != nil {
		for _, stage := range e.Stages(c) {
			if err := stage(ctx, &item); err != nil {
				slog.Warn("Enrichment degraded", "source", e.Source, "link", c.Link, "error", err)
				break
			}
		}
	}

	if item.Description == "" {
		item.Description = item.Title
	}
	return item
}
