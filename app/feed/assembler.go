package feed

// Assemble merges enriched sections into one feed document. Sections are
// concatenated in argument order, which mirrors the extractor's declared
// section order; items are never deduplicated or re-sorted here because the
// source pages mix independently-dated sections.
func Assemble(meta Metadata, sections ...[]Item) *Feed {
	total := 0
	for _, section := range sections {
		total += len(section)
	}

	items := make([]Item, 0, total)
	for _, section := range sections {
		items = append(items, section...)
	}

	return &Feed{
		Title:       meta.Title,
		Link:        meta.Link,
		Description: meta.Description,
		ImageURL:    meta.ImageURL,
		Author:      meta.Author,
		Items:       items,
	}
}
