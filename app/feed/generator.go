package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/HPDell/RSSHub/app/cfg"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run serializes an assembled feed to RSS 2.0 with the itunes extension for
// podcast consumers. selfPath is the request path used for the atom self
// link.
func (g *Generator) Run(f *Feed, selfPath string) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" xmlns:slash="http://purl.org/rss/1.0/modules/slash/">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", f.Title, 4)
	g.writeElement(&buf, "link", f.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(f.Description, f.Title), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = cfg.Get().BaseUrl + selfPath
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s%s", cfg.Get().Port, selfPath)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	for _, item := range f.Items {
		if !item.PublishedAt.IsZero() {
			lastBuildDate = item.PublishedAt
			break
		}
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSSHub/%s", cfg.Get().Version), 4)

	if f.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", f.ImageURL, 6)
		g.writeElement(&buf, "title", f.Title, 6)
		g.writeElement(&buf, "link", f.Link, 6)
		buf.WriteString("    </image>\n")
		buf.WriteString(fmt.Sprintf("    <itunes:image href=\"%s\" />\n", html.EscapeString(f.ImageURL)))
	}

	if f.Author != "" {
		g.writeElement(&buf, "itunes:author", f.Author, 4)
	}

	for _, item := range f.Items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	if item.Link != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.Link)))
		xml.EscapeText(buf, []byte(item.Link))
		buf.WriteString("</guid>\n")
	}

	if item.Title != "" {
		g.writeElement(buf, "title", item.Title, 6)
	}

	if item.Link != "" {
		g.writeElement(buf, "link", item.Link, 6)
	}

	description := cmp.Or(item.Description, item.Title)
	g.writeElement(buf, "description", description, 6)

	// Enriched descriptions carry HTML fragments; readers that strip
	// markup from description still get the full body here.
	if strings.Contains(description, "<") {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(description)
		buf.WriteString("]]></content:encoded>\n")
	}

	if !item.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	}

	if item.Author != "" {
		g.writeElement(buf, "author", item.Author, 6)
		g.writeElement(buf, "itunes:author", item.Author, 6)
	}

	if item.Comments > 0 {
		g.writeElement(buf, "slash:comments", strconv.Itoa(item.Comments), 6)
	}

	// RSS 2.0 spec requires url, length and type on enclosures; length is
	// unknown for proxied media, which readers accept as 0.
	if item.EnclosureURL != "" && item.EnclosureType != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(item.EnclosureURL),
			html.EscapeString(item.EnclosureType)))
	}

	if item.Duration > 0 {
		g.writeElement(buf, "itunes:duration", strconv.Itoa(item.Duration), 6)
	}

	if item.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <itunes:image href=\"%s\" />\n", html.EscapeString(item.ImageURL)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
