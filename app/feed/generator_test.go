package feed

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/HPDell/RSSHub/app/cfg"
)

func setupTestConfig() {
	// Clear os.Args to prevent config parsing from failing
	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}

	cfg.Load()
}

func TestGenerateRSS(t *testing.T) {
	setupTestConfig()
	generator := NewGenerator()

	publishedTime := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	f := &Feed{
		Title:       "学院新闻 - 武汉大学遥感信息工程学院",
		Link:        "http://rsgis.whu.edu.cn",
		Description: "学院新闻 - 武汉大学遥感信息工程学院",
		Items: []Item{
			{
				Title:       "Test Item 1",
				Link:        "http://rsgis.whu.edu.cn/info/1001.htm",
				Description: "<p>Full content</p>",
				PublishedAt: publishedTime,
			},
			{
				Title: "Test Item 2",
				Link:  "https://mp.weixin.qq.com/s/abc",
			},
		},
	}

	rss, err := generator.Run(f, "/whu/rsgis/xyxw/all")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}
	if !strings.Contains(rss, `<rss version="2.0"`) {
		t.Error("RSS should contain RSS 2.0 declaration")
	}
	if !strings.Contains(rss, `/whu/rsgis/xyxw/all" rel="self"`) {
		t.Error("RSS should contain atom self link with request path")
	}

	// Round-trip through a real feed parser
	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS failed to parse: %v", err)
	}

	if parsed.Title != f.Title {
		t.Errorf("Expected title %q, got %q", f.Title, parsed.Title)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(parsed.Items))
	}
	if parsed.Items[0].Link != f.Items[0].Link {
		t.Errorf("Unexpected item link: %s", parsed.Items[0].Link)
	}
	if parsed.Items[0].PublishedParsed == nil || !parsed.Items[0].PublishedParsed.Equal(publishedTime) {
		t.Errorf("Unexpected item pubDate: %v", parsed.Items[0].PublishedParsed)
	}
	// Item without a description falls back to its title
	if parsed.Items[1].Description != "Test Item 2" {
		t.Errorf("Expected title fallback description, got %q", parsed.Items[1].Description)
	}
}

func TestGenerateRSSPodcastFields(t *testing.T) {
	setupTestConfig()
	generator := NewGenerator()

	f := &Feed{
		Title:       "Uploader - Bilibili",
		Link:        "https://space.bilibili.com/2267573",
		Description: "Uploader 的 Bilibili 投稿",
		ImageURL:    "https://i0.hdslb.com/face.jpg",
		Author:      "Uploader",
		Items: []Item{
			{
				Title:         "Episode 1",
				Link:          "https://www.bilibili.com/video/BV1xx411c7md",
				Description:   "desc",
				PublishedAt:   time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC),
				Author:        "Uploader",
				Duration:      321,
				ImageURL:      "https://i0.hdslb.com/cover.jpg",
				EnclosureURL:  "/proxy/bilibili?url=https%3A%2F%2Fupos.example.com%2Faudio.m4s",
				EnclosureType: "audio/mp4",
			},
		},
	}

	rss, err := generator.Run(f, "/bilibili/user/video-podcast/2267573")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`) {
		t.Error("RSS should declare the itunes namespace")
	}
	if !strings.Contains(rss, `<itunes:author>Uploader</itunes:author>`) {
		t.Error("RSS should carry the channel itunes author")
	}
	if !strings.Contains(rss, `<itunes:duration>321</itunes:duration>`) {
		t.Error("RSS should carry the item duration")
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS failed to parse: %v", err)
	}

	item := parsed.Items[0]
	if len(item.Enclosures) != 1 {
		t.Fatalf("Expected 1 enclosure, got %d", len(item.Enclosures))
	}
	if item.Enclosures[0].Type != "audio/mp4" {
		t.Errorf("Unexpected enclosure type: %s", item.Enclosures[0].Type)
	}
	if !strings.Contains(item.Enclosures[0].URL, "/proxy/bilibili?url=") {
		t.Errorf("Enclosure should point at the proxy, got: %s", item.Enclosures[0].URL)
	}
}

func TestGenerateRSSContentEncoded(t *testing.T) {
	setupTestConfig()
	generator := NewGenerator()

	f := &Feed{
		Title: "学院新闻 - 武汉大学遥感信息工程学院",
		Link:  "http://rsgis.whu.edu.cn",
		Items: []Item{
			{
				Title:       "Enriched item",
				Link:        "http://rsgis.whu.edu.cn/info/1001.htm",
				Description: `<p>Full <b>HTML</b> body</p>`,
			},
			{
				Title:       "Plain item",
				Link:        "http://rsgis.whu.edu.cn/info/1002.htm",
				Description: "Plain text only",
			},
		},
	}

	rss, err := generator.Run(f, "/whu/rsgis/xyxw/all")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `xmlns:content="http://purl.org/rss/1.0/modules/content/"`) {
		t.Error("RSS should declare the content namespace")
	}
	if !strings.Contains(rss, "<content:encoded><![CDATA[<p>Full <b>HTML</b> body</p>]]></content:encoded>") {
		t.Error("HTML description should also be emitted as content:encoded")
	}
	if strings.Count(rss, "<content:encoded>") != 1 {
		t.Error("Plain text description should not get a content:encoded element")
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS failed to parse: %v", err)
	}
	if parsed.Items[0].Content != "<p>Full <b>HTML</b> body</p>" {
		t.Errorf("Unexpected parsed content: %q", parsed.Items[0].Content)
	}
}
