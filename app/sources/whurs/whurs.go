// Package whurs serves news feeds for the School of Remote Sensing and
// Information Engineering, Wuhan University (rsgis.whu.edu.cn).
package whurs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/HPDell/RSSHub/app/cache"
	"github.com/HPDell/RSSHub/app/category"
	"github.com/HPDell/RSSHub/app/cfg"
	"github.com/HPDell/RSSHub/app/enrich"
	"github.com/HPDell/RSSHub/app/feed"
	"github.com/HPDell/RSSHub/app/fetch"
	"github.com/HPDell/RSSHub/app/scrape"
)

const (
	site     = "http://rsgis.whu.edu.cn"
	siteName = "武汉大学遥感信息工程学院"

	// Site dates carry no zone information; the school publishes in CST.
	tzOffsetHours = 8
)

var categories = mustTree()

func mustTree() *category.Tree {
	tree, err := category.NewTree(site, ".htm", site+"/index.htm",
		&category.Node{ID: "index", Name: "首页", Path: ""},
		&category.Node{ID: "xyxw", Name: "学院新闻", Path: "xyxw1", Sub: []*category.Node{
			{ID: "xyyw", Name: "学院要闻", Path: "xyyw2"},
			{ID: "hzjl", Name: "合作交流", Path: "hzjl"},
			{ID: "mtjj", Name: "媒体聚焦", Path: "mtjj"},
			{ID: "xgyw", Name: "学工要闻", Path: "xgyw"},
		}},
		&category.Node{ID: "kxyj", Name: "科学研究", Path: "kxyj", Sub: []*category.Node{
			{ID: "xsbg", Name: "学术报告", Path: "xsbg"},
			{ID: "xsjl", Name: "学术交流", Path: "xsjl"},
			{ID: "kycg", Name: "学术成果", Path: "kycg"},
			{ID: "sbxx", Name: "申报信息", Path: "sbxx"},
		}},
		&category.Node{ID: "tzgg", Name: "通知公告", Path: "tzgg1", Sub: []*category.Node{
			{ID: "xytz", Name: "学院通知", Path: "xytz"},
			{ID: "jxdt", Name: "教学动态", Path: "jxdt"},
			{ID: "xsdt", Name: "学术动态", Path: "xsdt"},
			{ID: "rcyj", Name: "人才引进", Path: "rcyj"},
		}},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid whu/rsgis category tree: %v", err))
	}
	return tree
}

// Tree exposes the static category tree for resolution checks.
func Tree() *category.Tree {
	return categories
}

// indexRules are the landing page's sections in the page's own display
// order. The order is fixed by contract: the assembled feed concatenates
// sections exactly this way.
var indexRules = []scrape.SectionRule{
	{Name: "学院新闻", Selector: "div.main1 > div.newspaper:nth-child(1) > div.newspaper_list > ul > li", DateSelector: "div.date1"},
	{Name: "通知公告", Selector: "div.main1 > div.newspaper:nth-child(2) > div.newspaper_list > ul > li", DateSelector: "div.date1"},
	{Name: "学术动态", Selector: "div.main3 div.inner > div.newspaper:nth-child(1) > ul.newspaper_list2 > li:nth-child(1) > ul > li", DateSelector: "div.date1"},
	{Name: "学术进展", Selector: "div.main3 div.inner > div.newspaper:nth-child(1) > ul.newspaper_list2 > li:nth-child(2) > ul > li", DateSelector: "div.date1"},
	{Name: "教学动态", Selector: "div.main3 div.inner > div.newspaper:nth-child(2) > div.newspaper_list2 > ul > li", DateSelector: "div.date1"},
	{Name: "学工动态", Selector: "div.main3 div.inner > div.newspaper:nth-child(3) > div.newspaper_list2 > ul > li", DateSelector: "div.date1"},
}

// listRule matches the single post list of a category page.
var listRule = scrape.SectionRule{
	Name:         "list",
	Selector:     "div.neiinner > div.nav_right > div.right_inner > div.list > ul > li",
	DateSelector: "div.date1",
}

type Source struct {
	client        *fetch.Client
	cache         *cache.Cache
	extractor     *enrich.ContentExtractor
	sectionPolicy string
	tree          *category.Tree
	site          string
	siteName      string
}

func New(client *fetch.Client, detailCache *cache.Cache, sectionPolicy string) *Source {
	return &Source{
		client:        client,
		cache:         detailCache,
		extractor:     enrich.NewContentExtractor(),
		sectionPolicy: sectionPolicy,
		tree:          categories,
		site:          site,
		siteName:      siteName,
	}
}

// Feed resolves a (type, sub) pair, collects candidates from every resolved
// list page, enriches them and assembles the result. Candidate order is the
// target declaration order, then the section order within each page.
func (s *Source) Feed(ctx context.Context, typ, sub string) (*feed.Feed, error) {
	targets, node, err := s.tree.Resolve(typ, sub)
	if err != nil {
		return nil, err
	}

	candidates, err := s.collect(ctx, typ, targets)
	if err != nil {
		return nil, err
	}

	enricher := &enrich.Enricher{
		Source: "whu/rsgis",
		ParseDate: func(raw string) (time.Time, error) {
			return scrape.ParseDate(raw, tzOffsetHours)
		},
		Stages: func(c feed.Candidate) []enrich.Stage {
			return []enrich.Stage{s.detailStage(c)}
		},
		ReadOriginalLabel: "阅读原文",
	}
	items := enricher.Run(ctx, candidates)

	meta := feed.Metadata{
		Title:       node.Name + " - " + s.siteName,
		Link:        s.site,
		Description: node.Name + " - " + s.siteName,
	}
	return feed.Assemble(meta, items), nil
}

// collect fetches every resolved list page concurrently and flattens their
// sections back in target order. Under the tolerant policy a failed page
// only fails the request when no page succeeded; under strict any failure
// is fatal.
func (s *Source) collect(ctx context.Context, typ string, targets []category.Target) ([]feed.Candidate, error) {
	perTarget := make([][]feed.Candidate, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target category.Target) {
			defer wg.Done()
			perTarget[i], errs[i] = s.listPage(ctx, typ, target)
		}(i, target)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if s.sectionPolicy == cfg.SectionPolicyStrict {
			return nil, fmt.Errorf("failed to fetch section %s: %w", targets[i].URL, err)
		}
		slog.Warn("Section fetch failed, skipping", "source", "whu/rsgis", "url", targets[i].URL, "error", err)
	}
	if failed == len(targets) {
		return nil, fmt.Errorf("all %d sections failed: %w", failed, errors.Join(errs...))
	}

	var flat []feed.Candidate
	for _, cands := range perTarget {
		flat = append(flat, cands...)
	}
	return flat, nil
}

func (s *Source) listPage(ctx context.Context, typ string, target category.Target) ([]feed.Candidate, error) {
	resp, err := s.client.Get(ctx, target.URL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse list page: %w", err)
	}

	rules := []scrape.SectionRule{listRule}
	if typ == "index" {
		rules = indexRules
	}

	var flat []feed.Candidate
	for _, section := range scrape.Extract(doc, target.Base, rules) {
		flat = append(flat, section...)
	}
	return flat, nil
}

type detail struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// detailStage fetches and parses the post's detail page through the
// get-or-compute cache, so repeated requests within the TTL reuse one
// underlying fetch.
func (s *Source) detailStage(c feed.Candidate) enrich.Stage {
	return func(ctx context.Context, item *feed.Item) error {
		d, err := cache.TryGetJSON(ctx, s.cache, "whu:rsgis:"+c.Link, func(ctx context.Context) (detail, error) {
			return s.fetchDetail(ctx, c.Link)
		})
		if err != nil {
			return err
		}

		if d.Title != "" {
			item.Title = d.Title
		}
		item.Description = d.Description
		return nil
	}
}

func (s *Source) fetchDetail(ctx context.Context, link string) (detail, error) {
	resp, err := s.client.Get(ctx, link, nil)
	if err != nil {
		return detail{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return detail{}, fmt.Errorf("failed to parse detail page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("div.content div.content_title h1").First().Text())
	content := doc.Find("div.content div.v_news_content").First()

	description, err := content.Html()
	if err != nil || description == "" {
		// Posts occasionally ship a redesigned template; recover the body
		// with readability before giving up on the item.
		description, err = s.extractor.Run(resp.Body, link)
		if err != nil {
			return detail{}, fmt.Errorf("detail content not found at %s: %w", link, err)
		}
	}

	return detail{Title: title, Description: description}, nil
}
