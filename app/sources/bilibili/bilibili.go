// Package bilibili serves an uploader's video list as a podcast-mode feed:
// each video carries an audio enclosure resolved through the play API and
// routed via the media proxy.
package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/HPDell/RSSHub/app/cache"
	"github.com/HPDell/RSSHub/app/enrich"
	"github.com/HPDell/RSSHub/app/feed"
	"github.com/HPDell/RSSHub/app/fetch"
)

const (
	defaultAPI = "https://api.bilibili.com"
	spaceBase  = "https://space.bilibili.com"

	// Videos created before this moment predate bvids; their canonical
	// link uses the av id instead.
	bvidEpoch = 1589990400
)

// APIError is a bilibili API response whose payload carries a non-zero
// status code.
type APIError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bilibili api %s returned code %d: %s", e.Endpoint, e.Code, e.Message)
}

type Source struct {
	client *fetch.Client
	cache  *cache.Cache
	api    string
	signer *wbiSigner
}

func New(client *fetch.Client, detailCache *cache.Cache) *Source {
	return NewWithAPI(client, detailCache, defaultAPI)
}

// NewWithAPI points the source at an alternate API base, used by tests.
func NewWithAPI(client *fetch.Client, detailCache *cache.Cache, api string) *Source {
	return &Source{
		client: client,
		cache:  detailCache,
		api:    api,
		signer: &wbiSigner{client: client, cache: detailCache, api: api},
	}
}

type userCard struct {
	Name string `json:"name"`
	Face string `json:"face"`
}

type videoEntry struct {
	AID         int64  `json:"aid"`
	BVID        string `json:"bvid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pic         string `json:"pic"`
	Created     int64  `json:"created"`
	Comment     int    `json:"comment"`
}

// Podcast builds the feed for one uploader. The subject's display name and
// avatar are resolved once per request; each listed video is then enriched
// in two independently-failable stages (view info, then play URL), and a
// video whose media cannot be resolved stays in the feed as a plain entry.
func (s *Source) Podcast(ctx context.Context, uid string, embed bool) (*feed.Feed, error) {
	card, err := s.userCard(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", uid, err)
	}

	videos, err := s.videoList(ctx, uid)
	if err != nil {
		return nil, err
	}

	candidates := make([]feed.Candidate, len(videos))
	byLink := make(map[string]videoEntry, len(videos))
	for i, v := range videos {
		link := videoLink(v)
		candidates[i] = feed.Candidate{
			Title:   v.Title,
			Link:    link,
			RawDate: strconv.FormatInt(v.Created, 10),
			PageURL: spaceBase + "/" + uid,
		}
		byLink[link] = v
	}

	enricher := &enrich.Enricher{
		Source:    "bilibili",
		ParseDate: parseUnix,
		Stages: func(c feed.Candidate) []enrich.Stage {
			v := byLink[c.Link]
			var view viewInfo
			return []enrich.Stage{
				describeStage(v, card.Name, embed),
				s.viewStage(v.BVID, &view),
				s.audioStage(v, &view),
			}
		},
	}
	items := enricher.Run(ctx, candidates)

	meta := feed.Metadata{
		Title:       card.Name + " - Bilibili",
		Link:        spaceBase + "/" + uid,
		Description: card.Name + " 的 Bilibili 投稿",
		ImageURL:    card.Face,
		Author:      card.Name,
	}
	return feed.Assemble(meta, items), nil
}

func parseUnix(raw string) (time.Time, error) {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse unix timestamp %q: %w", raw, err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

func videoLink(v videoEntry) string {
	if v.Created > bvidEpoch && v.BVID != "" {
		return "https://www.bilibili.com/video/" + v.BVID
	}
	return fmt.Sprintf("https://www.bilibili.com/video/av%d", v.AID)
}

func (s *Source) userCard(ctx context.Context, uid string) (userCard, error) {
	return cache.TryGetJSON(ctx, s.cache, "bilibili:card:"+uid, func(ctx context.Context) (userCard, error) {
		resp, err := s.client.Get(ctx, s.api+"/x/web-interface/card", &fetch.Options{
			Query: url.Values{"mid": {uid}},
		})
		if err != nil {
			return userCard{}, err
		}

		var payload struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    struct {
				Card userCard `json:"card"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return userCard{}, fmt.Errorf("failed to decode card payload: %w", err)
		}
		if payload.Code != 0 {
			return userCard{}, &APIError{Endpoint: "card", Code: payload.Code, Message: payload.Message}
		}
		return payload.Data.Card, nil
	})
}

func (s *Source) videoList(ctx context.Context, uid string) ([]videoEntry, error) {
	params := url.Values{
		"mid":      {uid},
		"ps":       {"30"},
		"tid":      {"0"},
		"pn":       {"1"},
		"order":    {"pubdate"},
		"platform": {"web"},
	}
	signed, err := s.signer.Sign(ctx, params)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, s.api+"/x/space/wbi/arc/search", &fetch.Options{
		Query: signed,
		Headers: map[string]string{
			"Referer": fmt.Sprintf("%s/%s/video?tid=0&pn=1&keyword=&order=pubdate", spaceBase, uid),
		},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			List struct {
				VList []videoEntry `json:"vlist"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode video list payload: %w", err)
	}
	if payload.Code != 0 {
		return nil, &APIError{Endpoint: "arc/search", Code: payload.Code, Message: payload.Message}
	}
	return payload.Data.List.VList, nil
}
