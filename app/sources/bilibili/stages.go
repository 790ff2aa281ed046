package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/HPDell/RSSHub/app/cache"
	"github.com/HPDell/RSSHub/app/enrich"
	"github.com/HPDell/RSSHub/app/feed"
	"github.com/HPDell/RSSHub/app/fetch"
	"github.com/HPDell/RSSHub/app/proxy"
)

type viewInfo struct {
	CID      int64 `json:"cid"`
	Duration int   `json:"duration"`
}

type audioTrack struct {
	BaseURL  string `json:"baseUrl"`
	MimeType string `json:"mimeType"`
}

// describeStage populates the item from the list entry alone. It never
// fails, so even a video with unresolvable media keeps its description.
func describeStage(v videoEntry, author string, embed bool) enrich.Stage {
	return func(_ context.Context, item *feed.Item) error {
		item.Description = renderDescription(v, embed)
		item.Author = author
		item.Comments = v.Comment
		return nil
	}
}

// renderDescription builds the item body: cover and summary, plus an
// embedded player unless embed mode is off.
func renderDescription(v videoEntry, embed bool) string {
	body := fmt.Sprintf(`<img src="%s"><br>%s`, v.Pic, v.Description)
	if embed && v.BVID != "" {
		body += fmt.Sprintf(`<br><iframe src="//player.bilibili.com/player.html?bvid=%s" width="650" height="477" scrolling="no" border="0" frameborder="no"></iframe>`, v.BVID)
	}
	return body
}

// viewStage resolves the video's intermediate identifier (cid) and
// duration. Without a cid the play URL cannot be requested, so this stage's
// failure short-circuits audioStage and the item degrades to the base
// record.
func (s *Source) viewStage(bvid string, view *viewInfo) enrich.Stage {
	return func(ctx context.Context, item *feed.Item) error {
		if bvid == "" {
			return fmt.Errorf("list entry carries no bvid")
		}

		info, err := cache.TryGetJSON(ctx, s.cache, "bilibili:view:"+bvid, func(ctx context.Context) (viewInfo, error) {
			return s.fetchView(ctx, bvid)
		})
		if err != nil {
			return err
		}

		*view = info
		item.Duration = info.Duration
		return nil
	}
}

func (s *Source) fetchView(ctx context.Context, bvid string) (viewInfo, error) {
	resp, err := s.client.Get(ctx, s.api+"/x/web-interface/view", &fetch.Options{
		Query: url.Values{"bvid": {bvid}},
	})
	if err != nil {
		return viewInfo{}, err
	}

	var payload struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Data    viewInfo `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return viewInfo{}, fmt.Errorf("failed to decode view payload: %w", err)
	}
	if payload.Code != 0 {
		return viewInfo{}, &APIError{Endpoint: "view", Code: payload.Code, Message: payload.Message}
	}
	if payload.Data.CID == 0 {
		return viewInfo{}, fmt.Errorf("view payload for %s carries no cid", bvid)
	}
	return payload.Data, nil
}

// audioStage resolves the dash audio stream for the video and rewrites it
// to the proxied enclosure URL, because the origin requires spoofed headers
// that feed consumers cannot supply.
func (s *Source) audioStage(v videoEntry, view *viewInfo) enrich.Stage {
	return func(ctx context.Context, item *feed.Item) error {
		audio, err := s.fetchAudio(ctx, v.BVID, view.CID)
		if err != nil {
			return err
		}

		item.EnclosureURL = proxy.URL("bilibili", audio.BaseURL)
		item.EnclosureType = audio.MimeType
		item.ImageURL = v.Pic
		return nil
	}
}

func (s *Source) fetchAudio(ctx context.Context, bvid string, cid int64) (audioTrack, error) {
	params := url.Values{
		"bvid":  {bvid},
		"cid":   {fmt.Sprintf("%d", cid)},
		"fnval": {"16"},
		"qn":    {"32"},
		"fourk": {"0"},
	}
	signed, err := s.signer.Sign(ctx, params)
	if err != nil {
		return audioTrack{}, err
	}

	resp, err := s.client.Get(ctx, s.api+"/x/player/wbi/playurl", &fetch.Options{
		Query: signed,
		Headers: map[string]string{
			"Referer": fmt.Sprintf("https://www.bilibili.com/video/%s/", bvid),
		},
	})
	if err != nil {
		return audioTrack{}, err
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Dash struct {
				Audio []audioTrack `json:"audio"`
			} `json:"dash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return audioTrack{}, fmt.Errorf("failed to decode playurl payload: %w", err)
	}
	if payload.Code != 0 {
		return audioTrack{}, &APIError{Endpoint: "playurl", Code: payload.Code, Message: payload.Message}
	}
	if len(payload.Data.Dash.Audio) == 0 {
		return audioTrack{}, fmt.Errorf("playurl payload for %s carries no dash audio", bvid)
	}
	return payload.Data.Dash.Audio[0], nil
}
