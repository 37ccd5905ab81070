package upstreams

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const defaultInvidiousURL = "https://inv.nadeko.net"

// YouTube searches videos through an Invidious-compatible API instance.
type YouTube struct {
	Base
}

// NewYouTube creates the YouTube search integration. baseURL may be empty to
// use the default public instance.
func NewYouTube(baseURL string) *YouTube {
	if baseURL == "" {
		baseURL = defaultInvidiousURL
	}
	return &YouTube{Base: newBase("youtube", strings.TrimSuffix(baseURL, "/"), 15*time.Second)}
}

type invidiousVideo struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	LengthSeconds int    `json:"lengthSeconds"`
	ViewCount     int64  `json:"viewCount"`
	PublishedText string `json:"publishedText"`
	LiveNow       bool   `json:"liveNow"`
	VideoThumbs   []struct {
		URL string `json:"url"`
	} `json:"videoThumbnails"`
}

// videoItem is the normalized search result entry.
type videoItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	Channel   string `json:"channel"`
	ViewCount int64  `json:"view_count"`
	URL       string `json:"url"`
	IsLive    bool   `json:"isLive"`
	Ago       string `json:"ago"`
}

// Extract searches videos. Params: query (required).
func (y *YouTube) Extract(ctx context.Context, params url.Values) (*Result, error) {
	query := strings.TrimSpace(params.Get("query"))
	if query == "" {
		query = strings.TrimSpace(params.Get("q"))
	}
	if query == "" {
		return nil, badInput("Termo de busca não informado")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "video")

	var videos []invidiousVideo
	if err := y.getJSON(ctx, y.endpoint+"/api/v1/search?"+q.Encode(), &videos); err != nil {
		return nil, err
	}

	items := make([]videoItem, 0, len(videos))
	for _, v := range videos {
		item := videoItem{
			ID:        v.VideoID,
			Title:     v.Title,
			Duration:  v.LengthSeconds,
			Channel:   v.Author,
			ViewCount: v.ViewCount,
			URL:       "https://www.youtube.com/watch?v=" + v.VideoID,
			IsLive:    v.LiveNow,
			Ago:       v.PublishedText,
		}
		if len(v.VideoThumbs) > 0 {
			item.Thumbnail = v.VideoThumbs[0].URL
		}
		items = append(items, item)
	}
	return &Result{Success: true, Source: "invidious", Data: items}, nil
}
