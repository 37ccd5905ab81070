package upstreams

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultTikTokURL = "https://www.tikwm.com"

// tiktokURLPatterns match the accepted link shapes, including short links.
var tiktokURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?tiktok\.com/@[\w.-]+/video/\d+`),
	regexp.MustCompile(`^https?://(?:vt|vm)\.tiktok\.com/[\w]+/?`),
	regexp.MustCompile(`^https?://(?:www\.)?tiktok\.com/t/[\w]+/?`),
}

// TikTok resolves video metadata and watermark-free download links.
type TikTok struct {
	Base
}

// NewTikTok creates the TikTok integration. baseURL may be empty to use the
// default public resolver.
func NewTikTok(baseURL string) *TikTok {
	if baseURL == "" {
		baseURL = defaultTikTokURL
	}
	return &TikTok{Base: newBase("tiktok", strings.TrimSuffix(baseURL, "/"), 30*time.Second)}
}

type tikwmResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Cover    string `json:"cover"`
		Play     string `json:"play"`
		WMPlay   string `json:"wmplay"`
		Music    string `json:"music"`
		Duration int    `json:"duration"`
		Author   struct {
			UniqueID string `json:"unique_id"`
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		} `json:"author"`
		PlayCount  int64 `json:"play_count"`
		DiggCount  int64 `json:"digg_count"`
		ShareCount int64 `json:"share_count"`
	} `json:"data"`
}

// Extract resolves a TikTok video. Params: url (required).
func (t *TikTok) Extract(ctx context.Context, params url.Values) (*Result, error) {
	link := strings.TrimSpace(params.Get("url"))
	if link == "" {
		return nil, badInput("URL não informada")
	}
	if !validTikTokURL(link) {
		return nil, badInput("URL do TikTok inválida")
	}

	q := url.Values{}
	q.Set("url", link)

	var resp tikwmResponse
	if err := t.getJSON(ctx, t.endpoint+"/api/?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tiktok: resolver error: %s", resp.Msg)
	}

	data := map[string]interface{}{
		"id":       resp.Data.ID,
		"title":    resp.Data.Title,
		"cover":    resp.Data.Cover,
		"video":    resp.Data.Play,
		"video_wm": resp.Data.WMPlay,
		"music":    resp.Data.Music,
		"duration": resp.Data.Duration,
		"author": map[string]interface{}{
			"username": resp.Data.Author.UniqueID,
			"nickname": resp.Data.Author.Nickname,
			"avatar":   resp.Data.Author.Avatar,
		},
		"stats": map[string]interface{}{
			"plays":  resp.Data.PlayCount,
			"likes":  resp.Data.DiggCount,
			"shares": resp.Data.ShareCount,
		},
	}
	return &Result{Success: true, Source: "tikwm", Data: data}, nil
}

func validTikTokURL(link string) bool {
	for _, p := range tiktokURLPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return false
}
