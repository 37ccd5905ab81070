package upstreams

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultInstagramURL = "https://api.instagram-dl.workers.dev"

var instagramURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/p/[A-Za-z0-9_-]+/?`),
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/reel/[A-Za-z0-9_-]+/?`),
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/tv/[A-Za-z0-9_-]+/?`),
	regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/stories/[A-Za-z0-9_-]+/[A-Za-z0-9_-]+/?`),
}

// Instagram resolves media from posts and reels through a resolver service.
type Instagram struct {
	Base
}

func NewInstagram(baseURL string) *Instagram {
	if baseURL == "" {
		baseURL = defaultInstagramURL
	}
	return &Instagram{Base: newBase("instagram", strings.TrimSuffix(baseURL, "/"), 30*time.Second)}
}

type instagramMedia struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Views     *int64 `json:"views"`
	Duration  *int   `json:"duration"`
}

type instagramResolverResponse struct {
	ResultsNumber int                    `json:"results_number"`
	PostInfo      map[string]interface{} `json:"post_info"`
	MediaDetails  []struct {
		Type       string `json:"type"`
		URL        string `json:"url"`
		Thumbnail  string `json:"thumbnail"`
		Dimensions struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"dimensions"`
		VideoViewCount *int64 `json:"video_view_count"`
		Duration       *int   `json:"duration"`
	} `json:"media_details"`
}

// Extract resolves an Instagram post or reel. Params: url (required).
// Query parameters on the link are stripped before resolution.
func (i *Instagram) Extract(ctx context.Context, params url.Values) (*Result, error) {
	link := strings.TrimSpace(params.Get("url"))
	if link == "" {
		return nil, badInput("URL não informada")
	}
	if idx := strings.IndexByte(link, '?'); idx >= 0 {
		link = link[:idx]
	}
	if !validInstagramURL(link) {
		return nil, badInput("Link inválido. Apenas posts (/p/) ou reels (/reel/) são suportados.")
	}

	q := url.Values{}
	q.Set("url", link)

	var resp instagramResolverResponse
	if err := i.getJSON(ctx, i.endpoint+"/api/resolve?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.MediaDetails) == 0 {
		return nil, badInput("Nenhuma mídia encontrada no post")
	}

	media := make([]instagramMedia, 0, len(resp.MediaDetails))
	for _, m := range resp.MediaDetails {
		media = append(media, instagramMedia{
			Type:      m.Type,
			URL:       m.URL,
			Thumbnail: m.Thumbnail,
			Width:     m.Dimensions.Width,
			Height:    m.Dimensions.Height,
			Views:     m.VideoViewCount,
			Duration:  m.Duration,
		})
	}

	// Videos take priority as the direct download link.
	best := media[0]
	for _, m := range media {
		if m.Type == "video" {
			best = m
			break
		}
	}

	data := map[string]interface{}{
		"post_info":    resp.PostInfo,
		"media_count":  len(media),
		"media":        media,
		"download_url": best.URL,
		"type":         best.Type,
	}
	return &Result{Success: true, Source: "instagram", Data: data}, nil
}

func validInstagramURL(link string) bool {
	for _, p := range instagramURLPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return false
}
