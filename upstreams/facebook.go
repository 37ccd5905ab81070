package upstreams

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultFacebookURL = "https://fdown.net"

var facebookURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?facebook\.com/.+/videos/.+`),
	regexp.MustCompile(`^https?://(?:www\.)?facebook\.com/watch/?`),
	regexp.MustCompile(`^https?://(?:www\.)?fb\.watch/.+`),
	regexp.MustCompile(`^https?://(?:www\.)?facebook\.com/.+/video/.+`),
	regexp.MustCompile(`^https?://(?:www\.)?facebook\.com/share/r/.+`),
	regexp.MustCompile(`^https?://(?:www\.)?facebook\.com/reel/.+`),
}

// Share links redirect via a meta refresh tag instead of an HTTP redirect.
var metaRefreshRe = regexp.MustCompile(`(?i)<meta http-equiv="refresh" content="0; URL='(.+?)'">`)

// Facebook resolves video download links through a downloader service.
type Facebook struct {
	Base
}

func NewFacebook(baseURL string) *Facebook {
	if baseURL == "" {
		baseURL = defaultFacebookURL
	}
	return &Facebook{Base: newBase("facebook", strings.TrimSuffix(baseURL, "/"), 30*time.Second)}
}

type facebookResolverResponse struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
	SD        string `json:"sd"`
	HD        string `json:"hd"`
}

// Extract resolves a Facebook video. Params: url (required).
func (f *Facebook) Extract(ctx context.Context, params url.Values) (*Result, error) {
	link := strings.TrimSpace(params.Get("url"))
	if link == "" {
		return nil, badInput("URL não informada")
	}
	if !validFacebookURL(link) {
		return nil, badInput("URL do Facebook inválida")
	}

	if resolved := f.resolveShareLink(ctx, link); resolved != "" {
		link = resolved
	}

	form := url.Values{}
	form.Set("url", link)

	var resp facebookResolverResponse
	if err := f.postFormJSON(ctx, f.endpoint+"/api/download", form, &resp); err != nil {
		return nil, err
	}
	if resp.SD == "" && resp.HD == "" {
		return nil, badInput("Vídeo não encontrado ou indisponível")
	}

	data := map[string]interface{}{
		"title":     resp.Title,
		"thumbnail": resp.Thumbnail,
		"duration":  resp.Duration,
		"sd":        resp.SD,
		"hd":        resp.HD,
	}
	return &Result{Success: true, Source: "facebook", Data: data}, nil
}

// resolveShareLink follows the meta refresh on /share/r/ links to the
// canonical video URL. Failure to resolve falls back to the original link.
func (f *Facebook) resolveShareLink(ctx context.Context, link string) string {
	if !strings.Contains(link, "/share/r/") {
		return ""
	}
	body, err := f.get(ctx, link, nil)
	if err != nil {
		return ""
	}
	defer body.Close()

	html, err := io.ReadAll(io.LimitReader(body, maxResponseBody))
	if err != nil {
		return ""
	}
	if m := metaRefreshRe.FindSubmatch(html); m != nil {
		return string(m[1])
	}
	return ""
}

func validFacebookURL(link string) bool {
	for _, p := range facebookURLPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return false
}
