package upstreams

import (
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	eromeURLRe   = regexp.MustCompile(`^https?://(?:www\.)?erome\.com/a/[\w]+/?`)
	titleRe      = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	imgSrcRe     = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"`)
	videoSrcRe   = regexp.MustCompile(`(?i)<source[^>]+src="([^"]+)"`)
	eromeMediaRe = regexp.MustCompile(`(?i)erome`)
)

// Erome scrapes album pages for direct media links.
type Erome struct {
	Base
}

func NewErome() *Erome {
	return &Erome{Base: newBase("erome", "https://www.erome.com", 30*time.Second)}
}

// Extract scrapes an album page. Params: url (required).
func (e *Erome) Extract(ctx context.Context, params url.Values) (*Result, error) {
	link := strings.TrimSpace(params.Get("url"))
	if link == "" {
		return nil, badInput("URL não informada")
	}
	if !eromeURLRe.MatchString(link) {
		return nil, badInput("URL de álbum inválida")
	}

	// The site refuses requests without a browser-like Referer.
	body, err := e.get(ctx, link, map[string]string{"Referer": e.endpoint + "/"})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	page, err := io.ReadAll(io.LimitReader(body, maxResponseBody))
	if err != nil {
		return nil, err
	}

	title := ""
	if m := titleRe.FindSubmatch(page); m != nil {
		title = html.UnescapeString(strings.TrimSpace(string(m[1])))
	}

	var images, videos []string
	for _, m := range imgSrcRe.FindAllSubmatch(page, -1) {
		src := string(m[1])
		if eromeMediaRe.MatchString(src) {
			images = append(images, src)
		}
	}
	for _, m := range videoSrcRe.FindAllSubmatch(page, -1) {
		videos = append(videos, string(m[1]))
	}

	if len(images) == 0 && len(videos) == 0 {
		return nil, badInput("Nenhuma mídia encontrada no álbum")
	}

	data := map[string]interface{}{
		"titulo":       title,
		"imagens":      images,
		"videos":       videos,
		"url_original": link,
	}
	return &Result{Success: true, Source: "erome", Data: data}, nil
}
