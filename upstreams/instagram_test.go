package upstreams

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestInstagramURLValidation(t *testing.T) {
	valid := []string{
		"https://www.instagram.com/p/Cabc123_-/",
		"https://instagram.com/reel/Xyz789",
		"https://www.instagram.com/tv/Abc",
		"https://www.instagram.com/stories/user_name/123456",
	}
	for _, link := range valid {
		if !validInstagramURL(link) {
			t.Errorf("expected %q to be valid", link)
		}
	}
	invalid := []string{
		"https://www.instagram.com/username/",
		"https://example.com/p/abc/",
	}
	for _, link := range invalid {
		if validInstagramURL(link) {
			t.Errorf("expected %q to be rejected", link)
		}
	}
}

func TestInstagramExtract(t *testing.T) {
	fixture := `{
		"results_number": 2,
		"post_info": {"username": "someone"},
		"media_details": [
			{"type": "image", "url": "https://cdn.example/img.jpg", "thumbnail": "https://cdn.example/t.jpg",
			 "dimensions": {"width": 1080, "height": 1350}},
			{"type": "video", "url": "https://cdn.example/vid.mp4", "thumbnail": "https://cdn.example/vt.jpg",
			 "dimensions": {"width": 720, "height": 1280}, "video_view_count": 500, "duration": 12}
		]
	}`
	var gotReq *url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.URL
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	ig := NewInstagram(srv.URL)
	res, err := ig.Extract(context.Background(), url.Values{"url": {"https://www.instagram.com/reel/Xyz789/?igsh=tracking"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	// Tracking query parameters are stripped before resolution.
	if got := gotReq.Query().Get("url"); got != "https://www.instagram.com/reel/Xyz789/" {
		t.Errorf("resolved url = %q", got)
	}

	data, _ := res.Data.(map[string]interface{})
	if data["media_count"] != 2 {
		t.Errorf("media_count = %v", data["media_count"])
	}
	// The video wins as the direct download link.
	if data["download_url"] != "https://cdn.example/vid.mp4" || data["type"] != "video" {
		t.Errorf("best media = %v / %v", data["download_url"], data["type"])
	}
}

func TestInstagramRejectsProfileLinks(t *testing.T) {
	ig := NewInstagram("")
	_, err := ig.Extract(context.Background(), url.Values{"url": {"https://www.instagram.com/username/"}})
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected bad input, got %v", err)
	}
}

func TestInstagramEmptyMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results_number": 0, "post_info": {}, "media_details": []}`))
	}))
	defer srv.Close()

	ig := NewInstagram(srv.URL)
	_, err := ig.Extract(context.Background(), url.Values{"url": {"https://www.instagram.com/p/Empty/"}})
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected bad input for empty media, got %v", err)
	}
}
