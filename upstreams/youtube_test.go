package upstreams

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestYouTubeRequiresQuery(t *testing.T) {
	y := NewYouTube("")
	_, err := y.Extract(context.Background(), url.Values{})
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected bad input error, got %v", err)
	}
}

func TestYouTubeExtract(t *testing.T) {
	fixture := `[
		{"videoId": "abc123", "title": "Primeiro", "author": "Canal A", "lengthSeconds": 192,
		 "viewCount": 1000, "publishedText": "1 day ago", "liveNow": false,
		 "videoThumbnails": [{"url": "https://img.example/abc123.jpg"}]},
		{"videoId": "def456", "title": "Segundo", "author": "Canal B", "lengthSeconds": 0,
		 "viewCount": 50, "publishedText": "", "liveNow": true, "videoThumbnails": []}
	]`
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	y := NewYouTube(srv.URL)
	res, err := y.Extract(context.Background(), url.Values{"query": {"go tutorial"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if gotPath != "/api/v1/search?q=go+tutorial&type=video" {
		t.Errorf("request path = %q", gotPath)
	}
	if !res.Success || res.Source != "invidious" {
		t.Errorf("result envelope = %+v", res)
	}

	items, _ := res.Data.([]videoItem)
	if len(items) != 2 {
		t.Fatalf("videos = %v", res.Data)
	}
	first := items[0]
	if first.ID != "abc123" || first.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("first item = %+v", first)
	}
	if first.Thumbnail != "https://img.example/abc123.jpg" {
		t.Errorf("thumbnail = %q", first.Thumbnail)
	}
	if !items[1].IsLive {
		t.Error("expected second item live")
	}
}

// The q alias works the same as query.
func TestYouTubeQueryAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "music" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	y := NewYouTube(srv.URL)
	if _, err := y.Extract(context.Background(), url.Values{"q": {"music"}}); err != nil {
		t.Fatalf("extract: %v", err)
	}
}
