package upstreams

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestTikTokURLValidation(t *testing.T) {
	valid := []string{
		"https://www.tiktok.com/@user.name/video/7123456789012345678",
		"https://tiktok.com/@user/video/123",
		"https://vm.tiktok.com/ZMabcdef/",
		"https://vt.tiktok.com/ZSxyz123",
		"https://www.tiktok.com/t/ZTabc123/",
	}
	for _, link := range valid {
		if !validTikTokURL(link) {
			t.Errorf("expected %q to be valid", link)
		}
	}

	invalid := []string{
		"",
		"https://example.com/@user/video/123",
		"https://www.tiktok.com/@user",
		"ftp://vm.tiktok.com/ZMabcdef/",
	}
	for _, link := range invalid {
		if validTikTokURL(link) {
			t.Errorf("expected %q to be rejected", link)
		}
	}
}

func TestTikTokRequiresURL(t *testing.T) {
	tk := NewTikTok("")
	if _, err := tk.Extract(context.Background(), url.Values{}); !errors.Is(err, ErrBadInput) {
		t.Errorf("missing url: expected bad input, got %v", err)
	}
	if _, err := tk.Extract(context.Background(), url.Values{"url": {"https://example.com/x"}}); !errors.Is(err, ErrBadInput) {
		t.Errorf("foreign url: expected bad input, got %v", err)
	}
}

func TestTikTokExtract(t *testing.T) {
	fixture := `{
		"code": 0,
		"msg": "success",
		"data": {
			"id": "7123",
			"title": "Video de teste",
			"cover": "https://cdn.tikwm.com/cover.jpg",
			"play": "https://cdn.tikwm.com/play.mp4",
			"wmplay": "https://cdn.tikwm.com/wm.mp4",
			"music": "https://cdn.tikwm.com/music.mp3",
			"duration": 15,
			"author": {"unique_id": "user", "nickname": "User", "avatar": "https://cdn.tikwm.com/a.jpg"},
			"play_count": 100, "digg_count": 10, "share_count": 2
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			t.Error("expected url query parameter forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	tk := NewTikTok(srv.URL)
	res, err := tk.Extract(context.Background(), url.Values{"url": {"https://www.tiktok.com/@user/video/7123"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !res.Success || res.Source != "tikwm" {
		t.Errorf("envelope = %+v", res)
	}
	data, _ := res.Data.(map[string]interface{})
	if data["video"] != "https://cdn.tikwm.com/play.mp4" || data["title"] != "Video de teste" {
		t.Errorf("data = %v", data)
	}
}

func TestTikTokResolverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": -1, "msg": "video not found"}`))
	}))
	defer srv.Close()

	tk := NewTikTok(srv.URL)
	_, err := tk.Extract(context.Background(), url.Values{"url": {"https://www.tiktok.com/@user/video/7123"}})
	if err == nil || errors.Is(err, ErrBadInput) {
		t.Errorf("expected upstream error, got %v", err)
	}
}
