package main

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const proxyUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var proxyClient = &http.Client{Timeout: 60 * time.Second}

// allowedProxyHosts restricts streaming to the media CDNs the integrations
// return links for.
var allowedProxyHosts = []string{
	"erome.com",
	"tikwm.com",
	"cdninstagram.com",
	"fbcdn.net",
	"googlevideo.com",
	"imglarger.com",
}

// mediaProxyHandler streams remote media through the gateway so browser
// clients can fetch CDN files that block cross-origin requests.
//
// GET /api/media/proxy?url=...&type=video|image
func mediaProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeAPIError(w, http.StatusBadRequest, "URL não informada")
			return
		}
		target, err := url.Parse(rawURL)
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
			writeAPIError(w, http.StatusBadRequest, "URL inválida")
			return
		}
		if !proxyHostAllowed(target.Hostname()) {
			writeAPIError(w, http.StatusForbidden, "Host não permitido")
			return
		}

		mediaType := r.URL.Query().Get("type")

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, "Erro ao montar requisição")
			return
		}
		req.Header.Set("User-Agent", proxyUserAgent)
		req.Header.Set("Referer", target.Scheme+"://"+target.Host+"/")
		if mediaType == "video" {
			req.Header.Set("Accept", "video/mp4,video/*")
		} else {
			req.Header.Set("Accept", "image/*,*/*")
		}
		// Forward range requests so video seeking works.
		if rng := r.Header.Get("Range"); rng != "" {
			req.Header.Set("Range", rng)
		}

		resp, err := proxyClient.Do(req)
		if err != nil {
			writeAPIError(w, http.StatusBadGateway, "Erro ao baixar o arquivo")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			writeAPIError(w, http.StatusBadGateway, "Erro ao baixar o arquivo")
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else if mediaType == "video" {
			w.Header().Set("Content-Type", "video/mp4")
		} else {
			w.Header().Set("Content-Type", "image/jpeg")
		}
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			w.Header().Set("Content-Length", cl)
		}
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			w.Header().Set("Content-Range", cr)
		}
		if ar := resp.Header.Get("Accept-Ranges"); ar != "" {
			w.Header().Set("Accept-Ranges", ar)
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(resp.StatusCode)

		_, _ = io.Copy(w, resp.Body)
	}
}

func proxyHostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range allowedProxyHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
