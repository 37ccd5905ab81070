package upstreams

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const defaultUpscaleURL = "https://api.imglarger.com"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
}

// Upscale enlarges images through an external AI upscaling service.
type Upscale struct {
	Base
}

func NewUpscale(baseURL string) *Upscale {
	if baseURL == "" {
		baseURL = defaultUpscaleURL
	}
	return &Upscale{Base: newBase("upscale", strings.TrimSuffix(baseURL, "/"), 60*time.Second)}
}

type upscaleResponse struct {
	Code     int    `json:"code"`
	ImageURL string `json:"imageUrl"`
	Attempts int    `json:"attempts"`
	Message  string `json:"message"`
}

// Extract upscales an image by URL. Params: url (required),
// scale (optional, one of 2, 3 or 4, default 2).
func (u *Upscale) Extract(ctx context.Context, params url.Values) (*Result, error) {
	link := strings.TrimSpace(params.Get("url"))
	if link == "" {
		return nil, badInput("URL da imagem não informada")
	}
	if !validImageURL(link) {
		return nil, badInput("URL de imagem inválida. Formatos aceitos: jpg, jpeg, png, webp, gif, bmp")
	}

	scale := 2
	if raw := params.Get("scale"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 || n > 4 {
			return nil, badInput("Escala inválida. Use 2, 3 ou 4")
		}
		scale = n
	}

	form := url.Values{}
	form.Set("url", link)
	form.Set("scale", strconv.Itoa(scale))

	var resp upscaleResponse
	if err := u.postFormJSON(ctx, u.endpoint+"/api/upscale", form, &resp); err != nil {
		return nil, err
	}
	if resp.ImageURL == "" {
		return nil, badInput("Falha no processamento da imagem")
	}

	data := map[string]interface{}{
		"url":        resp.ImageURL,
		"escala":     scale,
		"tentativas": resp.Attempts,
	}
	return &Result{Success: true, Source: "imglarger", Data: data}, nil
}

func validImageURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
