package upstreams

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// Weather resolves current conditions for a city via OpenWeatherMap.
type Weather struct {
	Base
	apiKey string
}

// NewWeather creates the weather integration. apiKey is the OpenWeatherMap
// application key.
func NewWeather(apiKey string) (*Weather, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("weather: api key is required")
	}
	return &Weather{
		Base:   newBase("weather", openWeatherURL, 10*time.Second),
		apiKey: apiKey,
	}, nil
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
	Clouds     struct {
		All int `json:"all"`
	} `json:"clouds"`
}

// Extract fetches the current weather. Params: city (required), lang
// (default pt_br), units (default metric).
func (w *Weather) Extract(ctx context.Context, params url.Values) (*Result, error) {
	city := strings.TrimSpace(params.Get("city"))
	if city == "" {
		return nil, badInput("Cidade não informada")
	}
	lang := params.Get("lang")
	if lang == "" {
		lang = "pt_br"
	}
	units := params.Get("units")
	if units == "" {
		units = "metric"
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.apiKey)
	q.Set("lang", lang)
	q.Set("units", units)

	var resp openWeatherResponse
	if err := w.getJSON(ctx, w.endpoint+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Weather) == 0 {
		return nil, fmt.Errorf("weather: empty conditions for %q", city)
	}

	data := map[string]interface{}{
		"cidade":          resp.Name,
		"pais":            resp.Sys.Country,
		"temperatura":     int(resp.Main.Temp + 0.5),
		"sensacao":        int(resp.Main.FeelsLike + 0.5),
		"temperatura_min": int(resp.Main.TempMin + 0.5),
		"temperatura_max": int(resp.Main.TempMax + 0.5),
		"umidade":         resp.Main.Humidity,
		"pressao":         resp.Main.Pressure,
		"descricao":       resp.Weather[0].Description,
		"icone":           resp.Weather[0].Icon,
		"vento": map[string]interface{}{
			"velocidade": resp.Wind.Speed,
			"direcao":    resp.Wind.Deg,
		},
		"nascer_sol":   time.Unix(resp.Sys.Sunrise, 0).UTC().Format("15:04:05"),
		"por_sol":      time.Unix(resp.Sys.Sunset, 0).UTC().Format("15:04:05"),
		"visibilidade": resp.Visibility,
		"nuvens":       resp.Clouds.All,
	}
	return &Result{Success: true, Source: "openweathermap", Data: data}, nil
}
