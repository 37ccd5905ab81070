package upstreams

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const openWeatherFixture = `{
	"name": "São Paulo",
	"sys": {"country": "BR", "sunrise": 1724828400, "sunset": 1724871600},
	"main": {"temp": 22.4, "feels_like": 21.8, "temp_min": 19.0, "temp_max": 25.0, "humidity": 60, "pressure": 1015},
	"weather": [{"description": "céu limpo", "icon": "01d"}],
	"wind": {"speed": 3.1, "deg": 140},
	"visibility": 10000,
	"clouds": {"all": 0}
}`

func TestWeatherRequiresAPIKey(t *testing.T) {
	if _, err := NewWeather(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestWeatherRequiresCity(t *testing.T) {
	w, err := NewWeather("test-key")
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Extract(context.Background(), url.Values{})
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected bad input error, got %v", err)
	}
}

func TestWeatherExtract(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openWeatherFixture))
	}))
	defer srv.Close()

	w, err := NewWeather("test-key")
	if err != nil {
		t.Fatal(err)
	}
	w.endpoint = srv.URL

	res, err := w.Extract(context.Background(), url.Values{"city": {"São Paulo"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if gotQuery.Get("q") != "São Paulo" || gotQuery.Get("appid") != "test-key" {
		t.Errorf("request query = %v", gotQuery)
	}
	if gotQuery.Get("lang") != "pt_br" || gotQuery.Get("units") != "metric" {
		t.Errorf("defaults not applied: %v", gotQuery)
	}

	if !res.Success || res.Source != "openweathermap" {
		t.Errorf("result envelope = %+v", res)
	}
	data, _ := res.Data.(map[string]interface{})
	if data["cidade"] != "São Paulo" || data["pais"] != "BR" {
		t.Errorf("location fields = %v", data)
	}
	if data["temperatura"] != 22 || data["descricao"] != "céu limpo" {
		t.Errorf("condition fields = %v", data)
	}
}

func TestWeatherUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWeather("test-key")
	if err != nil {
		t.Fatal(err)
	}
	w.endpoint = srv.URL

	if _, err := w.Extract(context.Background(), url.Values{"city": {"Nowhere"}}); err == nil {
		t.Fatal("expected error for upstream 404")
	}
}
