// Command mediagw runs the media gateway HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mediagateway "github.com/brisa-labs/media-gateway"
	"github.com/brisa-labs/media-gateway/internal/cache"
	"github.com/brisa-labs/media-gateway/internal/circuitbreaker"
	"github.com/brisa-labs/media-gateway/internal/keys"
	"github.com/brisa-labs/media-gateway/internal/logging"
	"github.com/brisa-labs/media-gateway/internal/ratelimit"
	"github.com/brisa-labs/media-gateway/internal/usagelog"
	"github.com/brisa-labs/media-gateway/internal/version"
	"github.com/brisa-labs/media-gateway/upstreams"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg := &mediagateway.Config{}
	if cfgPath := os.Getenv("MEDIAGW_CONFIG"); cfgPath != "" {
		loaded, err := mediagateway.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := mediagateway.ValidateConfig(*loaded); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		cfg = loaded
		log.Printf("Config loaded from %s", cfgPath)
	} else {
		applyEnvDefaults(cfg)
	}

	store, closeStore, err := buildKeyStore(cfg.KeyStore)
	if err != nil {
		log.Fatalf("Key store: %v", err)
	}
	if closeStore != nil {
		defer closeStore()
	}
	manager := keys.NewManager(store)

	// Bootstrap an admin credential so the admin surface is reachable on
	// a fresh deployment.
	if adminKey := os.Getenv("ADMIN_API_KEY"); adminKey != "" {
		if _, err := manager.EnsureAdmin(context.Background(), adminKey, os.Getenv("ADMIN_OWNER"), 0); err != nil {
			log.Fatalf("Admin bootstrap: %v", err)
		}
		log.Println("Admin credential ensured")
	}

	var usageWriter usagelog.Writer = usagelog.NoopWriter{}
	var usageReader usagelog.Reader
	if cfg.UsageLog != nil {
		ustore, err := buildUsageStore(*cfg.UsageLog)
		if err != nil {
			log.Fatalf("Usage log store: %v", err)
		}
		defer ustore.Close()
		usageWriter = ustore
		usageReader = ustore
	}

	registry, err := buildRegistry(cfg.Upstreams, cfg.Cache)
	if err != nil {
		log.Fatalf("Upstreams: %v", err)
	}
	if len(registry.List()) == 0 {
		log.Println("Warning: no upstreams enabled; only admin and health endpoints are live")
	}

	r := newRouter(manager, registry, usageWriter, usageReader, cfg)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("media-gateway %s listening on %s (%d upstream(s))", version.Short(), addr, len(registry.List()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	log.Println("Server stopped.")
}

// applyEnvDefaults fills a zero config from environment variables so the
// server can run without a config file.
func applyEnvDefaults(cfg *mediagateway.Config) {
	if path := os.Getenv("KEYS_FILE"); path != "" {
		cfg.KeyStore = mediagateway.KeyStoreConfig{Backend: mediagateway.BackendFile, Path: path}
	}
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		cfg.Upstreams.Weather = mediagateway.UpstreamConfig{Enabled: true, APIKey: key}
	}
	cfg.Upstreams.YouTube.Enabled = true
	cfg.Upstreams.TikTok.Enabled = true
	cfg.Upstreams.Instagram.Enabled = true
	cfg.Upstreams.Facebook.Enabled = true
	cfg.Upstreams.Erome.Enabled = true
	cfg.Upstreams.Upscale.Enabled = true
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = strings.Split(origins, ",")
	}
}

func buildKeyStore(kc mediagateway.KeyStoreConfig) (keys.Snapshot, func() error, error) {
	switch kc.Backend {
	case mediagateway.BackendSQLite:
		s, err := keys.NewSQLiteStore(kc.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case mediagateway.BackendPostgres:
		s, err := keys.NewPostgresStore(kc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		path := kc.Path
		if path == "" {
			path = "mediagw-keys.json"
		}
		return keys.NewFileStore(path), nil, nil
	}
}

func buildUsageStore(uc mediagateway.UsageLogConfig) (*usagelog.SQLStore, error) {
	if uc.Backend == mediagateway.BackendPostgres {
		return usagelog.NewPostgresStore(uc.DSN)
	}
	return usagelog.NewSQLiteStore(uc.Path)
}

// buildRegistry constructs the enabled integrations, each guarded by its own
// circuit breaker and, when configured, the shared result cache.
func buildRegistry(uc mediagateway.UpstreamsConfig, cc *mediagateway.CacheConfig) (*upstreams.Registry, error) {
	var resultCache cache.Cache
	if cc != nil {
		capacity := cc.Capacity
		if capacity <= 0 {
			capacity = 1024
		}
		ttl := time.Duration(cc.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		resultCache = cache.NewMemory(capacity, ttl)
	}

	registry := upstreams.NewRegistry()
	add := func(e upstreams.Extractor) {
		e = circuitbreaker.Wrap(e, circuitbreaker.New(5, 1, 30*time.Second))
		e = cache.Wrap(e, resultCache)
		registry.Register(e)
		log.Printf("Upstream registered: %s", e.Name())
	}

	if uc.YouTube.Enabled {
		add(upstreams.NewYouTube(uc.YouTube.BaseURL))
	}
	if uc.Weather.Enabled {
		w, err := upstreams.NewWeather(uc.Weather.APIKey)
		if err != nil {
			return nil, err
		}
		add(w)
	}
	if uc.TikTok.Enabled {
		add(upstreams.NewTikTok(uc.TikTok.BaseURL))
	}
	if uc.Instagram.Enabled {
		add(upstreams.NewInstagram(uc.Instagram.BaseURL))
	}
	if uc.Facebook.Enabled {
		add(upstreams.NewFacebook(uc.Facebook.BaseURL))
	}
	if uc.Erome.Enabled {
		add(upstreams.NewErome())
	}
	if uc.Upscale.Enabled {
		add(upstreams.NewUpscale(uc.Upscale.BaseURL))
	}
	return registry, nil
}

// newRouter builds the HTTP router.
func newRouter(manager *keys.Manager, registry *upstreams.Registry, usageWriter usagelog.Writer, usageReader usagelog.Reader, cfg *mediagateway.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins...))

	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerMinute > 0 {
		rate := float64(cfg.RateLimit.RequestsPerMinute) / 60.0
		burst := float64(cfg.RateLimit.Burst)
		if burst <= 0 {
			burst = float64(cfg.RateLimit.RequestsPerMinute)
		}
		r.Use(ratelimit.ByIP(ratelimit.NewStore(rate, burst)))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(keys.RequireKey(manager))
		r.Use(usagelog.Middleware(usageWriter, grantIdentity))

		r.Get("/media/proxy", mediaProxyHandler())
		r.Get("/{upstream}", extractHandler(registry))
	})

	adminHandlers := &keys.Handlers{Keys: manager, Logs: usageReader}
	r.Route("/admin", func(r chi.Router) {
		r.Use(keys.RequireAdmin(manager))
		r.Mount("/", adminHandlers.Routes())
	})

	return r
}

// grantIdentity adapts the admission grant into a usage log identity.
func grantIdentity(ctx context.Context) (usagelog.Identity, bool) {
	g, ok := keys.GrantFromContext(ctx)
	if !ok {
		return usagelog.Identity{}, false
	}
	prefix := g.Key
	if len(prefix) > 8 {
		prefix = prefix[:8] + "..."
	}
	return usagelog.Identity{KeyPrefix: prefix, Owner: g.Owner}, true
}
