// Package mediagateway holds the configuration model shared by the
// media-gateway binaries.
package mediagateway

// Config holds the configuration for the media gateway.
type Config struct {
	// Server controls the HTTP listener.
	Server ServerConfig `json:"server" yaml:"server"`
	// KeyStore selects where API key credentials are persisted.
	KeyStore KeyStoreConfig `json:"key_store" yaml:"key_store"`
	// RateLimit is the per-client-IP token bucket (optional).
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Cache is the upstream result cache (optional).
	Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// UsageLog persists per-request usage records (optional).
	UsageLog *UsageLogConfig `json:"usage_log,omitempty" yaml:"usage_log,omitempty"`
	// Upstreams enables and configures the media integrations.
	Upstreams UpstreamsConfig `json:"upstreams" yaml:"upstreams"`
	// CORS lists the allowed origins. Empty means allow all.
	CORS CORSConfig `json:"cors,omitempty" yaml:"cors,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// ShutdownTimeoutSeconds bounds graceful shutdown. Defaults to 10.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds,omitempty" yaml:"shutdown_timeout_seconds,omitempty"`
}

// StoreBackend selects a persistence backend.
type StoreBackend string

// StoreBackend constants define the supported backends.
const (
	BackendFile     StoreBackend = "file"
	BackendSQLite   StoreBackend = "sqlite"
	BackendPostgres StoreBackend = "postgres"
)

// KeyStoreConfig selects where credentials are persisted.
type KeyStoreConfig struct {
	// Backend is one of file, sqlite, postgres. Defaults to file.
	Backend StoreBackend `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Path is the JSON file path (file) or database file path (sqlite).
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// DSN is the connection string for the postgres backend.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// RateLimitConfig is the per-client-IP token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// CacheConfig is the upstream result cache.
type CacheConfig struct {
	Capacity   int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	TTLSeconds int `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// UsageLogConfig persists per-request usage records.
type UsageLogConfig struct {
	// Backend is sqlite or postgres. Defaults to sqlite.
	Backend StoreBackend `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string       `json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string       `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// UpstreamConfig configures a single integration.
type UpstreamConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// BaseURL overrides the integration's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIKey is the upstream credential, where the service needs one.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// UpstreamsConfig configures all integrations by name.
type UpstreamsConfig struct {
	YouTube   UpstreamConfig `json:"youtube,omitempty" yaml:"youtube,omitempty"`
	Weather   UpstreamConfig `json:"weather,omitempty" yaml:"weather,omitempty"`
	TikTok    UpstreamConfig `json:"tiktok,omitempty" yaml:"tiktok,omitempty"`
	Instagram UpstreamConfig `json:"instagram,omitempty" yaml:"instagram,omitempty"`
	Facebook  UpstreamConfig `json:"facebook,omitempty" yaml:"facebook,omitempty"`
	Erome     UpstreamConfig `json:"erome,omitempty" yaml:"erome,omitempty"`
	Upscale   UpstreamConfig `json:"upscale,omitempty" yaml:"upscale,omitempty"`
}

// CORSConfig lists the allowed origins.
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}
