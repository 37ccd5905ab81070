package mediagateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchema is the structural contract enforced before the semantic
// checks in ValidateConfig run.
const configSchema = `{
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "addr": {"type": "string"},
        "shutdown_timeout_seconds": {"type": "integer", "minimum": 0}
      }
    },
    "key_store": {
      "type": "object",
      "properties": {
        "backend": {"enum": ["", "file", "sqlite", "postgres"]},
        "path": {"type": "string"},
        "dsn": {"type": "string"}
      }
    },
    "rate_limit": {
      "type": ["object", "null"],
      "properties": {
        "requests_per_minute": {"type": "integer", "minimum": 1},
        "burst": {"type": "integer", "minimum": 0}
      },
      "required": ["requests_per_minute"]
    },
    "cache": {
      "type": ["object", "null"],
      "properties": {
        "capacity": {"type": "integer", "minimum": 0},
        "ttl_seconds": {"type": "integer", "minimum": 0}
      }
    },
    "usage_log": {
      "type": ["object", "null"],
      "properties": {
        "backend": {"enum": ["", "sqlite", "postgres"]},
        "path": {"type": "string"},
        "dsn": {"type": "string"}
      }
    },
    "upstreams": {"type": "object"},
    "cors": {
      "type": "object",
      "properties": {
        "allowed_origins": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	if err := validateSchema(cfg); err != nil {
		return err
	}

	backend := cfg.KeyStore.Backend
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendFile, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown key store backend: %q", cfg.KeyStore.Backend)
	}
	if backend == BackendPostgres && cfg.KeyStore.DSN == "" {
		return fmt.Errorf("postgres key store requires a dsn")
	}

	if cfg.UsageLog != nil {
		ub := cfg.UsageLog.Backend
		if ub == "" {
			ub = BackendSQLite
		}
		switch ub {
		case BackendSQLite, BackendPostgres:
		default:
			return fmt.Errorf("unknown usage log backend: %q", cfg.UsageLog.Backend)
		}
		if ub == BackendPostgres && cfg.UsageLog.DSN == "" {
			return fmt.Errorf("postgres usage log requires a dsn")
		}
	}

	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requires requests_per_minute > 0")
	}

	if cfg.Upstreams.Weather.Enabled && cfg.Upstreams.Weather.APIKey == "" {
		return fmt.Errorf("weather upstream requires an api_key")
	}

	return nil
}

// validateSchema round-trips cfg through JSON so the schema sees the same
// document shape a JSON config file would have.
func validateSchema(cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config for validation: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding config for validation: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
