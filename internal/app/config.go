package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"photogram/internal/auth"
	"photogram/internal/db"
	httpx "photogram/internal/http"
	"photogram/internal/logging"
	"photogram/internal/media"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Environment string         `koanf:"environment"`
	Server      httpx.Config   `koanf:"server"`
	Database    db.Config      `koanf:"database"`
	Auth        auth.Config    `koanf:"auth"`
	Media       media.Config   `koanf:"media"`
	Logging     logging.Config `koanf:"logging"`
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: httpx.Config{
			Addr:            ":5000",
			BasePath:        "/api",
			ClientURL:       "http://localhost:5173",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: httpx.RateLimitConfig{
				Enabled:      true,
				Requests:     300,
				AuthRequests: 20,
				Window:       time.Minute,
			},
		},
		Database: db.Config{
			Driver:          db.DriverSQLite,
			DSN:             "photogram.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			SlowQuery:       200 * time.Millisecond,
		},
		Auth: auth.Config{
			SessionLifetime: auth.DefaultSessionLifetime,
		},
		Media: media.Config{
			Provider:       media.ProviderLocal,
			Folder:         "instagram-mvp",
			MaxUploadBytes: media.DefaultMaxUploadBytes,
			Cloudinary: media.CloudinaryConfig{
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
			},
			Local: media.LocalConfig{Dir: "uploads", PublicURL: "/uploads"},
		},
		Logging: logging.Config{Level: "info", Format: "json"},
	}
}

// LoadConfig: defaults -> fichero YAML opcional -> variables de entorno.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if a := cfg.Server.Addr; a != "" && !strings.Contains(a, ":") {
		cfg.Server.Addr = ":" + a
	}
	// en producción las cookies van siempre con Secure
	if cfg.IsProduction() {
		cfg.Server.SecureCookies = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"environment": "environment",

	"addr":             "server.addr",
	"port":             "server.addr",
	"api_base_path":    "server.base_path",
	"client_url":       "server.client_url",
	"secure_cookies":   "server.secure_cookies",
	"request_timeout":  "server.request_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"rate_limit_enabled":       "server.rate_limit.enabled",
	"rate_limit_requests":      "server.rate_limit.requests",
	"rate_limit_auth_requests": "server.rate_limit.auth_requests",
	"rate_limit_window":        "server.rate_limit.window",

	"database_driver":            "database.driver",
	"database_url":               "database.dsn",
	"database_max_open_conns":    "database.max_open_conns",
	"database_max_idle_conns":    "database.max_idle_conns",
	"database_conn_max_lifetime": "database.conn_max_lifetime",
	"database_slow_query":        "database.slow_query",

	"jwt_secret":          "auth.jwt_secret",
	"session_lifetime":    "auth.session_lifetime",
	"firebase_project_id": "auth.federated.project_id",
	"firebase_issuer":     "auth.federated.issuer",
	"firebase_jwks_url":   "auth.federated.jwks_url",

	"media_provider":         "media.provider",
	"media_folder":           "media.folder",
	"media_max_upload_bytes": "media.max_upload_bytes",

	"cloudinary_cloud_name":        "media.cloudinary.cloud_name",
	"cloudinary_api_key":           "media.cloudinary.api_key",
	"cloudinary_api_secret":        "media.cloudinary.api_secret",
	"cloudinary_api_base_url":      "media.cloudinary.api_base_url",
	"cloudinary_delivery_url":      "media.cloudinary.delivery_url",
	"cloudinary_timeout":           "media.cloudinary.timeout",
	"cloudinary_failure_threshold": "media.cloudinary.failure_threshold",
	"cloudinary_open_timeout":      "media.cloudinary.open_timeout",

	"s3_endpoint":         "media.s3.endpoint",
	"s3_region":           "media.s3.region",
	"s3_bucket":           "media.s3.bucket",
	"s3_access_key":       "media.s3.access_key",
	"s3_secret_key":       "media.s3.secret_key",
	"s3_public_url":       "media.s3.public_url",
	"s3_force_path_style": "media.s3.force_path_style",

	"upload_dir":        "media.local.dir",
	"upload_public_url": "media.local.public_url",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc traduce solo las variables conocidas; el resto se ignora.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.SessionLifetime <= 0 {
		errs = append(errs, errors.New("session lifetime must be positive"))
	}
	switch c.Database.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	switch c.Media.Provider {
	case media.ProviderLocal:
	case media.ProviderCloudinary:
		cc := c.Media.Cloudinary
		if cc.CloudName == "" || cc.APIKey == "" || cc.APISecret == "" {
			errs = append(errs, errors.New("cloudinary requires cloud name, api key and api secret"))
		}
	case media.ProviderS3:
		if c.Media.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media provider %q", c.Media.Provider))
	}
	if c.Media.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("base path %q must start with /", c.Server.BasePath))
	}
	return errors.Join(errs...)
}
