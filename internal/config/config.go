package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"portfolio/internal/apperr"
)

// ErrActorRequired is returned when no GitHub user is configured.
var ErrActorRequired = errors.New("GITHUB_ACTOR environment variable not found")

// GitHubConfig holds settings for the upstream REST API.
type GitHubConfig struct {
	Actor   string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// PathsConfig holds the template input and rendered output locations.
type PathsConfig struct {
	Template string
	Output   string
}

// PortfolioConfig holds repository selection settings applied after the
// has_pages/fork filter.
type PortfolioConfig struct {
	Exclude      []string
	SkipUserSite bool
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string
	Format string
}

// MinIOConfig holds object storage settings used to publish the rendered page.
// Publishing is enabled only when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	ObjectKey string
	UseSSL    bool
}

// Enabled reports whether publishing to object storage was requested.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// MetricsConfig holds Prometheus Pushgateway settings.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// AppConfig is the centralized configuration struct for a run.
// It is built once at start-up and passed down by pointer.
type AppConfig struct {
	GitHub    GitHubConfig
	Paths     PathsConfig
	Portfolio PortfolioConfig
	Log       LogConfig
	MinIO     MinIOConfig
	Metrics   MetricsConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		GitHub: GitHubConfig{
			Actor:   getEnv("GITHUB_ACTOR", ""),
			Token:   getEnv("GITHUB_TOKEN", ""),
			BaseURL: strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
			Timeout: getEnvDuration("GITHUB_HTTP_TIMEOUT", 30*time.Second),
		},
		Paths: PathsConfig{
			Template: getEnv("TEMPLATE_PATH", "template.html"),
			Output:   getEnv("OUTPUT_PATH", "index.html"),
		},
		Portfolio: PortfolioConfig{
			Exclude:      getEnvList("PORTFOLIO_EXCLUDE"),
			SkipUserSite: getEnvBool("PORTFOLIO_SKIP_USER_SITE", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			ObjectKey: getEnv("MINIO_OBJECT_KEY", "index.html"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
			Job:            getEnv("PUSHGATEWAY_JOB", "portfolio"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c *AppConfig) Validate() error {
	if c.GitHub.Actor == "" {
		return apperr.New("config.load", apperr.KindConfiguration, ErrActorRequired)
	}
	if c.GitHub.Timeout <= 0 {
		return apperr.Newf("config.load", apperr.KindConfiguration, "GITHUB_HTTP_TIMEOUT must be positive, got %s", c.GitHub.Timeout)
	}
	if c.Paths.Template == "" || c.Paths.Output == "" {
		return apperr.Newf("config.load", apperr.KindConfiguration, "template and output paths are required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return def
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
