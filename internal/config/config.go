package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the zip-stream server.
type Config struct {
	ListenAddr         string
	UpstreamBaseURL    string
	CORSAllowedOrigins []string

	AWSRegion        string
	S3Endpoint       string
	S3ForcePathStyle bool

	BlobMaxRetries  int
	BlobBackoffBase time.Duration
	BlobBackoffMax  time.Duration

	UpstreamTimeout  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	RateLimitWindow time.Duration
	RateLimitPerIP  int
}

func Load() (Config, error) {
	defaultCORSOrigins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	cfg := Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		UpstreamBaseURL:  getenv("UPSTREAM_BASE_URL", ""),
		AWSRegion:        getenv("AWS_REGION", "us-east-1"),
		S3Endpoint:       getenv("S3_ENDPOINT", ""),
		S3ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
		BlobMaxRetries:   getenvInt("BLOB_MAX_RETRIES", 5),
		BlobBackoffBase:  getenvDuration("BLOB_BACKOFF_BASE", 200*time.Millisecond),
		BlobBackoffMax:   getenvDuration("BLOB_BACKOFF_MAX", 10*time.Second),
		UpstreamTimeout:  getenvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		HTTPReadTimeout:  getenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout: getenvDuration("HTTP_WRITE_TIMEOUT", 0),
		HTTPIdleTimeout:  getenvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RateLimitWindow:  getenvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitPerIP:   getenvInt("RATE_LIMIT_PER_IP", 120),
	}
	cfg.CORSAllowedOrigins = parseList(getenv("CORS_ALLOWED_ORIGINS", strings.Join(defaultCORSOrigins, ",")))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = defaultCORSOrigins
	}

	if strings.TrimSpace(cfg.UpstreamBaseURL) == "" {
		return Config{}, fmt.Errorf("UPSTREAM_BASE_URL cannot be empty")
	}
	if cfg.BlobMaxRetries < 0 {
		cfg.BlobMaxRetries = 0
	}
	if cfg.RateLimitPerIP <= 0 {
		cfg.RateLimitPerIP = 1
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseList(raw string) []string {
	replacer := strings.NewReplacer("\n", ",", ";", ",")
	normalized := replacer.Replace(raw)
	parts := strings.Split(normalized, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return dedupeNonEmpty(out)
}

func dedupeNonEmpty(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(c))
	}
	return out
}
