package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests. godotenv never overrides variables that
// are already set in the process environment.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays ARTFEED_* environment variables. A .env file in the
// working directory is loaded first when present.
func parseEnv(config *Config) {
	_ = loadDotEnv()

	envString(&config.HTTPAddr, "ARTFEED_HTTP_ADDR")
	envString(&config.DatabaseDSN, "ARTFEED_DATABASE_DSN")
	envString(&config.SecretKey, "ARTFEED_SECRET_KEY")
	envDuration(&config.AccessTokenValidityDuration, "ARTFEED_ACCESS_TOKEN_VALIDITY")
	envDuration(&config.SessionTTL, "ARTFEED_SESSION_TTL")
	envString(&config.SessionBackend, "ARTFEED_SESSION_BACKEND")
	envString(&config.RedisAddr, "ARTFEED_REDIS_ADDR")
	envBool(&config.CookieSecure, "ARTFEED_COOKIE_SECURE")
	envList(&config.AllowedOrigins, "ARTFEED_ALLOWED_ORIGINS")
	envString(&config.LogLevel, "ARTFEED_LOG_LEVEL")
	envString(&config.S3RootUser, "ARTFEED_S3_ROOT_USER")
	envString(&config.S3RootPassword, "ARTFEED_S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "ARTFEED_S3_BUCKET")
	envString(&config.S3Region, "ARTFEED_S3_REGION")
	envString(&config.S3BaseEndpoint, "ARTFEED_S3_BASE_ENDPOINT")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// envDuration ignores unparsable values and keeps the previous setting.
func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// envList reads a comma separated list, dropping blank items.
func envList(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
