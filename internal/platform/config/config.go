// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "climatecentre/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr              string
	DatabaseURL       string
	Redis             RedisConfig
	SessionSigningKey string
	SessionTTL        time.Duration

	// Bootstrap admin created at startup when both values are set.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Object storage: local directory backing uploads and the public URL
	// prefix returned for stored objects.
	MediaDir     string
	MediaBaseURL string

	Chat ChatConfig

	// ChatRateLimit / ChatRateWindow bound anonymous traffic on the public
	// chat endpoint.
	ChatRateLimit  int
	ChatRateWindow time.Duration
}

// RedisConfig describes the optional Redis-backed session store. An empty URL
// means sessions stay in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ChatConfig describes the generative-language collaborator.
type ChatConfig struct {
	BaseURL string
	Model   string
	// APIKeys are tried in order; the client falls through to the next key on
	// quota or availability failures.
	APIKeys []string
	Timeout time.Duration

	SystemPrompt string
	// Knowledge-base toggles: augment prompts with content-store rows and
	// external data-source descriptors.
	UseClimateContent bool
	UseExternalData   bool
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:              envOr("CIC_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("CIC_DATABASE_URL"),
		SessionSigningKey: envOr("CIC_SESSION_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:        envDuration("CIC_SESSION_TTL", 12*time.Hour),

		BootstrapAdminEmail:    os.Getenv("CIC_BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("CIC_BOOTSTRAP_ADMIN_PASSWORD"),
		MediaDir:          envOr("CIC_MEDIA_DIR", "media"),
		MediaBaseURL:      envOr("CIC_MEDIA_BASE_URL", "/media"),
		Redis: RedisConfig{
			URL:          os.Getenv("CIC_REDIS_URL"),
			PoolSize:     envInt("CIC_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CIC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CIC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CIC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CIC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Chat: ChatConfig{
			BaseURL:           envOr("CIC_CHAT_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:             envOr("CIC_CHAT_MODEL", "gemini-1.5-flash"),
			APIKeys:           splitList(os.Getenv("CIC_CHAT_API_KEYS")),
			Timeout:           envDuration("CIC_CHAT_TIMEOUT", 20*time.Second),
			SystemPrompt:      envOr("CIC_CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
			UseClimateContent: envBool("CIC_CHAT_USE_CLIMATE_CONTENT", true),
			UseExternalData:   envBool("CIC_CHAT_USE_EXTERNAL_DATA", true),
		},
		ChatRateLimit:  envInt("CIC_CHAT_RATE_LIMIT", 20),
		ChatRateWindow: envDuration("CIC_CHAT_RATE_WINDOW", time.Minute),
	}
}

const defaultSystemPrompt = "You are ClimateWise, an assistant specialized in Ghana's climate information. " +
	"Answer questions about Ghana's climate change challenges, adaptation strategies, and climate policies. " +
	"Keep answers specific to Ghana's climate context, grounded in accurate data, and actionable for Ghanaian communities."

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
