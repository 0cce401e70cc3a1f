package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/whatsapp"
)

type Config struct {
	WAAccessToken   string
	WAPhoneNumberID string
	WAAPIBase       string
	WAVerifyToken   string

	Branding compose.Branding

	Port      string
	DataDir   string
	LogLevel  string
	LogPretty bool

	CatalogPath   string
	MediaDir      string
	ImageInterval time.Duration

	SessionBackend string
	SessionIdleTTL time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	EnableDigest   bool
	DigestInterval time.Duration
	DigestWindow   time.Duration
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	OwnerEmails    []string
	LocalTZ        *time.Location

	AdminToken string
}

// Load reads the environment. Only values that every command needs are
// validated here; serve additionally calls RequireWhatsApp.
func Load() (*Config, error) {
	// .env is optional, env vars may already be set (e.g. in production)
	_ = godotenv.Load()

	brand := compose.DefaultBranding()
	cfg := &Config{
		WAAccessToken:   os.Getenv("WHATSAPP_TOKEN"),
		WAPhoneNumberID: os.Getenv("WHATSAPP_PHONE_ID"),
		WAAPIBase:       envOr("WHATSAPP_API_BASE", whatsapp.DefaultAPIBase),
		WAVerifyToken:   os.Getenv("VERIFY_TOKEN"),
		Branding: compose.Branding{
			Name:     envOr("BUSINESS_NAME", brand.Name),
			Tagline:  envOr("BUSINESS_TAGLINE", brand.Tagline),
			Locality: envOr("BUSINESS_LOCALITY", brand.Locality),
			Property: envOr("BUSINESS_PROPERTY", brand.Property),
			Contact:  envOr("HUMAN_CONTACT", brand.Contact),
		},
		Port:           envOr("PORT", "3000"),
		DataDir:        envOr("DATA_DIR", "."),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogPretty:      parseBoolEnv("LOG_PRETTY"),
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		MediaDir:       envOr("MEDIA_DIR", "."),
		SessionBackend: strings.ToLower(envOr("SESSION_BACKEND", "memory")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        parseIntEnv("REDIS_DB"),
		EnableDigest:   os.Getenv("ENABLE_DIGEST") == "1",
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:      os.Getenv("EMAIL_FROM"),
		EmailFromName:  os.Getenv("EMAIL_FROM_NAME"),
		OwnerEmails:    splitList(os.Getenv("OWNERS_EMAILS")),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
	}

	var err error
	if cfg.ImageInterval, err = parseDurationEnv("IMAGE_INTERVAL", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = parseDurationEnv("SESSION_IDLE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.DigestInterval, err = parseDurationEnv("DIGEST_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DigestWindow, err = parseDurationEnv("DIGEST_WINDOW", 6*time.Hour); err != nil {
		return nil, err
	}

	tz := envOr("LOCAL_TZ", "Asia/Qatar")
	if cfg.LocalTZ, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("LOCAL_TZ %q: %w", tz, err)
	}

	switch cfg.SessionBackend {
	case "memory", "bolt":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("required env var REDIS_ADDR is not set for SESSION_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q (want memory, bolt or redis)", cfg.SessionBackend)
	}

	if cfg.WAVerifyToken == "" {
		token, err := randomHex(16)
		if err != nil {
			return nil, fmt.Errorf("generating verify token: %w", err)
		}
		cfg.WAVerifyToken = token
	}

	return cfg, nil
}

// RequireWhatsApp checks the credentials needed to talk to the Cloud API.
func (c *Config) RequireWhatsApp() error {
	for _, req := range []struct {
		name, val string
	}{
		{"WHATSAPP_TOKEN", c.WAAccessToken},
		{"WHATSAPP_PHONE_ID", c.WAPhoneNumberID},
	} {
		if req.val == "" {
			return fmt.Errorf("required env var %s is not set", req.name)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}

func parseBoolEnv(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
