package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/config"
	"github.com/hopeland/leasebot/internal/digest"
	"github.com/hopeland/leasebot/internal/enquiry"
	"github.com/hopeland/leasebot/internal/logger"
	"github.com/hopeland/leasebot/internal/metrics"
	"github.com/hopeland/leasebot/internal/session"
	"github.com/hopeland/leasebot/internal/store"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.CatalogPath)
}

func openEnquiryLog(cfg *config.Config) (*enquiry.SQLiteLog, error) {
	return enquiry.NewSQLiteLog(filepath.Join(cfg.DataDir, "enquiries.db"), cfg.LocalTZ)
}

func newDigestService(cfg *config.Config, reader enquiry.Reader, m *metrics.Metrics, log zerolog.Logger) *digest.Service {
	sender := digest.NewEmailSender(digest.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}, log)
	return digest.NewService(digest.Config{
		BusinessName: cfg.Branding.Name,
		Owners:       cfg.OwnerEmails,
		Window:       cfg.DigestWindow,
	}, reader, sender, m, log)
}

// sessionBackend is the configured session store plus its housekeeping.
type sessionBackend struct {
	store session.Store
	sweep func(now time.Time) (int, error)
	close func() error
}

func openSessionBackend(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	switch cfg.SessionBackend {
	case "bolt":
		db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "sessions.db"))
		if err != nil {
			return nil, err
		}
		b := &sessionBackend{store: db, close: db.Close}
		if cfg.SessionIdleTTL > 0 {
			b.sweep = func(now time.Time) (int, error) { return db.Sweep(cfg.SessionIdleTTL, now) }
		}
		return b, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		// Expiry is left to redis.
		return &sessionBackend{store: store.NewRedisStore(client, cfg.SessionIdleTTL), close: client.Close}, nil

	default:
		mem := session.NewMemoryStore()
		b := &sessionBackend{store: mem, close: func() error { return nil }}
		if cfg.SessionIdleTTL > 0 {
			b.sweep = func(now time.Time) (int, error) { return mem.Sweep(cfg.SessionIdleTTL, now), nil }
		}
		return b, nil
	}
}
