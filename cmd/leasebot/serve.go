package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hopeland/leasebot/internal/admin"
	"github.com/hopeland/leasebot/internal/bot"
	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/config"
	"github.com/hopeland/leasebot/internal/digest"
	"github.com/hopeland/leasebot/internal/metrics"
	"github.com/hopeland/leasebot/internal/session"
	"github.com/hopeland/leasebot/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireWhatsApp(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	if dups := cat.Duplicates(); len(dups) > 0 {
		log.Warn().Strs("ids", dups).Msg("duplicate listing ids in catalog, first occurrence wins")
	}
	for _, c := range cat.Categories() {
		if len(c.Listings) > compose.MaxMenuRows {
			log.Warn().Str("category", c.Key).Int("listings", len(c.Listings)).Int("shown", compose.MaxMenuRows).
				Msg("category has more listings than a menu can show")
		}
	}

	sessions, err := openSessionBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessions.close()

	enquiries, err := openEnquiryLog(cfg)
	if err != nil {
		return err
	}
	defer enquiries.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	waClient := whatsapp.NewClient(cfg.WAAPIBase, cfg.WAPhoneNumberID, cfg.WAAccessToken)
	locks := session.NewLocker()

	botHandler := bot.NewHandler(bot.Deps{
		Catalog:  cat,
		Composer: compose.NewComposer(cat, cfg.Branding),
		Store:    sessions.store,
		Locks:    locks,
		Sender:   waClient,
		Resolver: whatsapp.NewMediaResolver(waClient, cfg.MediaDir, log),
		Recorder: enquiries,
		Metrics:  m,
		Logger:   log,
	}, bot.WithImageInterval(cfg.ImageInterval))

	digestSvc := newDigestService(cfg, enquiries, m, log)
	adminHandler := admin.NewHandler(cfg.Branding.Name, cfg.AdminToken, digestSvc, botHandler, enquiries, log)
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WAVerifyToken, func(ctx context.Context, ev bot.Event) {
		botHandler.HandleEvent(ctx, ev)
	}, log)

	go housekeeping(ctx, locks, sessions, log)

	if cfg.EnableDigest {
		go digest.NewScheduler(digestSvc, cfg.DigestInterval, log).Run(ctx)
	} else {
		log.Info().Msg("digest scheduler disabled (ENABLE_DIGEST!=1)")
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/whatsapp/webhook", webhookHandler.HandleVerify)
	r.Post("/whatsapp/webhook", webhookHandler.HandleIncoming)

	adminHandler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Int("listings", cat.Size()).Str("sessions", cfg.SessionBackend).Msg("listening")
		log.Info().Str("verify_token", cfg.WAVerifyToken).Msg("webhook verify token")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

// housekeeping drops stale per-subject locks and, when an idle TTL is set,
// evicts idle sessions.
func housekeeping(ctx context.Context, locks *session.Locker, sessions *sessionBackend, log zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := locks.Cleanup(time.Hour); n > 0 {
				log.Debug().Int("removed", n).Msg("cleaned up subject locks")
			}
			if sessions.sweep == nil {
				continue
			}
			n, err := sessions.sweep(now)
			if err != nil {
				log.Error().Err(err).Msg("sweeping idle sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("evicted", n).Msg("evicted idle sessions")
			}
		}
	}
}
