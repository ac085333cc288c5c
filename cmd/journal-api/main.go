package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-journal/config"
	"voice-journal/internal/application"
	"voice-journal/internal/infra/anthropic"
	"voice-journal/internal/infra/ffmpeg"
	"voice-journal/internal/infra/gemini"
	"voice-journal/internal/infra/groq"
	"voice-journal/internal/infra/homeassistant"
	"voice-journal/internal/infra/httpapi"
	"voice-journal/internal/infra/memory"
	"voice-journal/internal/infra/postgres"
	"voice-journal/internal/infra/pushover"
	"voice-journal/internal/infra/stripe"
	"voice-journal/internal/infra/supabase"
	"voice-journal/internal/infra/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	thoughts, profiles, err := createStores(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("connecting to database", "error", err)
		os.Exit(1)
	}

	providers, health := createProviders(cfg, logger)
	hub := ws.NewHub(cfg.Server.CORSOrigins, logger)

	journal := application.NewJournal(providers, thoughts, profiles, hub, application.JournalConfig{
		TranscribeTimeout: cfg.Timeouts.Transcribe,
		CleanTimeout:      cfg.Timeouts.Clean,
		TagTimeout:        cfg.Timeouts.Tags,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes(),
	}, logger)

	notifier := createNotifier(cfg)

	var payments application.PaymentProvider
	if cfg.Stripe.Enabled() {
		payments = stripe.NewClient(stripe.Config{
			SecretKey:       cfg.Stripe.SecretKey,
			WebhookSecret:   cfg.Stripe.WebhookSecret,
			Prices:          cfg.Stripe.Prices.ByTier(),
			SuccessURL:      cfg.Stripe.SuccessURL,
			CancelURL:       cfg.Stripe.CancelURL,
			PortalReturnURL: cfg.Stripe.PortalReturnURL,
		})
	}
	health["billing"] = payments != nil

	var identity application.IdentityAdmin
	if admin := supabase.NewAdminClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey); admin.Configured() {
		identity = admin
	} else {
		logger.Warn("supabase admin not configured, account deletion keeps auth users")
	}

	verifier := supabase.NewVerifier(cfg.Supabase.JWTSecret)
	health["auth"] = verifier.Configured()
	health["database"] = cfg.Database.URL != ""

	server := httpapi.New(httpapi.Deps{
		Journal:   journal,
		Billing:   application.NewBilling(payments, profiles, notifier, hub, logger),
		Accounts:  application.NewAccounts(payments, thoughts, profiles, identity, logger),
		Auth:      verifier,
		Events:    hub,
		Providers: health,
	}, httpapi.Config{
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("starting voice journal api", "addr", cfg.Server.Addr, "providers", health)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func createStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (application.ThoughtStore, application.ProfileStore, error) {
	if cfg.URL == "" {
		logger.Warn("no database url, using in-memory store")
		return memory.NewThoughtStore(), memory.NewProfileStore(), nil
	}

	db, err := postgres.Connect(ctx, cfg.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewThoughtRepository(db), postgres.NewProfileRepository(db), nil
}

// createProviders wires the pipeline providers. Missing keys leave the
// journal's no-op defaults in place so the endpoints degrade.
func createProviders(cfg *config.Config, logger *slog.Logger) (application.Providers, map[string]bool) {
	var p application.Providers
	health := map[string]bool{}

	if cfg.Groq.APIKey != "" {
		p.STT = groq.NewWhisperClientWithURL(cfg.Groq.APIKey, cfg.Groq.WhisperModel, cfg.Groq.Language, cfg.Groq.BaseURL)
		p.Tagger = groq.NewTagClientWithURL(cfg.Groq.APIKey, cfg.Groq.TagModel, cfg.Groq.BaseURL)
	} else {
		logger.Warn("groq api key missing, transcription and tagging disabled")
	}
	health["transcription"] = p.STT != nil
	health["tagging"] = p.Tagger != nil

	switch cfg.Cleaner.Provider {
	case "anthropic":
		if cfg.Anthropic.APIKey != "" {
			p.Cleaner = anthropic.NewCleaner(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
		}
	default:
		if cfg.Gemini.APIKey != "" {
			p.Cleaner = gemini.NewCleaner(cfg.Gemini.APIKey, cfg.Gemini.Model)
		}
	}
	if p.Cleaner == nil {
		logger.Warn("cleaner not configured, text is returned unchanged", "provider", cfg.Cleaner.Provider)
	}
	health["cleaning"] = p.Cleaner != nil

	if cfg.FFmpeg.IsEnabled() {
		converter := ffmpeg.NewConverter(cfg.FFmpeg.Path)
		if converter.Available() {
			p.Converter = converter
		} else {
			logger.Warn("ffmpeg not found, audio is sent as uploaded", "path", cfg.FFmpeg.Path)
		}
	}
	health["ffmpeg"] = p.Converter != nil

	return p, health
}

func createNotifier(cfg *config.Config) application.Notifier {
	var notifiers application.Notifiers
	if cfg.Pushover.Enabled {
		notifiers = append(notifiers, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}
	if ha := homeassistant.NewNotifier(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.NotifyService); ha.Configured() {
		notifiers = append(notifiers, ha)
	}
	if len(notifiers) == 0 {
		return &application.NoopNotifier{}
	}
	return notifiers
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
