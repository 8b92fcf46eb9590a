// Command server starts the legal-assistant lead bot HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solislegal/leadbot/internal/adapter/ai"
	"github.com/solislegal/leadbot/internal/adapter/ai/gemini"
	"github.com/solislegal/leadbot/internal/adapter/ai/openai"
	"github.com/solislegal/leadbot/internal/adapter/httpserver"
	"github.com/solislegal/leadbot/internal/adapter/observability"
	"github.com/solislegal/leadbot/internal/adapter/repo/sheets"
	"github.com/solislegal/leadbot/internal/adapter/telegram"
	"github.com/solislegal/leadbot/internal/app"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/service/admission"
	"github.com/solislegal/leadbot/internal/service/faultboundary"
	"github.com/solislegal/leadbot/internal/service/quota"
	"github.com/solislegal/leadbot/internal/service/templates"
	"github.com/solislegal/leadbot/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Providers in the configured fail-over order.
	providers := buildProviders(cfg)
	if len(providers) == 0 {
		slog.Error("no AI provider configured")
		os.Exit(1)
	}
	initial, maxInterval, factor := cfg.AIBackoffConfig()
	orchestrator := ai.NewOrchestrator(providers, ai.RetryPolicy{
		MaxAttempts:     cfg.AIMaxRetries,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
		Multiplier:      factor,
	})

	// Redis is optional: without it the daily quota is simply not enforced.
	var rdb *redis.Client
	var redisCheck func(context.Context) error
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		defer func() { _ = rdb.Close() }()
	}
	limiter := quota.NewRedisLimiter(rdb, cfg.AIDailyLimit)

	texts, err := templates.New(cfg.TemplatesPath)
	if err != nil {
		slog.Error("reply templates load failed", slog.Any("error", err))
		os.Exit(1)
	}

	bot := telegram.New(cfg)
	repo := sheets.New(cfg)

	if cfg.WebhookURL != "" {
		regCtx, regCancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := bot.SetWebhook(regCtx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			slog.Error("webhook registration failed", slog.Any("error", err))
		} else {
			slog.Info("webhook registered", slog.String("url", cfg.WebhookURL))
		}
		regCancel()
	}

	gate := admission.New(admission.Config{
		MinInterval:    cfg.ThrottleMinInterval,
		FloodThreshold: cfg.FloodThreshold,
		BanDuration:    cfg.FloodBanDuration,
		ScoreDecay:     cfg.FloodScoreDecay,
		OperatorID:     cfg.OperatorChatID,
	})
	boundary := faultboundary.New(bot, bot, nil, texts.Text("reassurance", templates.DefaultLang))

	docs := usecase.DocumentsService{Dir: cfg.DocumentsDir}
	dispatcher := &usecase.Dispatcher{
		Gate:      gate,
		Boundary:  boundary,
		Messenger: bot,
		Texts:     texts,
		Consult: usecase.ConsultService{
			AI:          orchestrator,
			Quota:       quotaOrNil(limiter),
			Repo:        repo,
			Texts:       texts,
			Primary:     primaryProvider(cfg),
			Instruction: "You are a legal assistant for a law firm. Answer briefly and practically. Recommend a consultation with a lawyer for case-specific advice.",
			MaxTokens:   cfg.AIMaxOutputTokens,
			Temperature: cfg.AITemperature,
			OperatorID:  cfg.OperatorChatID,
		},
		Leads:     usecase.NewLeadService(repo, bot, texts),
		Documents: docs,
	}

	srv := httpserver.NewServer(cfg, dispatcher, docs, orchestrator, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

func buildProviders(cfg config.Config) []domain.AIProvider {
	var out []domain.AIProvider
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey != "" {
				out = append(out, openai.New(cfg))
			}
		case "gemini":
			if cfg.GeminiAPIKey != "" {
				out = append(out, gemini.New(cfg))
			}
		default:
			slog.Warn("unknown provider in PROVIDER_ORDER", slog.String("provider", name))
		}
	}
	return out
}

func primaryProvider(cfg config.Config) string {
	if len(cfg.ProviderOrder) > 0 {
		return cfg.ProviderOrder[0]
	}
	return "openai"
}

// quotaOrNil keeps a typed-nil limiter out of the interface so the consult
// flow's nil check stays meaningful.
func quotaOrNil(l *quota.RedisLimiter) quota.Limiter {
	if l == nil {
		return nil
	}
	return l
}
