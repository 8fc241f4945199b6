// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-ai-translator/internal/config"
	"whatsapp-ai-translator/internal/domain/ports/adapter"
	aiAdapters "whatsapp-ai-translator/internal/infra/adapters/ai"
	"whatsapp-ai-translator/internal/infra/adapters/twilio"
	"whatsapp-ai-translator/internal/infra/adapters/whisper"
	"whatsapp-ai-translator/internal/infra/i18n"
	"whatsapp-ai-translator/internal/infra/logging"
	"whatsapp-ai-translator/internal/infra/memstore"
	"whatsapp-ai-translator/internal/infra/metrics"
	red "whatsapp-ai-translator/internal/infra/redis"
	"whatsapp-ai-translator/internal/infra/web"
	"whatsapp-ai-translator/internal/infra/worker"
	"whatsapp-ai-translator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop adapters, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- Conversation store ----
	store := memstore.NewConversationStore(cfg.Chat.SystemPrompt, cfg.Chat.HistoryCap)
	metrics.RegisterConversationGauges(func() (int, int) {
		st := store.Stats()
		return st.Conversations, st.Turns
	})

	// ---- AI adapter (GitHub Models -> Gemini -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	var provider string
	switch {
	case cfg.AI.GitHubToken != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.GitHubToken, cfg.AI.DefaultModel,
			cfg.AI.BaseURL, cfg.AI.Temperature, cfg.AI.MaxTokens, cfg.AI.RequestTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		provider = "github-models"
		logger.Info().Str("base", cfg.AI.BaseURL).Str("model", cfg.AI.DefaultModel).Msg("AI adapter: GitHub Models")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL,
			cfg.AI.DefaultModel, cfg.AI.Temperature, cfg.AI.MaxTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		provider = "gemini"
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAI()
		provider = "noop"
		logger.Warn().Msg("AI adapter: noop echo (dev)")
	default:
		logger.Fatal().Msg("no AI provider configured: set ai.github_token or ai.gemini_key")
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Messaging ----
	var msg adapter.MessagingAdapter
	if cfg.Twilio.AccountSID != "" {
		msg, err = twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		if err != nil {
			logger.Fatal().Err(err).Msg("twilio client")
		}
	} else {
		msg = twilio.NewNoopClient(logger)
		logger.Warn().Msg("messaging adapter: noop (dev)")
	}

	// ---- Voice transcription ----
	var stt adapter.Transcriber
	if cfg.Voice.Enabled {
		stt, err = whisper.New(cfg.Voice.WhisperBin, cfg.Voice.WhisperModel, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("whisper transcriber")
		}
		logger.Info().Str("bin", cfg.Voice.WhisperBin).Msg("voice transcription enabled")
	}

	// ---- Rate limiter (optional) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- Notices ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "es")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Use cases ----
	exchangeUC := usecase.NewExchangeUseCase(store, ai, msg, stt, tr,
		provider, cfg.AI.DefaultModel, cfg.AI.RequestTimeout, cfg.Chat.OverflowKeep, logger)
	statsUC := usecase.NewStatsUseCase(store, logger)

	// ---- Async delivery pool ----
	pool := worker.NewPool(cfg.Server.Workers, logger)
	pool.Start(ctx)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	srv := web.NewServer(exchangeUC, statsUC, msg, pool, limiter, auth, tr,
		web.RateLimit{Limit: cfg.Redis.RateLimit, Window: cfg.Redis.RateEvery},
		cfg.Server.AsyncReplies, cfg.Voice.Enabled, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("webhook listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	pool.Stop()
}
