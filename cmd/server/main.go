package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fiercfly/proteinHunt/internal/ai"
	"github.com/fiercfly/proteinHunt/internal/api"
	"github.com/fiercfly/proteinHunt/internal/config"
	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/notifier"
	"github.com/fiercfly/proteinHunt/internal/processor"
	"github.com/fiercfly/proteinHunt/internal/retention"
	"github.com/fiercfly/proteinHunt/internal/scheduler"
	"github.com/fiercfly/proteinHunt/internal/scraper"
	"github.com/fiercfly/proteinHunt/internal/storage"
)

const (
	jobRedditPoll   = "reddit-poll"
	jobTelegramPoll = "telegram-poll"
	jobSweep        = "retention-sweep"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Starting protein deals server...")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Connect(ctx, cfg.ProjectID, logger)
	if err != nil {
		slog.Error("Critical error initializing Firestore client", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	extractor := ai.NewExtractor(newGenerator(ctx, cfg), ai.Options{
		BatchSize:      cfg.ExtractBatchSize,
		MaxChars:       cfg.ExtractMaxChars,
		Timeout:        cfg.LLMTimeout,
		CallsPerMinute: cfg.LLMCallsPerMinute,
		Burst:          cfg.LLMBurst,
	}, logger)

	selectors := scraper.LoadConfig(cfg.SelectorsConfigPath)
	reddit := scraper.NewRedditPoller(scraper.RedditOptions{
		Subreddits:   cfg.RedditSubreddits,
		UserAgent:    cfg.RedditUserAgent,
		Timeout:      cfg.FetchTimeout,
		RawTextLimit: cfg.RawTextLimit,
	}, scraper.NewSeenSet(), logger)
	telegram := scraper.NewTelegramPoller(scraper.TelegramOptions{
		Channels:     cfg.TelegramChannels,
		UserAgent:    cfg.RedditUserAgent,
		Timeout:      cfg.FetchTimeout,
		RawTextLimit: cfg.RawTextLimit,
		Selectors:    selectors,
	}, scraper.NewSeenSet(), logger)

	writer := processor.NewWriter(store, cfg.DedupeWindow, logger)
	var announcer processor.DealNotifier
	if discord := notifier.New(cfg.DiscordWebhookURL, logger); discord.Enabled() {
		announcer = discord
	}
	pipeline := processor.NewPipeline(extractor, writer, announcer, logger)
	sweeper := retention.NewSweeper(store, cfg.RetentionMaxAge, logger)

	var locker scheduler.Locker
	if cfg.RedisAddr != "" {
		client, err := scheduler.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("Redis unavailable, running without job locks", "error", err)
		} else {
			defer client.Close()
			locker = scheduler.NewRedisLocker(client, "proteinhunt:job:")
		}
	}

	sched := scheduler.New(locker, logger)
	jobs := []scheduler.Job{
		{
			Name:     jobRedditPoll,
			Interval: cfg.RedditPollInterval,
			Timeout:  4 * time.Minute,
			Run:      pollJob(pipeline, reddit),
		},
		{
			Name:     jobTelegramPoll,
			Interval: cfg.TelegramPollInterval,
			Timeout:  4 * time.Minute,
			Run:      pollJob(pipeline, telegram),
		},
		{
			Name:     jobSweep,
			Interval: cfg.SweepInterval,
			Timeout:  10 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := sweeper.Sweep(ctx)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Start(ctx, job); err != nil {
			slog.Error("Failed to schedule job", "job", job.Name, "error", err)
			os.Exit(1)
		}
	}

	handler := api.NewHandler(store, writer, sched, api.Options{
		ScraperSecret: cfg.ScraperSecret,
		PollJobs:      []string{jobRedditPoll, jobTelegramPoll},
	}, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Received signal, shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}

	slog.Info("Waiting for in-flight jobs...")
	sched.Wait()
	slog.Info("Server stopped.")
}

func pollJob(p *processor.Pipeline, poller scraper.Poller) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := p.RunCycle(ctx, poller)
		return err
	}
}

// newGenerator returns the configured model client, or nil when extraction
// should run on heuristics alone.
func newGenerator(ctx context.Context, cfg *config.Config) ai.Generator {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			slog.Warn("LLM_PROVIDER is groq but GROQ_API_KEY is empty, using heuristics")
			return nil
		}
		return ai.NewChatGenerator(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.LLMTimeout)
	case config.ProviderGemini:
		gen, err := ai.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Warn("Gemini client unavailable, using heuristics", "error", err)
			return nil
		}
		return gen
	}
	return nil
}
