package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderNone   = "none"
)

type Config struct {
	ProjectID     string
	Port          string
	ScraperSecret string

	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	GroqAPIKey        string
	GroqModel         string
	GroqBaseURL       string
	LLMTimeout        time.Duration
	LLMCallsPerMinute float64
	LLMBurst          int
	ExtractBatchSize  int
	ExtractMaxChars   int
	RawTextLimit      int

	RedditSubreddits     []string
	RedditPollInterval   time.Duration
	RedditUserAgent      string
	TelegramChannels     []string
	TelegramPollInterval time.Duration
	FetchTimeout         time.Duration
	SelectorsConfigPath  string

	DedupeWindow      time.Duration
	RetentionMaxAge   time.Duration
	SweepInterval     time.Duration
	DiscordWebhookURL string
	RedisAddr         string
}

func Load() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	scraperSecret := os.Getenv("SCRAPER_SECRET")
	if scraperSecret == "" {
		slog.Warn("SCRAPER_SECRET not set, bulk ingestion requests will be rejected")
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Info("DISCORD_WEBHOOK_URL not set, Discord announcements will be skipped")
	}

	cfg := &Config{
		ProjectID:           projectID,
		Port:                port,
		ScraperSecret:       scraperSecret,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envString("GEMINI_MODEL", "gemini-2.5-flash"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		GroqModel:           envString("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:         envString("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		RedditSubreddits:    envList("REDDIT_SUBREDDITS", "protein_deals"),
		RedditUserAgent:     envString("REDDIT_USER_AGENT", "BestDeals/1.0 (deals aggregator; contact via github)"),
		TelegramChannels:    envList("TELEGRAM_CHANNELS", "protein_deals1"),
		SelectorsConfigPath: envString("SELECTORS_CONFIG_PATH", "config/selectors.json"),
		DiscordWebhookURL:   discordWebhookURL,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
	}

	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	switch provider {
	case "":
		switch {
		case cfg.GroqAPIKey != "":
			provider = ProviderGroq
		case cfg.GeminiAPIKey != "":
			provider = ProviderGemini
		default:
			provider = ProviderNone
			slog.Warn("No LLM API key set, extraction will use heuristics only")
		}
	case ProviderGemini, ProviderGroq, ProviderNone:
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER %q: want gemini, groq or none", provider)
	}
	cfg.LLMProvider = provider

	var err error
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"LLM_TIMEOUT", "30s", &cfg.LLMTimeout},
		{"REDDIT_POLL_INTERVAL", "10m", &cfg.RedditPollInterval},
		{"TELEGRAM_POLL_INTERVAL", "10m", &cfg.TelegramPollInterval},
		{"FETCH_TIMEOUT", "10s", &cfg.FetchTimeout},
		{"DEDUPE_WINDOW", "24h", &cfg.DedupeWindow},
		{"RETENTION_MAX_AGE", "240h", &cfg.RetentionMaxAge},
		{"SWEEP_INTERVAL", "6h", &cfg.SweepInterval},
	}
	for _, d := range durations {
		if *d.dest, err = envDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"LLM_BURST", 3, &cfg.LLMBurst},
		{"EXTRACT_BATCH_SIZE", 20, &cfg.ExtractBatchSize},
		{"EXTRACT_MAX_CHARS", 400, &cfg.ExtractMaxChars},
		{"RAW_TEXT_LIMIT", 600, &cfg.RawTextLimit},
	}
	for _, i := range ints {
		if *i.dest, err = envInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	if cfg.LLMCallsPerMinute, err = envFloat("LLM_CALLS_PER_MINUTE", 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envList(key, def string) []string {
	var out []string
	for _, part := range strings.Split(envString(key, def), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key, def string) (time.Duration, error) {
	v := envString(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return parsed, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return parsed, nil
}
