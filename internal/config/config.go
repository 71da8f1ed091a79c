package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the Sanka websocket service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowedOrigins []string
	AllowAnyOrigin bool

	GroqAPIKey    string
	GroqBaseURL   string
	GenerateModel string

	GitHubAPIBaseURL string
	DefaultBranch    string
	RefReadyAttempts int
	RefReadyDelay    time.Duration

	VercelAPIBaseURL   string
	DeployPollInterval time.Duration
	DeployTimeout      time.Duration

	SpeechAPIKey      string
	SpeechWSBaseURL   string
	SpeechHTTPBaseURL string
	SpeechSampleRate  int
	SpeechLanguage    string

	SilenceWindow    time.Duration
	RestartAfterTTS  time.Duration
	AutoReplyOnFinal bool
	TTSVoices        []string
	ReplyRecipient   string

	DatabaseURL  string
	HistoryLimit int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8081"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "sanka"),
		AllowedOrigins:   splitList(envOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		AllowAnyOrigin:   false,

		GroqAPIKey:    stringsTrimSpace("GROQ_API_KEY"),
		GroqBaseURL:   envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GenerateModel: envOrDefault("GENERATE_MODEL", "llama-3.3-70b-versatile"),

		GitHubAPIBaseURL: envOrDefault("GITHUB_API_BASE_URL", "https://api.github.com"),
		DefaultBranch:    envOrDefault("DEFAULT_BRANCH", "main"),
		RefReadyAttempts: 8,
		RefReadyDelay:    time.Second,

		VercelAPIBaseURL:   envOrDefault("VERCEL_API_BASE_URL", "https://api.vercel.com"),
		DeployPollInterval: 3 * time.Second,
		DeployTimeout:      2 * time.Minute,

		SpeechAPIKey:      stringsTrimSpace("SPEECH_API_KEY"),
		SpeechWSBaseURL:   envOrDefault("SPEECH_WS_BASE_URL", "wss://api.speechrelay.dev"),
		SpeechHTTPBaseURL: envOrDefault("SPEECH_HTTP_BASE_URL", "https://api.speechrelay.dev"),
		SpeechSampleRate:  16000,
		SpeechLanguage:    envOrDefault("SPEECH_LANGUAGE", "en-US"),

		SilenceWindow:   1500 * time.Millisecond,
		RestartAfterTTS: 500 * time.Millisecond,
		TTSVoices: splitList(envOrDefault("TTS_VOICES",
			"en-US-Chirp3-HD-Achernar,en-US-Wavenet-F,en-US-Wavenet-C")),
		ReplyRecipient: envOrDefault("USER_NAME", "friend"),

		DatabaseURL:  stringsTrimSpace("DATABASE_URL"),
		HistoryLimit: 50,

		ShutdownTimeout: 15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.RefReadyAttempts, err = intFromEnv("REF_READY_ATTEMPTS", cfg.RefReadyAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.RefReadyDelay, err = durationFromEnv("REF_READY_DELAY", cfg.RefReadyDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.DeployPollInterval, err = durationFromEnv("DEPLOY_POLL_INTERVAL", cfg.DeployPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.DeployTimeout, err = durationFromEnv("DEPLOY_TIMEOUT", cfg.DeployTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechSampleRate, err = intFromEnv("SPEECH_SAMPLE_RATE", cfg.SpeechSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceWindow, err = durationFromEnv("SILENCE_TIMEOUT", cfg.SilenceWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RestartAfterTTS, err = durationFromEnv("RESTART_STT_AFTER_TTS", cfg.RestartAfterTTS)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoReplyOnFinal, err = boolFromEnv("AUTO_TTS_ON_FINAL", cfg.AutoReplyOnFinal)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.RefReadyAttempts < 1 {
		return Config{}, fmt.Errorf("REF_READY_ATTEMPTS must be at least 1")
	}
	if cfg.RefReadyDelay <= 0 {
		return Config{}, fmt.Errorf("REF_READY_DELAY must be positive")
	}
	if cfg.DeployPollInterval <= 0 {
		return Config{}, fmt.Errorf("DEPLOY_POLL_INTERVAL must be positive")
	}
	if cfg.DeployTimeout < cfg.DeployPollInterval {
		return Config{}, fmt.Errorf("DEPLOY_TIMEOUT must be at least one poll interval")
	}
	if cfg.SpeechSampleRate <= 0 {
		return Config{}, fmt.Errorf("SPEECH_SAMPLE_RATE must be positive")
	}
	if cfg.SilenceWindow <= 0 {
		return Config{}, fmt.Errorf("SILENCE_TIMEOUT must be positive")
	}
	if len(cfg.TTSVoices) == 0 {
		return Config{}, fmt.Errorf("TTS_VOICES must list at least one voice")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
