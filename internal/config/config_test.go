package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8081" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8081")
	}
	if cfg.DeployPollInterval != 3*time.Second {
		t.Fatalf("DeployPollInterval = %v, want 3s", cfg.DeployPollInterval)
	}
	if cfg.DeployTimeout != 2*time.Minute {
		t.Fatalf("DeployTimeout = %v, want 2m", cfg.DeployTimeout)
	}
	if cfg.SilenceWindow != 1500*time.Millisecond {
		t.Fatalf("SilenceWindow = %v, want 1.5s", cfg.SilenceWindow)
	}
	if cfg.RestartAfterTTS != 500*time.Millisecond {
		t.Fatalf("RestartAfterTTS = %v, want 500ms", cfg.RestartAfterTTS)
	}
	if cfg.RefReadyAttempts != 8 {
		t.Fatalf("RefReadyAttempts = %d, want 8", cfg.RefReadyAttempts)
	}
	if len(cfg.TTSVoices) != 3 {
		t.Fatalf("TTSVoices = %v, want 3 defaults", cfg.TTSVoices)
	}
	if cfg.AutoReplyOnFinal {
		t.Fatalf("AutoReplyOnFinal = true, want false by default")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins = %v, want localhost default", cfg.AllowedOrigins)
	}
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example , https://b.example,")
	t.Setenv("TTS_VOICES", "voice-one, voice-two")
	t.Setenv("SILENCE_TIMEOUT", "2s")
	t.Setenv("DEPLOY_TIMEOUT", "30s")
	t.Setenv("DEPLOY_POLL_INTERVAL", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v, want two trimmed entries", cfg.AllowedOrigins)
	}
	if len(cfg.TTSVoices) != 2 || cfg.TTSVoices[0] != "voice-one" {
		t.Fatalf("TTSVoices = %v, want two trimmed entries", cfg.TTSVoices)
	}
	if cfg.SilenceWindow != 2*time.Second {
		t.Fatalf("SilenceWindow = %v, want 2s", cfg.SilenceWindow)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero ref attempts", "REF_READY_ATTEMPTS", "0"},
		{"bad duration", "DEPLOY_POLL_INTERVAL", "later"},
		{"timeout below interval", "DEPLOY_TIMEOUT", "1s"},
		{"bad bool", "AUTO_TTS_ON_FINAL", "maybe"},
		{"empty voice list", "TTS_VOICES", " , "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q expected error", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"ALLOWED_ORIGINS",
		"GROQ_API_KEY",
		"GROQ_BASE_URL",
		"GENERATE_MODEL",
		"GITHUB_API_BASE_URL",
		"DEFAULT_BRANCH",
		"REF_READY_ATTEMPTS",
		"REF_READY_DELAY",
		"VERCEL_API_BASE_URL",
		"DEPLOY_POLL_INTERVAL",
		"DEPLOY_TIMEOUT",
		"SPEECH_API_KEY",
		"SPEECH_WS_BASE_URL",
		"SPEECH_HTTP_BASE_URL",
		"SPEECH_SAMPLE_RATE",
		"SPEECH_LANGUAGE",
		"SILENCE_TIMEOUT",
		"RESTART_STT_AFTER_TTS",
		"AUTO_TTS_ON_FINAL",
		"TTS_VOICES",
		"USER_NAME",
		"DATABASE_URL",
		"HISTORY_LIMIT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
