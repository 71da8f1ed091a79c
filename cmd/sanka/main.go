package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nakulbh/sanka/internal/config"
	"github.com/nakulbh/sanka/internal/deploy"
	"github.com/nakulbh/sanka/internal/dispatch"
	"github.com/nakulbh/sanka/internal/generate"
	"github.com/nakulbh/sanka/internal/githost"
	"github.com/nakulbh/sanka/internal/history"
	"github.com/nakulbh/sanka/internal/httpapi"
	"github.com/nakulbh/sanka/internal/observability"
	"github.com/nakulbh/sanka/internal/voice"
)

func main() {
	envFile := pflag.StringP("env", "e", ".env", "env file path")
	addr := pflag.StringP("addr", "a", "", "listen address override")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *addr != "" {
		cfg.BindAddr = *addr
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()

	generator := generate.New(generate.NewGroqCompleter(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GenerateModel))

	publisher := githost.Service{
		BaseURL:     cfg.GitHubAPIBaseURL,
		Branch:      cfg.DefaultBranch,
		RefAttempts: cfg.RefReadyAttempts,
		RefDelay:    cfg.RefReadyDelay,
	}

	deployer := deploy.Service{
		BaseURL:  cfg.VercelAPIBaseURL,
		Interval: cfg.DeployPollInterval,
		Timeout:  cfg.DeployTimeout,
		Observe:  func() { metrics.DeployPolls.Inc() },
	}

	var provider voice.Provider
	if cfg.SpeechAPIKey != "" {
		provider = voice.NewRemoteProvider(voice.RemoteConfig{
			APIKey:      cfg.SpeechAPIKey,
			WSBaseURL:   cfg.SpeechWSBaseURL,
			HTTPBaseURL: cfg.SpeechHTTPBaseURL,
			SampleRate:  cfg.SpeechSampleRate,
			Language:    cfg.SpeechLanguage,
		}, metrics)
		log.Printf("voice provider: remote")
	} else {
		provider = voice.NewMockProvider()
		log.Printf("voice provider: mock (SPEECH_API_KEY not set)")
	}

	dispatcher := dispatch.New(generator, publisher, deployer, store, metrics, cfg.DefaultBranch)

	api := httpapi.New(cfg, dispatcher, provider, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
