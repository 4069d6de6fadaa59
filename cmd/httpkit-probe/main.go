package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dvcrn/httpkit/internal/app"
	"github.com/dvcrn/httpkit/internal/config"
	"github.com/dvcrn/httpkit/internal/credentials"
	"github.com/dvcrn/httpkit/internal/logger"
	"github.com/dvcrn/httpkit/internal/request"
	"github.com/dvcrn/httpkit/internal/transport"
)

func main() {
	configPath := flag.String("config", "httpkit.yaml", "Path to YAML configuration file")
	baseURL := flag.String("base-url", "", "API base URL (overrides config)")
	credsPath := flag.String("creds-path", credentials.DefaultCredsPath(), "Path to credentials JSON file")
	useEnvCreds := flag.Bool("use-env-creds", false, "Read credentials from HTTPKIT_* environment variables")
	probePath := flag.String("path", "/health", "Request path to probe")
	flag.Parse()

	log := logger.New()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if cfg.BaseURL == "" {
		log.Fatal().Msg("No base URL configured, set -base-url or HTTPKIT_BASE_URL")
	}

	var store credentials.Store
	if *useEnvCreds {
		store = credentials.NewEnvStore()
		log.Info().Msg("📝 Using environment credentials")
	} else {
		store = credentials.NewFSStore(*credsPath)
		log.Info().Str("path", *credsPath).Msg("📄 Using filesystem credentials")
	}

	validateCredentialsAtStartup(store, log)

	client := app.NewClient(cfg, store, transport.NewHTTPTransport(), log)
	client.Start()
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec := request.NewSpec(http.MethodGet, cfg.BaseURL+*probePath)
	resp, err := client.Do(ctx, spec)
	if err != nil {
		log.Fatal().Err(err).Str("url", spec.URL).Msg("❌ Probe request failed")
	}

	log.Info().
		Int("status", resp.Status).
		Int("body_length", len(resp.Body)).
		Bool("no_content", resp.NoContent()).
		Msg("✅ Probe request succeeded")
}

func validateCredentialsAtStartup(store credentials.Store, log zerolog.Logger) {
	token, ok, err := store.Get(credentials.KeyAccessToken)
	if err != nil {
		log.Error().Err(err).Msg("⚠️  Failed to read credentials at startup")
		return
	}
	if !ok || token == "" {
		log.Warn().Msg("⚠️  No access token stored, requests start unauthenticated")
		return
	}

	log.Info().Int("token_length", len(token)).Msg("✅ Credentials loaded successfully")

	if _, ok, _ := store.Get(credentials.KeyRefreshToken); !ok {
		log.Warn().Msg("⚠️  No refresh token stored, a 401 cannot be recovered")
	}
}
