package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/study-buddy/internal/config"
	"github.com/zhouzirui/study-buddy/internal/handler"
	"github.com/zhouzirui/study-buddy/internal/logging"
	"github.com/zhouzirui/study-buddy/internal/model/persona"
	"github.com/zhouzirui/study-buddy/internal/service/chat"
	"github.com/zhouzirui/study-buddy/internal/service/responder"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns every resource of the process; its deferred cleanup must finish before exit.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize logging")
		return err
	}
	defer closer.Close()
	log.Logger = logger

	if envErr != nil {
		logger.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	// Initialize persona store and session service
	personaStore := persona.NewMemoryStore(persona.Seed())
	client := responder.NewClient(cfg.Responder.Endpoint,
		responder.WithTimeout(cfg.Responder.Timeout),
		responder.WithLogger(logger),
	)
	chatService := chat.NewService(client, chat.WithLogger(logger))
	defer chatService.Close()

	logger.Info().
		Str("endpoint", client.Endpoint()).
		Dur("timeout", cfg.Responder.Timeout).
		Msg("responder configured")

	router := handler.NewRouter(personaStore, chatService, cfg.Server.FrontendURL, logger)

	return startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("study buddy backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Error().Err(err).Msg("server error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	}
}
