package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopnobari/checkout-service/internal/auth"
	"github.com/shopnobari/checkout-service/internal/checkout"
	"github.com/shopnobari/checkout-service/internal/config"
	"github.com/shopnobari/checkout-service/internal/db"
	"github.com/shopnobari/checkout-service/internal/mailer"
	"github.com/shopnobari/checkout-service/internal/ratelimit"
	"github.com/shopnobari/checkout-service/internal/transport"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "checkout-service").Logger()

	log.Info().Msg("Checkout service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Limit)
	defer limiter.Stop()

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	mail := mailer.NewClient(cfg.Mail.APIBaseURL, cfg.Mail.APIKey, mailer.Sender{
		Name:  cfg.Mail.SenderName,
		Email: cfg.Mail.SenderEmail,
	})

	repo := checkout.NewRepository(dbConn.Pool)
	svc := checkout.NewService(repo, limiter, verifier, mail)
	router := transport.NewRouter(svc)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
