package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/overshare-io/overshare/internal/config"
	"github.com/overshare-io/overshare/internal/history"
	"github.com/overshare-io/overshare/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the overshare HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, "+config.DefaultListenAddr+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return fmt.Errorf("building analyzer: %w", err)
	}

	historyStore, err := history.NewStore(cfg.HistoryDBPath())
	if err != nil {
		return fmt.Errorf("initializing history: %w", err)
	}
	defer historyStore.Close()

	sweeper := history.NewSweeper(historyStore, cfg.HistoryRetentionDays)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("starting retention sweeper: %w", err)
	}
	defer sweeper.Stop()

	if cfg.APIKey == "" {
		log.Warn().Msg("OVERSHARE_API_KEY not set, the API is open. Set a key for shared deployments.")
	}

	srv := server.NewServer(analyzer,
		server.WithHistoryStore(historyStore),
		server.WithAPIKey(cfg.APIKey),
		server.WithRateLimiter(server.NewRateLimiter(cfg.RateLimitRPM*10, cfg.RateLimitRPM)),
		server.WithMaxPostChars(cfg.MaxPostChars),
		server.WithClassifierEnabled(cfg.ClassifierEnabled()),
		server.WithCORSOrigins([]string{"*"}),
	)

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Bool("classifier", cfg.ClassifierEnabled()).
		Bool("ner", cfg.NERBaseURL != "").
		Int("retention_days", cfg.HistoryRetentionDays).
		Msg("overshare_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
