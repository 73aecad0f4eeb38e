package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guizzs26/suya-queue/internal/api"
	"github.com/Guizzs26/suya-queue/internal/broker"
	"github.com/Guizzs26/suya-queue/internal/config"
	"github.com/Guizzs26/suya-queue/internal/engine"
	"github.com/Guizzs26/suya-queue/internal/feed"
	"github.com/Guizzs26/suya-queue/internal/form"
	"github.com/Guizzs26/suya-queue/internal/store"
	"github.com/Guizzs26/suya-queue/pkg/infra"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation engine and the HTTP API",
		Long: `Run the reconciliation engine and the HTTP API.

Configuration comes from the environment (or a .env file): SHEETS_URL is required,
FORM_URL enables registrations, DATABASE_URL / REDIS_URL / RABBITMQ_URL enable the
Postgres device store, the Redis session store and event publishing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.HTTPPort = port
			}
			if err := runServe(cmd.Context(), cfg); err != nil {
				_ = rootOpts.formatter(cmd).Error("E_SERVE", err.Error())
				return WrapExitError(ExitCommandError, "serve failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides HTTP_PORT)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)
	defer infra.CloseLogger()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("Fatal error during startup", "error", err)
		return err
	}
	defer b.Close()

	task := b.engine.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(b.engine, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("🚀 Queue board started", "port", cfg.HTTPPort, "session_id", cfg.SessionID, "pid", os.Getpid())

	select {
	case <-ctx.Done():
		logger.Info("👋 Shutting down...")
	case err := <-serveErr:
		logger.Error("HTTP server failed", "error", err)
		stop()
		task.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful HTTP shutdown failed", "error", err)
	}
	task.Stop()

	logger.Info("✅ Shutdown complete")
	return nil
}

// board is the wired engine plus everything that must be closed with it
type board struct {
	engine  *engine.Engine
	closers []func()
}

func (b *board) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *board, err error) {
	b := &board{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	sheet, err := feed.ParseSheetURL(cfg.SheetsURL)
	if err != nil {
		return nil, fmt.Errorf("SHEETS_URL: %w", err)
	}

	order, err := feed.ParseDateOrder(cfg.SheetDateOrder)
	if err != nil {
		return nil, fmt.Errorf("SHEET_DATE_ORDER: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	source := feed.NewHTTPSource(httpClient, sheet.ID, feed.DefaultExportBase, logger)

	deps := engine.Deps{
		Feed:   feed.NewAdapter(source, sheet.GID, feed.TimestampFormat{Location: cfg.Location(), Order: order}, logger),
		Status: feed.NewStatusReader(source, cfg.StatusGID, cfg.StatusResponsesGID, logger),
	}

	if cfg.FormURL != "" {
		sub, err := form.NewSubmitter(httpClient, cfg.FormURL, form.DefaultFormBase, form.Fields{
			Name:    cfg.FormEntryName,
			Spice:   cfg.FormEntrySpice,
			Portion: cfg.FormEntryPortion,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("FORM_URL: %w", err)
		}
		deps.Submitter = sub
	} else {
		logger.Warn("FORM_URL not set, registrations are disabled")
	}

	if cfg.StatusFormURL != "" && cfg.StatusFormEntry != "" {
		w, err := form.NewStatusWriter(httpClient, cfg.StatusFormURL, form.DefaultFormBase, cfg.StatusFormEntry, logger)
		if err != nil {
			return nil, fmt.Errorf("STATUS_FORM_URL: %w", err)
		}
		deps.StatusWriter = w
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresDeviceStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("device store: %w", err)
		}
		b.closers = append(b.closers, pg.Close)
		deps.Device = pg
	} else {
		logger.Info("DATABASE_URL not set, serving value is kept in memory")
		deps.Device = store.NewMemoryDeviceStore()
	}

	if cfg.RedisURL != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		deps.Session = store.NewRedisSessionStore(rdb, cfg.SessionID, cfg.SessionTTL)
	} else {
		deps.Session = store.NewMemorySessionStore()
	}

	if cfg.RabbitMQURL != "" {
		pub := broker.NewPublisher(cfg.RabbitMQURL, logger)
		b.closers = append(b.closers, func() { _ = pub.Close() })
		deps.Notifiers = append(deps.Notifiers, pub)
	}

	b.engine, err = engine.New(ctx, deps, engineOptions(cfg), logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		FeedInterval:    cfg.FeedPollInterval,
		ServingInterval: cfg.ServingPollInterval,
		FetchTimeout:    cfg.FetchTimeout,
		MatchTimeout:    cfg.MatchTimeout,
		Window:          engine.MatchWindow{Lookback: cfg.MatchLookback, Slack: cfg.MatchSlack},
		RebaseGrace:     cfg.RebaseGrace,
	}
}
