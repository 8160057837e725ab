package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/support-relay/internal/api/http"
	"github.com/spec-kit/support-relay/internal/api/http/handlers"
	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/bot"
	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/observability"
	"github.com/spec-kit/support-relay/internal/persistence"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/service"
	"github.com/spec-kit/support-relay/internal/transport"
	"github.com/spec-kit/support-relay/internal/transport/wsgateway"
	"github.com/spec-kit/support-relay/internal/worker"
)

var migrationsDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the websocket gateway",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&migrationsDir, "migrations", persistence.DefaultMigrationsDir, "directory holding SQL migrations")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrationsDir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dir := directory.New(cfg.Directory)
	if len(dir.PrimaryAdmins()) == 0 {
		logger.Warn("no primary admins configured; submitted tickets will not be announced")
	}
	if len(dir.SecondaryAdmins()) == 0 {
		logger.Warn("no secondary admins configured; tickets cannot be delegated")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	store := repository.NewTicketStore()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	hub := wsgateway.NewHub(tokens.Authenticate, logger.Named("gateway"), wsgateway.Options{
		WriteTimeout:   cfg.Gateway.WriteTimeout(),
		QueueSize:      cfg.Gateway.OutboundQueueSize,
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
	})
	sender := transport.Instrument(hub, metrics)

	var history repository.TicketHistoryRepository
	if pg.Enabled() {
		history = repository.NewTicketHistoryRepository(pg.PoolHandle())
	} else {
		history = repository.NewMemoryTicketHistoryRepository()
	}
	var sink service.EventSink
	if redis.Enabled() {
		sink = redis
	}

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		History:    history,
		Sink:       sink,
		Config:     cfg.Notification,
	})
	worker.StartNotificationWorker(notifications, dispatcher, logger)

	concurrency := cfg.Bot.DeliveryConcurrency
	submissions := service.NewSubmissionService(service.SubmissionDependencies{
		Store:      store,
		Directory:  dir,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	delegation := service.NewDelegationService(service.DelegationDependencies{
		Store:       store,
		Directory:   dir,
		Sender:      sender,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Concurrency: concurrency,
	})
	conversation := service.NewConversationService(service.ConversationDependencies{
		Store:       store,
		Directory:   dir,
		Sender:      sender,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Concurrency: concurrency,
	})
	reporting := service.NewReportingService(store, dir)
	broadcast := service.NewBroadcastService(service.BroadcastDependencies{
		Directory:   dir,
		Sender:      sender,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Concurrency: concurrency,
	})
	authService := service.NewAuthService(cfg.Auth, tokens, dir, logger)

	chat := bot.NewHandler(bot.Dependencies{
		Directory:    dir,
		Submissions:  submissions,
		Delegation:   delegation,
		Conversation: conversation,
		Reporting:    reporting,
		Broadcast:    broadcast,
		Sender:       sender,
		Logger:       logger.Named("bot"),
		Categories:   cfg.Bot.Categories,
	})
	hub.SetHandler(chat)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Events:         handlers.NewEventsHandler(chat),
		Reports:        handlers.NewReportsHandler(reporting, history, logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, dir),
	})

	gateway := wsgateway.NewServer(cfg.Gateway.Addr(), hub)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http api listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("chat gateway listening", zap.String("addr", cfg.Gateway.Addr()))
		if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		waitForShutdown(groupCtx, logger)

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		hub.Close()
		gwErr := gateway.Shutdown(shutdownCtx)
		appErr := app.ShutdownWithContext(shutdownCtx)
		return errors.Join(gwErr, appErr)
	})

	return group.Wait()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(context.Cause(ctx)))
	}
}
