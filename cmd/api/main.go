package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/DmytryS/user-actions-service/internal/api/http"
	"github.com/DmytryS/user-actions-service/internal/api/http/handlers"
	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/config"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/mailer"
	"github.com/DmytryS/user-actions-service/internal/observability"
	"github.com/DmytryS/user-actions-service/internal/persistence"
	"github.com/DmytryS/user-actions-service/internal/repository"
	"github.com/DmytryS/user-actions-service/internal/repository/memory"
	"github.com/DmytryS/user-actions-service/internal/service"
	"github.com/DmytryS/user-actions-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	users   repository.UserRepository
	actions repository.ActionRepository
	news    repository.NewsRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	repos := buildStores(pg)

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	renderer, err := mailer.NewRenderer(cfg.Mail.From, cfg.Mail.Language)
	if err != nil {
		logger.Fatal("failed to load mail templates", zap.Error(err))
	}
	sender := mailer.NewSender(cfg.Mail, logger)

	var notifier service.Notifier
	if cfg.Mail.Delivery == config.DeliveryQueue && redis.Available() {
		outbox := mailer.NewOutbox(redis.Client, cfg.Mail.QueueKey)
		notifier = mailer.NewQueueNotifier(outbox)
		mailWorker := worker.NewMailWorker(worker.MailWorkerConfig{
			Outbox:      outbox,
			Renderer:    renderer,
			Sender:      sender,
			MaxAttempts: cfg.Mail.MaxAttempts,
			PollTimeout: cfg.Mail.PollTimeout(),
			Logger:      logger,
		})
		go mailWorker.Run(ctx)
	} else {
		if cfg.Mail.Delivery == config.DeliveryQueue {
			logger.Warn("redis unavailable; delivering mail directly")
		}
		notifier = mailer.NewDirectNotifier(renderer, sender)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authenticator := auth.NewAuthenticator(repos.users, tokens)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:      repos.users,
		ActionRepo:    repos.actions,
		Authenticator: authenticator,
		Notifier:      notifier,
		Dispatcher:    dispatcher,
		UIURL:         cfg.App.UIURL,
		Logger:        logger,
	})
	actionService := service.NewActionService(service.ActionDependencies{
		ActionRepo: repos.actions,
		UserRepo:   repos.users,
		Dispatcher: dispatcher,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	newsService := service.NewNewsService(service.NewsDependencies{
		NewsRepo:   repos.news,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(userService),
		Actions:        handlers.NewActionsHandler(actionService),
		News:           handlers.NewNewsHandler(newsService),
		AuthMiddleware: auth.NewAuthMiddleware(authenticator),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func buildStores(pg *persistence.Postgres) stores {
	if !pg.Enabled() {
		mem := memory.NewStore()
		return stores{users: mem.Users(), actions: mem.Actions(), news: mem.News()}
	}
	pool := pg.PoolHandle()
	return stores{
		users:   repository.NewUserRepository(pool),
		actions: repository.NewActionRepository(pool),
		news:    repository.NewNewsRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
