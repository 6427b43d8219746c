package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/config"
	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/infra/cache"
	"github.com/xavierca1/realty-leads/internal/infra/database"
	"github.com/xavierca1/realty-leads/internal/infra/http/handlers"
	"github.com/xavierca1/realty-leads/internal/infra/http/middleware"
	"github.com/xavierca1/realty-leads/internal/infra/logging"
	"github.com/xavierca1/realty-leads/internal/infra/mail"
	"github.com/xavierca1/realty-leads/internal/infra/queue"
	"github.com/xavierca1/realty-leads/internal/infra/webhook"
	"github.com/xavierca1/realty-leads/internal/infra/worker"
	"github.com/xavierca1/realty-leads/internal/notify"
	"github.com/xavierca1/realty-leads/internal/spam"
	"github.com/xavierca1/realty-leads/internal/usecase"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("💥 server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Infra
	db, err := database.NewDBConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		redisCache  *cache.Cache
		redisHealth handlers.CachePinger
	)
	if cfg.Redis.Enabled {
		client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		defer client.Close()
		redisCache = cache.New(client)
		redisHealth = redisCache
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("⚠️ redis unreachable at startup, continuing without it until it recovers", zap.Error(err))
		}
	}

	// 2. Repositórios
	leadRepo := database.NewLeadRepository(db)
	spamLogRepo := database.NewSpamLogRepository(db)
	var listings entity.ListingResolver = database.NewListingRepository(db, cfg.Intake.SiteURL)
	var owners entity.OwnerDirectory = database.NewOwnerRepository(db)
	if redisCache != nil {
		listings = &cache.ListingResolver{Source: listings, Cache: redisCache, TTL: cfg.Redis.ListingTTL, Logger: logger}
		owners = &cache.OwnerDirectory{Source: owners, Cache: redisCache, TTL: cfg.Redis.ListingTTL, Logger: logger}
	}

	// 3. Regras de spam
	rules, err := spam.LoadRules(cfg.Spam.RulesPath)
	if err != nil {
		return err
	}
	scorer, err := spam.NewScorer(rules)
	if err != nil {
		return err
	}
	logger.Info("🛡️ spam rules loaded", zap.Int("version", rules.Version), zap.String("path", cfg.Spam.RulesPath))

	// 4. Notificações
	locales, err := notify.NewLocalizer(cfg.Intake.SupportedLanguages, cfg.Intake.DefaultLanguage)
	if err != nil {
		return err
	}
	fanout := &notify.Fanout{
		Listings: listings,
		Owners:   owners,
		Locales:  locales,
		Settings: notify.Settings{
			DefaultRecipient: cfg.Mail.DefaultRecipient,
			CopyRecipient:    cfg.Mail.CopyRecipient,
			WebhookURL:       cfg.Webhook.URL,
		},
		Logger: logger,
		Observe: func(ch notify.Channel, outcome notify.Outcome) {
			middleware.RecordNotification(string(ch), string(outcome))
		},
	}
	if cfg.Mail.Enabled() {
		fanout.Mailer = mail.NewEmailSender(cfg.Mail)
	} else {
		logger.Warn("⚠️ MAIL_HOST not set, email notifications are skipped")
	}
	if cfg.Webhook.URL != "" {
		fanout.Webhook = webhook.NewClient(cfg.Webhook.Timeout, cfg.Webhook.Secret)
	}

	var (
		dispatcher   notify.Dispatcher
		drain        func(context.Context) error
		brokerHealth handlers.BrokerHealth
	)
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		brokerHealth = rabbitMQ

		consumer := queue.NewWorker(rabbitMQ.Ch, fanout, cfg.Intake.NotificationTimeout, logger)
		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := consumer.Start(ctx, queue.QueueName); err != nil {
				logger.Error("❌ notification worker stopped", zap.Error(err))
			}
		}()

		dispatcher = queue.NewProducer(rabbitMQ.Ch)
		drain = func(ctx context.Context) error {
			select {
			case <-workerDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	} else {
		async := notify.NewAsyncDispatcher(fanout, cfg.Intake.NotificationTimeout, logger)
		dispatcher = async
		drain = async.Shutdown
	}

	// 5. UseCases
	captureUC := &usecase.CaptureLeadUseCase{
		Repo:     leadRepo,
		Listings: listings,
		SpamLog:  spamLogRepo,
		Scorer:   scorer,
		Guard:    usecase.NewDuplicateGuard(leadRepo, cfg.Intake.ListingDuplicateWindow, cfg.Intake.SellerDuplicateWindow),
		Policy: usecase.IntakePolicy{
			DiscardSilently: cfg.Intake.DiscardSilently,
			SpamLogEnabled:  cfg.Intake.SpamLogEnabled,
		},
		Logger: logger,
	}
	manageUC := &usecase.ManageLeadUseCase{Repo: leadRepo, Owners: owners, Logger: logger}

	// 6. Workers
	if cfg.Intake.SpamLogEnabled {
		go worker.NewSpamLogRetentionWorker(spamLogRepo, cfg.Intake.SpamLogRetention, logger).Start(ctx)
	}

	var limiter middleware.Limiter
	if redisCache != nil {
		limiter = &middleware.RedisLimiter{
			Cache:  redisCache,
			Limit:  cfg.HTTP.RateLimit,
			Window: cfg.HTTP.RateWindow,
			Block:  cfg.HTTP.RateWindow,
		}
	} else {
		memLimiter := middleware.NewMemoryLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		go memLimiter.Cleanup(ctx, 10*time.Minute)
		limiter = memLimiter
	}

	// 7. Handlers + Router
	router := handlers.NewRouter(
		handlers.RouterConfig{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			AdminToken:     cfg.Admin.APIToken,
			Limiter:        limiter,
			TrustedProxies: cfg.HTTP.TrustedProxies,
			RetryAfter:     cfg.HTTP.RateWindow,
			Logger:         logger,
		},
		handlers.NewLeadHandler(captureUC, dispatcher, logger),
		handlers.NewAdminLeadHandler(manageUC, logger),
		handlers.NewHealthHandler(db, brokerHealth, redisHealth, version),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🔥 lead intake server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("⚠️ shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ http shutdown", zap.Error(err))
	}
	if err := drain(shutdownCtx); err != nil {
		logger.Error("❌ notifications still in flight at shutdown", zap.Error(err))
	}
	logger.Info("👋 bye")
	return nil
}
