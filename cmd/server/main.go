package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/agent"
	"github.com/Addisu87/bank-support-agent/internal/command"
	"github.com/Addisu87/bank-support-agent/internal/config"
	"github.com/Addisu87/bank-support-agent/internal/database"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/handler"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/notify"
	"github.com/Addisu87/bank-support-agent/internal/query"
	redisClient "github.com/Addisu87/bank-support-agent/internal/redis"
	"github.com/Addisu87/bank-support-agent/internal/repository"
	"github.com/Addisu87/bank-support-agent/internal/scheduler"
	"github.com/Addisu87/bank-support-agent/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	logger, err := logging.NewLoggerFromEnv()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection (write store)
	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Redis connection (read model cache + event streaming)
	redis, err := redisClient.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector(cfg.MetricsNamespace)
	if err := collector.Register(registry); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	tokens, err := middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		logger.Fatal("failed to create token manager", zap.Error(err))
	}

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)
	txManager := database.NewTxManager(db)
	ttl := cfg.CacheTTL()

	userWrites := repository.NewUserWriteRepository(db)
	userReads := repository.NewUserReadRepository(db, redis.Client, ttl, collector)
	accountWrites := repository.NewAccountWriteRepository(db)
	accountReads := repository.NewAccountReadRepository(db, redis.Client, ttl, collector)
	banks := repository.NewBankRepository(db, redis.Client, ttl, collector)
	cards := repository.NewCardRepository(db, redis.Client, ttl, collector)
	txWrites := repository.NewTransactionWriteRepository(db)
	txReads := repository.NewTransactionReadRepository(db, redis.Client, ttl, collector)

	userCommands := command.NewUserCommandService(userWrites, userReads, accountWrites, publisher)
	bankCommands := command.NewBankCommandService(banks)
	accountCommands := command.NewAccountCommandService(accountWrites, banks, accountReads, publisher)
	cardCommands := command.NewCardCommandService(cards, accountWrites, publisher)
	ledger := command.NewTransactionCommandService(txManager, accountWrites, txWrites, accountReads, txReads, publisher, collector)

	authQueries := query.NewAuthQueryService(userWrites, tokens)
	userQueries := query.NewUserQueryService(userReads)
	bankQueries := query.NewBankQueryService(banks)
	accountQueries := query.NewAccountQueryService(accountReads)
	cardQueries := query.NewCardQueryService(cards)
	txQueries := query.NewTransactionQueryService(txReads, accountReads, cards)

	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(userCommands, authQueries),
		Users:        handler.NewUserHandler(userCommands, userQueries),
		Banks:        handler.NewBankHandler(bankCommands, bankQueries),
		Accounts:     handler.NewAccountHandler(accountCommands, accountQueries),
		Cards:        handler.NewCardHandler(cardCommands, cardQueries),
		Transactions: handler.NewTransactionHandler(ledger, txQueries),
	}

	if cfg.ChatEnabled() {
		client := agent.NewClient(agent.ClientConfig{
			BaseURL: cfg.ChatBaseURL,
			APIKey:  cfg.ChatAPIKey,
			Model:   cfg.ChatModel,
			Timeout: cfg.ChatTimeout(),
		}, collector)
		tools := agent.BankingTools(agent.Services{
			Accounts:     accountQueries,
			Cards:        cardQueries,
			CardCommands: cardCommands,
			Users:        userQueries,
			Banks:        bankQueries,
			Transactions: txQueries,
			Ledger:       ledger,
		})
		replies := redisClient.NewViewCache[agent.Reply](redis.Client, "agent_reply", ttl)
		supportAgent := agent.New(client, tools, replies, collector, agent.Config{})
		handlers.Agent = handler.NewAgentHandler(supportAgent)
		logger.Info("support agent enabled", zap.String("model", cfg.ChatModel))
	} else {
		logger.Warn("CHAT_API_KEY not set, support agent disabled")
	}

	// --- Notifications ---
	var mailer notify.Mailer = notify.NewLogMailer()
	if cfg.SMTPEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	notifier := notify.NewNotifier(userReads, mailer, redis.Client)

	hostname, _ := os.Hostname()
	for _, stream := range []string{events.UserEventsStream, events.AccountEventsStream, events.TransactionEventsStream} {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "notifications",
			Consumer: "notifier-" + hostname,
			Stream:   stream,
			Handler:  notifier.HandleEvent,
		})
		go func(stream string) {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("subscriber stopped", zap.String("stream", stream), zap.Error(err))
			}
		}(stream)
	}

	// --- Scheduled jobs ---
	jobs := scheduler.NewJobs(txReads, cfg.PendingStaleAfter(), collector)
	cron := scheduler.NewScheduler(jobs)
	if err := cron.Start(cfg.PendingSweepSchedule); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	router := server.NewRouter(server.Deps{
		Handlers:       handlers,
		Tokens:         tokens,
		Logger:         logger,
		Metrics:        collector,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		HealthChecks: map[string]server.HealthCheck{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	cancel()
	<-cron.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
