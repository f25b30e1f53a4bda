package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"btcinvest/internal/adapter/auth"
	"btcinvest/internal/adapter/cache"
	"btcinvest/internal/adapter/handler"
	"btcinvest/internal/adapter/mail"
	"btcinvest/internal/adapter/origin"
	"btcinvest/internal/adapter/queue"
	"btcinvest/internal/adapter/storage"
	"btcinvest/internal/application/service"
	"btcinvest/internal/application/usecase"
	"btcinvest/internal/concurrency/fanin"
	"btcinvest/internal/concurrency/worker"
	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
	"btcinvest/internal/infrastructure/config"
	"btcinvest/internal/infrastructure/logger"
	"btcinvest/internal/infrastructure/metrics"
	"btcinvest/internal/infrastructure/server"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to the YAML config")
	portFlag   = flag.Int("port", 0, "Port number")
	helpFlag   = flag.Bool("help", false, "Show help")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting btcinvest", "version", "1.0.0", "queue_driver", cfg.Queue.Driver, "price_mode", cfg.Price.Mode)

	if err := run(cfg, log); err != nil {
		log.Error("btcinvest stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	postgresAdapter, err := storage.NewPostgresAdapter(startupCtx, cfg.PostgresDSN(), storage.PoolOptions{
		MaxOpenConns:    cfg.PostgreSQL.MaxOpenConns,
		MaxIdleConns:    cfg.PostgreSQL.MaxIdleConns,
		ConnMaxLifetime: cfg.PostgreSQL.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	defer postgresAdapter.Close()

	if err := postgresAdapter.InitSchema(startupCtx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// One client for the cache and the Redis Streams queue.
	redisClient, err := cache.NewRedisClient(startupCtx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()

	redisAdapter := cache.NewRedisAdapter(redisClient, cfg.Redis.KeyPrefix)

	broker, err := newQueue(cfg, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	defer broker.Close()

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	m := metrics.New()

	initialMode, err := model.ParseDataMode(cfg.Price.Mode)
	if err != nil {
		return err
	}
	modeService := service.NewModeService(initialMode, log)
	priceOrigin := origin.NewSwitch(
		origin.NewHTTPOrigin(cfg.PriceAPI.BaseURL, cfg.PriceAPI.Symbol, cfg.PriceAPI.Timeout, log),
		origin.NewTestOrigin(cfg.Price.TestStartPrice, log),
		modeService,
	)

	priceUseCase := usecase.NewPriceUseCase(redisAdapter, priceOrigin, broker, m, usecase.PriceOptions{
		QueueName:         cfg.Queue.CacheSaverQueue,
		CacheTimeout:      cfg.Timeouts.Cache,
		OriginTimeout:     cfg.Timeouts.Origin,
		QueueTimeout:      cfg.Timeouts.Queue,
		HealCorruptCache:  cfg.Price.HealCorruptCache,
		BestEffortPublish: cfg.Price.BestEffortPublish,
	}, log)

	accountUseCase := usecase.NewAccountUseCase(
		postgresAdapter,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		jwtManager,
		broker,
		m,
		usecase.AccountOptions{EmailQueue: cfg.Queue.DepositEmailQueue, QueueTimeout: cfg.Timeouts.Queue},
		log,
	)

	var mailer port.MailerPort = mail.NewLogMailer(log)
	if cfg.Mail.SendGridAPIKey != "" {
		mailer = mail.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.SendGridHost, cfg.Mail.FromName, cfg.Mail.FromAddress, log)
	} else {
		log.Warn("sendgrid api key not set, deposit confirmations will only be logged")
	}

	populator := service.NewCachePopulator(broker, redisAdapter, m, cfg.Queue.CacheSaverQueue, cfg.Cache.PriceTTL, cfg.Timeouts.Cache, log)
	dispatcher := service.NewMailDispatcher(broker, mailer, m, cfg.Queue.DepositEmailQueue, cfg.Timeouts.Mail, log)

	workerErrs := fanin.Merge(
		worker.NewPool(cfg.Workers.CachePopulators, log).Start(ctx, "cache-populator", populator.Run),
		worker.NewPool(cfg.Workers.MailDispatchers, log).Start(ctx, "mail-dispatcher", dispatcher.Run),
	)
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		for err := range workerErrs {
			log.Warn("background worker error", "error", err)
		}
	}()

	router := handler.NewRouter(handler.RouterDeps{
		Price:    handler.NewPriceHandler(priceUseCase, log),
		Accounts: handler.NewAccountHandler(accountUseCase, log),
		Mode:     handler.NewModeHandler(modeService, log),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": postgresAdapter,
			"redis":    redisAdapter,
			"queue":    broker,
		}, log),
		Verifier:   jwtManager,
		Instrument: m.InstrumentHandler,
		Metrics:    m.Handler(),
		Logger:     log,
	})

	srv := server.NewServer(cfg.Server.Port, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-workersDone
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	stop()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		log.Warn("workers did not stop before the shutdown timeout")
	}

	log.Info("shutdown complete")
	return nil
}

func newQueue(cfg *config.Config, client *redis.Client, log *slog.Logger) (port.QueuePort, error) {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		q, err := queue.NewRabbitMQQueue(cfg.Queue.RabbitMQURL, cfg.Queue.MaxDeliveries, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	case "memory":
		log.Warn("using in-memory queue, messages are lost on restart")
		return queue.NewMemoryQueue(cfg.Queue.MemoryBuffer, cfg.Queue.MaxDeliveries, log), nil
	default:
		return queue.NewRedisStreamQueue(client, queue.StreamOptions{
			Group:         cfg.Queue.ConsumerGroup,
			MaxDeliveries: int64(cfg.Queue.MaxDeliveries),
			ClaimIdle:     cfg.Queue.ClaimIdle,
			Block:         cfg.Queue.Block,
			MaxLen:        cfg.Queue.MaxLen,
		}, log), nil
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  btcinvest [--config <path>] [--port <N>]")
	fmt.Println("  btcinvest --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH  YAML config file (default configs/config.yaml)")
	fmt.Println("  --port N       Port number")
}
