package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/app"
	"github.com/Freeeeeet/tutorconnect/internal/config"
	"github.com/Freeeeeet/tutorconnect/internal/controller"
	"github.com/Freeeeeet/tutorconnect/internal/controller/httpapi"
	"github.com/Freeeeeet/tutorconnect/internal/events"
	"github.com/Freeeeeet/tutorconnect/internal/repository"
	"github.com/Freeeeeet/tutorconnect/internal/repository/base"
	"github.com/Freeeeeet/tutorconnect/internal/repository/memory"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/Freeeeeet/tutorconnect/internal/service"
	"github.com/Freeeeeet/tutorconnect/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storage набор хранилищ для выбранного драйвера
type storage struct {
	tx           service.TxRunner
	availability service.AvailabilityStore
	bookings     service.BookingStore
	users        service.UserDirectory
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tutorconnect",
		zap.String("storage", cfg.StorageDriver),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("availability_policy", cfg.AvailabilityPolicy),
	)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	policy, err := service.ParseAvailabilityPolicy(cfg.AvailabilityPolicy)
	if err != nil {
		return err
	}

	availability, err := service.NewAvailabilityService(
		store.tx,
		store.availability,
		store.users,
		cfg.AvailabilityCacheSize,
		time.Now,
		logger.Named("availability"),
	)
	if err != nil {
		return err
	}

	// Уведомления: Telegram и Kafka, если настроены
	var notifiers service.MultiNotifier
	var tgBot *bot.Bot
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, events.NewTelegramNotifier(tgBot, store.users, logger.Named("telegram")))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Named("kafka"))
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Failed to close kafka publisher", zap.Error(err))
			}
		}()
		notifiers = append(notifiers, publisher)
	}
	var notifier service.Notifier = service.NopNotifier{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	bookings := service.NewBookingService(
		store.tx,
		store.bookings,
		store.users,
		availability,
		notifier,
		service.BookingOptions{
			Window: scheduling.Window{MinLeadDays: cfg.BookingMinLeadDays, MaxLeadDays: cfg.BookingMaxLeadDays},
			Policy: policy,
		},
		time.Now,
		logger.Named("bookings"),
	)

	// Ограничение частоты создания бронирований
	var limiter httpapi.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limiter = httpapi.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "tutorconnect:bookings")
	}

	scheduler := app.NewScheduler(bookings, cfg.ReminderCron, time.Now, logger.Named("scheduler"))
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if tgBot != nil {
		botController := controller.NewBotController(tgBot, store.users, availability, bookings, time.Now, logger.Named("bot"))
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	handler := httpapi.NewHandler(availability, bookings, time.Now, logger.Named("http"))
	server := httpapi.NewServer(handler, httpapi.Options{
		JWTSecret: []byte(cfg.JWTSecret),
		Limiter:   limiter,
	}, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage with demo users, data is lost on restart")
		store := memory.NewStore()
		store.Seed(memory.DemoUsers())
		return &storage{
			tx:           store,
			availability: store.Availability(),
			bookings:     store.Bookings(),
			users:        store.Users(),
			close:        func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	migrator, err := app.NewMigrator(pool, migrations.FS, logger.Named("migrations"))
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		tx:           base.NewRepository(pool),
		availability: repository.NewAvailabilityRepository(pool, logger.Named("availability_repo")),
		bookings:     repository.NewBookingRepository(pool),
		users:        repository.NewUserRepository(pool),
		close:        pool.Close,
	}, nil
}
