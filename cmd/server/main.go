package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
	"github.com/iliyamo/table-reservation/internal/lib/logger/slogpretty"
	"github.com/iliyamo/table-reservation/internal/notification"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	log.Info("starting table reservation", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("failed to load timezone", sl.Err(err))
		os.Exit(1)
	}

	db, dialect, err := database.Open(database.Options{
		Driver:          cfg.Database.Driver,
		User:            cfg.Database.User,
		Pass:            cfg.Database.Pass,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Name:            cfg.Database.Name,
		SQLitePath:      cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected", slog.String("dialect", string(dialect)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			log.Error("failed to migrate database", sl.Err(err))
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, using in-process idempotency cache and rate limiter",
			slog.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	slots := repository.NewSlotRepo(db, dialect)
	bookings := repository.NewBookingRepo(db, dialect)
	zones := repository.NewZoneRepo(db)

	opts := []service.Option{
		service.WithLocation(loc),
		service.WithTxTimeout(cfg.BookingTxTimeout),
		service.WithIdempotencyCache(idempotencyCache(rdb, cfg.Idempotency.TTL)),
	}
	if cfg.RabbitMQ.Enabled {
		d := notification.NewDispatcher(cfg.Notification.Workers, cfg.Notification.QueueDepth, cfg.Notification.Timeout,
			queue.NewPublisher(cfg.RabbitMQ.URL, log), log)
		d.Start(ctx)
		opts = append(opts, service.WithNotifier(d))

		if cfg.RabbitMQ.ConsumeBooking {
			go func() {
				if err := queue.StartBookingConsumer(ctx, cfg.RabbitMQ.URL, cfg.LogDir, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("booking consumer stopped", sl.Err(err))
				}
			}()
		}
	}

	engine, err := service.NewBookingEngine(db, slots, bookings, log, opts...)
	if err != nil {
		log.Error("failed to create booking engine", sl.Err(err))
		os.Exit(1)
	}
	reconciler := service.NewReconciler(slots, bookings, log)

	e := router.New(log)
	router.RegisterRoutes(e, router.Handlers{
		Health:    handler.NewHealthHandler(db, rdb),
		Bookings:  handler.NewBookingHandler(engine, log),
		Slots:     handler.NewSlotHandler(engine, log),
		Reconcile: handler.NewReconcileHandler(reconciler, log),
		Zones:     handler.NewZoneHandler(zones, log),
	}, cfg, rdb, log)

	addr := ":" + cfg.Port
	go func() {
		log.Info("starting server", slog.String("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("application stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}
	log.Info("application stopped")
}

// idempotencyCache prefers Redis so replays are recognised across
// instances; the ledger's unique index stays authoritative either way.
func idempotencyCache(rdb *redis.Client, ttl time.Duration) service.IdempotencyCache {
	if rdb != nil {
		return cache.NewRedisIdempotency(rdb, ttl)
	}
	return cache.NewMemoryIdempotency(ttl)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
