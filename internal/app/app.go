// Package app assembles the reservation engine from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/clock"
	"github.com/Leganyst/hotel-reservations/internal/config"
	"github.com/Leganyst/hotel-reservations/internal/db"
	"github.com/Leganyst/hotel-reservations/internal/jobs"
	"github.com/Leganyst/hotel-reservations/internal/lock"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/notify"
	"github.com/Leganyst/hotel-reservations/internal/payment"
	"github.com/Leganyst/hotel-reservations/internal/repository"
	"github.com/Leganyst/hotel-reservations/internal/service"
)

// App is the wired engine. Callers use the services directly; Scheduler runs
// the sweeps once started.
type App struct {
	DB           *gorm.DB
	Reservations *service.ReservationService
	Employees    *service.EmployeeService
	Rooms        *service.RoomService
	Sweeper      *jobs.Sweeper
	Scheduler    *jobs.Scheduler

	dispatcher *notify.Dispatcher
	closers    []func() error
	logger     *logrus.Logger
}

func New(ctx context.Context, appCfg *config.AppConfig, dbCfg *config.DBConfig, logger *logrus.Logger) (*App, error) {
	a := &App{logger: logger}

	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	a.DB = gormDB
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sql DB: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	if err := model.AutoMigrate(gormDB); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	repos := repository.NewGormSet(gormDB, appCfg.RoomTypeCacheSize, appCfg.RoomTypeCacheTTL)

	locker, err := a.newLocker(ctx, appCfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	sender, err := a.newSender(appCfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(sender, logger, notify.DispatcherOptions{
		Buffer:      appCfg.NotifyBuffer,
		Workers:     2,
		MaxAttempts: appCfg.NotifyMaxAttempts,
		Backoff:     appCfg.NotifyBackoff,
	})

	clk := clock.System(appCfg.HotelTimeZone)
	gateway := a.newGateway(appCfg)

	a.Reservations = service.NewReservationService(gormDB, repos, gateway, a.dispatcher, locker, clk, logger, service.Options{
		Currency: appCfg.Currency,
	})
	a.Employees = service.NewEmployeeService(a.Reservations)
	a.Rooms = service.NewRoomService(repos)

	a.Sweeper = jobs.NewSweeper(gormDB, repos, locker, clk, a.dispatcher, logger)
	a.Scheduler, err = jobs.NewScheduler(a.Sweeper, jobs.Schedule{
		Completion: appCfg.CompletionCron,
		Occupancy:  appCfg.OccupancyCron,
		Location:   appCfg.HotelTimeZone,
	}, logger)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	return a, nil
}

func (a *App) newLocker(ctx context.Context, cfg *config.AppConfig) (lock.Locker, error) {
	if cfg.LockBackend != "redis" {
		return lock.NewLocal(cfg.LockWait), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)
	a.logger.WithField("addr", cfg.RedisAddr).Info("using redis room locks")
	return lock.NewRedis(client, cfg.LockTTL, cfg.LockWait), nil
}

func (a *App) newSender(cfg *config.AppConfig) (notify.Sender, error) {
	if cfg.NotifyBackend != "amqp" {
		return notify.NewLogSender(a.logger), nil
	}
	sender, err := notify.NewAMQPSender(cfg.AMQPURL, cfg.NotifyQueue)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	a.closers = append(a.closers, sender.Close)
	a.logger.WithField("queue", cfg.NotifyQueue).Info("publishing notifications to amqp")
	return sender, nil
}

func (a *App) newGateway(cfg *config.AppConfig) payment.Gateway {
	if cfg.PaymentProvider != "stripe" {
		a.logger.Warn("using the in-memory payment stub, refunds are not sent to a processor")
		return payment.NewStubGateway()
	}
	return payment.NewStripeGateway(cfg.StripeSecretKey, &stripe.BackendConfig{
		LeveledLogger: a.logger,
	})
}

// Start launches notification delivery and the sweep schedule.
func (a *App) Start() {
	a.dispatcher.Start()
	a.Scheduler.Start()
}

// Close stops the scheduler, drains pending notifications and releases
// connections, in that order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := a.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain notifications: %w", err))
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
