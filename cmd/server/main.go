package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/hotel-reservations/internal/app"
	"github.com/Leganyst/hotel-reservations/internal/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := logrus.New()

	// 1. Config from env (.env is picked up too).
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		logger.Fatalf("load app config: %v", err)
	}
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		logger.Fatalf("load db config: %v", err)
	}
	setupLogger(logger, appCfg)

	// 2. DB, migrations, locks, notifications, services, jobs.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, appCfg, dbCfg, logger)
	if err != nil {
		logger.Fatalf("init engine: %v", err)
	}
	engine.Start()

	// 3. gRPC server: health and reflection.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", appCfg.GRPCAddr)
	if err != nil {
		logger.Fatalf("listen %s: %v", appCfg.GRPCAddr, err)
	}

	logger.WithFields(logrus.Fields{
		"addr":      appCfg.GRPCAddr,
		"db_driver": dbCfg.Driver,
		"timezone":  appCfg.HotelTimeZone.String(),
		"jobs":      engine.Scheduler.Jobs(),
	}).Info("reservation engine listening")

	// 4. Serve until a signal arrives.
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("grpc serve")
		}
	}

	// 5. Graceful shutdown.
	logger.Info("shutting down")
	healthSrv.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := engine.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
		os.Exit(1)
	}
}

func setupLogger(logger *logrus.Logger, cfg *config.AppConfig) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
