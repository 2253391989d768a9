package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/cache"
	"shop-api/internal/core/config"
	"shop-api/internal/core/database"
	"shop-api/internal/core/events"
	"shop-api/internal/core/logger"
	"shop-api/internal/core/server"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.App.Env == "local",
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.Rotate.Enable,
			Filename:   cfg.Log.Rotate.Filename,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
			Compress:   cfg.Log.Rotate.Compress,
		},
	})
	defer cleanup()
	undo := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer undo()

	db := mustOpenDB(cfg, log)
	defer func() { _ = database.Close(db) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	var c *cache.Cache
	if cfg.Redis.Enabled() {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = c.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Ping(ctx); err != nil {
			// Reads fall back to the database while Redis is away.
			log.Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled() {
		pub = events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() { _ = pub.Close() }()

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)
	products := service.NewProductService(c, time.Duration(cfg.Redis.ProductTTL)*time.Second, log)
	orders := service.NewOrderService(service.OrderOptions{
		AtomicPlacement: cfg.Orders.AtomicPlacement,
		DecrementStock:  cfg.Orders.DecrementStock,
	}, products, pub, log)

	r := router.NewAPIEngine(router.Deps{
		DB:       db,
		Log:      log,
		JWT:      jwter,
		Users:    service.NewUserService(jwter),
		Products: products,
		Orders:   orders,
		Limits:   cfg.Limits,
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		log,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := fmt.Sprintf("http://%s:%d", host4human, cfg.App.HTTP.Port)
	log.Info("shop api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.Bool("atomic_placement", cfg.Orders.AtomicPlacement),
		zap.Bool("decrement_stock", cfg.Orders.DecrementStock),
	)

	errc := make(chan error, 1)
	go func() { errc <- server.StartHTTP(srv, log) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		if err != nil {
			log.Error("shop api stopped", zap.Error(err))
		}
		return
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("shop api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		PrepareStmt:        cfg.DB.PrepareStmt,
		LogLevel:           cfg.DB.LogLevel,
		SlowThreshold:      time.Duration(cfg.DB.SlowThresholdMs) * time.Millisecond,
		Logger:             l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
