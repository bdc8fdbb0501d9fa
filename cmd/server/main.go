package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nandanugg/gird/config"
	"github.com/nandanugg/gird/module/core"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := core.Deps{Logger: logger}

	switch cfg.KVBackend {
	case config.KVPostgres:
		db, err := config.NewPostgres(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		deps.DB = db
	case config.KVSQLite:
		db, err := config.NewSQLite(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		deps.DB = db
	case config.KVRedis:
		client, err := config.NewRedis(cfg)
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) { _ = c.Close() }(client)
		deps.Redis = client
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = amqpConn.Close() }()
	deps.AMQP = amqpConn

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		return err
	}
	defer mqttClient.Disconnect(250)
	deps.MQTT = mqttClient

	seeds, err := config.LoadSeedFences(cfg.SeedFences)
	if err != nil {
		logger.Warn("seed fences", zap.Error(err))
	}

	coreModule, err := core.Build(ctx, deps, core.Options{
		KVBackend:     cfg.KVBackend,
		FixTopic:      cfg.MQTTFixTopic,
		ProviderTopic: cfg.MQTTProviderTopic,
		DeviceID:      cfg.DeviceID,
		SeedFences:    seeds,
	})
	if err != nil {
		return fmt.Errorf("core module: %w", err)
	}

	if err := coreModule.StartSubscribers(); err != nil {
		return fmt.Errorf("start subscribers: %w", err)
	}
	if err := coreModule.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	health := config.NewHealthChecker(cfg.KVBackend, coreModule.KV(), amqpConn, mqttClient)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("kv_backend", cfg.KVBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			coreModule.Stop(shutdownCtx),
		)
	})

	return g.Wait()
}

func closeDB(db *sql.DB) {
	_ = db.Close()
}
