package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/config"
	"github.com/nandanugg/gird/module/core/domain"
	handler "github.com/nandanugg/gird/module/core/internal/handler/http"
	"github.com/nandanugg/gird/module/core/internal/handler/subscriber"
	"github.com/nandanugg/gird/module/core/internal/repository/database"
	"github.com/nandanugg/gird/module/core/internal/repository/database/memory"
	"github.com/nandanugg/gird/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/gird/module/core/internal/repository/database/redis"
	"github.com/nandanugg/gird/module/core/internal/repository/database/sqlite"
	mqttprovider "github.com/nandanugg/gird/module/core/internal/repository/provider/mqtt"
	"github.com/nandanugg/gird/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/gird/module/core/service"
)

// NotificationQueue is the durable queue transition notifications land in.
const NotificationQueue = rabbitmq.QueueName

// DeclareNotificationTopology declares the exchange and queue the notifier
// publishes to, for consumers that may start before the server.
func DeclareNotificationTopology(ch *amqp.Channel) error {
	return rabbitmq.DeclareTopology(ch)
}

// Deps are the live connections the module runs on. Only the one matching
// Options.KVBackend is needed among DB and Redis.
type Deps struct {
	DB     *sql.DB
	Redis  *goredis.Client
	AMQP   *amqp.Connection
	MQTT   mqtt.Client
	Logger *zap.Logger
}

type Options struct {
	KVBackend     string
	FixTopic      string
	ProviderTopic string
	DeviceID      string
	SeedFences    []domain.Geofence
}

type Module struct {
	Store    *service.GeofenceStore
	Settings *service.Settings
	Monitor  *service.Monitor

	kv         database.KeyValueStore
	logger     *zap.Logger
	handlers   []interface{ Register(r *gin.RouterGroup) }
	subscriber *subscriber.FixSubscriber
}

func Build(ctx context.Context, deps Deps, opts Options) (*Module, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	kv, err := newKVStore(ctx, deps, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("kv store: %w", err)
	}

	notifier, err := rabbitmq.NewNotifier(deps.AMQP)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	positions := mqttprovider.NewProvider(deps.MQTT, opts.ProviderTopic, opts.DeviceID, logger)

	store := service.NewGeofenceStore(kv, logger)
	settings := service.NewSettings(kv, logger)

	report, loadErr := store.Load(ctx)
	if loadErr != nil {
		logger.Error("load geofences", zap.String("category", "persistence"), zap.Error(loadErr))
	}
	logger.Info("geofences loaded",
		zap.Int("fences", report.Fences),
		zap.Int("events", report.Events),
		zap.Int("skipped", report.Skipped))

	if err := settings.Load(ctx); err != nil {
		logger.Error("load settings", zap.String("category", "persistence"), zap.Error(err))
	}

	if report.Fresh {
		seedFences(ctx, store, opts.SeedFences, logger)
	}

	engine := service.NewTransitionEngine(store, notifier, logger)
	polling := service.NewPollingController(positions, logger)
	monitor := service.NewMonitor(store, settings, engine, polling, logger)

	return &Module{
		Store:    store,
		Settings: settings,
		Monitor:  monitor,
		kv:       kv,
		logger:   logger,
		handlers: []interface{ Register(r *gin.RouterGroup) }{
			handler.NewFenceHandler(store, logger),
			handler.NewSettingsHandler(settings, monitor, logger),
			handler.NewMonitorHandler(monitor, settings, logger),
		},
		subscriber: subscriber.NewFixSubscriber(deps.MQTT, opts.FixTopic, opts.DeviceID, monitor, logger),
	}, nil
}

// newKVStore fails only on a misconfigured backend. A backend whose schema
// cannot be prepared is replaced by the in-memory store so monitoring still
// starts; nothing is persisted until the next boot.
func newKVStore(ctx context.Context, deps Deps, opts Options, logger *zap.Logger) (database.KeyValueStore, error) {
	type migrator interface {
		database.KeyValueStore
		Migrate(ctx context.Context) error
	}

	var repo migrator
	switch opts.KVBackend {
	case config.KVPostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres backend needs a database")
		}
		repo = postgres.NewKVRepo(deps.DB)
	case config.KVSQLite:
		if deps.DB == nil {
			return nil, errors.New("sqlite backend needs a database")
		}
		repo = sqlite.NewKVRepo(deps.DB)
	case config.KVRedis:
		if deps.Redis == nil {
			return nil, errors.New("redis backend needs a client")
		}
		return redis.NewKVRepo(deps.Redis, opts.DeviceID), nil
	case config.KVMemory:
		return memory.NewKVStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.KVBackend)
	}

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("prepare kv schema, falling back to memory",
			zap.String("category", "persistence"),
			zap.String("kv_backend", opts.KVBackend),
			zap.Error(err))
		return memory.NewKVStore(), nil
	}
	return repo, nil
}

// seedFences adds the configured starter fences to an empty store. Seeds that
// fail validation or collide are logged and skipped.
func seedFences(ctx context.Context, store *service.GeofenceStore, seeds []domain.Geofence, logger *zap.Logger) int {
	if len(seeds) == 0 || len(store.Fences()) > 0 {
		return 0
	}

	added := 0
	for _, gf := range seeds {
		saved, err := store.Add(ctx, gf)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrPersistence):
			logger.Error("persist seed fence", zap.String("category", "persistence"), zap.Error(err))
		default:
			logger.Warn("seed fence rejected", zap.String("name", gf.Name), zap.Error(err))
			continue
		}
		added++
		logger.Info("seed fence added", zap.String("id", saved.ID), zap.String("name", saved.Name))
	}
	return added
}

// KV exposes the backing store for health checks.
func (m *Module) KV() database.KeyValueStore {
	return m.kv
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	for _, h := range m.handlers {
		h.Register(r)
	}
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// Start resumes monitoring when it was left enabled by the previous run.
func (m *Module) Start(ctx context.Context) error {
	if !m.Settings.MonitoringActive() {
		m.logger.Info("monitoring disabled, waiting for start request")
		return nil
	}
	return m.Monitor.Start(ctx)
}

// Stop leaves the persisted monitoring flag untouched so the next boot resumes.
func (m *Module) Stop(ctx context.Context) error {
	return errors.Join(m.subscriber.Stop(), m.Monitor.Stop(ctx))
}
