// cmd/masteradmin/wiring.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/config"
	"github.com/dangerclosesec/masteradmin/internal/email"
	"github.com/dangerclosesec/masteradmin/internal/events"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/metrics"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
	"github.com/dangerclosesec/masteradmin/internal/service"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// app holds everything a command needs, plus what has to be closed again.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	store   *localstore.Store
	engine  *service.Engine
	events  *notify.Dispatcher
	closers []io.Closer
}

func (a *app) Close() {
	a.engine.Stop()
	a.engine.Wait()
	a.events.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New("masteradmin"),
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	a.store = store

	primary, err := a.openRemote(ctx, migrate)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("opening remote store: %w", err)
	}

	a.events = notify.NewDispatcher(logger, a.metrics, 0, a.notifiers()...)

	a.engine = service.NewEngine(store, primary, events.NewPublisher(logger),
		service.WithLogger(logger),
		service.WithMetrics(a.metrics),
		service.WithEventSink(a.events),
		service.WithPollInterval(cfg.Sync.PollInterval),
		service.WithReconcileTimeout(cfg.Sync.ReconcileTimeout),
	)
	return a, nil
}

func (a *app) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

func (a *app) openStore(ctx context.Context) (*localstore.Store, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageRedis:
		rcfg := localstore.DefaultRedisConfig()
		rcfg.Addr = a.cfg.Storage.Redis.Addr
		rcfg.Password = a.cfg.Storage.Redis.Password
		rcfg.DB = a.cfg.Storage.Redis.DB
		rcfg.Prefix = a.cfg.Storage.Redis.Prefix
		rcfg.Channel = a.cfg.Storage.Redis.Channel

		client, err := localstore.ConnectRedis(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		a.logger.Info("local store ready", "driver", "redis", "addr", rcfg.Addr)
		return localstore.NewStore(localstore.NewRedisBackend(client, rcfg), a.logger), nil
	default:
		db, err := localstore.OpenSQLite(a.cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		backend, err := localstore.NewGormBackend(db)
		if err != nil {
			return nil, err
		}
		a.logger.Info("local store ready", "driver", "sqlite", "path", a.cfg.Storage.Path)
		return localstore.NewStore(backend, a.logger), nil
	}
}

// openRemote returns nil in local-only mode.
func (a *app) openRemote(ctx context.Context, migrate bool) (remote.Client, error) {
	switch a.cfg.Remote.Mode {
	case config.RemoteDatabase:
		db, err := setupDatabase(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		client := remote.NewTableClient(db)
		if migrate {
			if err := client.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return client, nil
	case config.RemoteWebhook:
		return remote.NewWebhookClient(remote.WebhookConfig{
			URL:     a.cfg.Remote.WebhookURL,
			Timeout: a.cfg.Remote.Timeout,
		}), nil
	default:
		return nil, nil
	}
}

// setupDatabase connects to the remote Postgres. An unreachable database is
// not fatal: the engine falls back to the local store per operation.
func setupDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		slog.Warn("remote database unreachable, continuing with local fallback", "error", err)
	}

	return db, nil
}

// notifiers builds the lifecycle event sinks that are configured. A sink that
// fails to start is logged and skipped.
func (a *app) notifiers() []notify.Notifier {
	var sinks []notify.Notifier

	if url := a.cfg.Events.WebhookURL; url != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(url, &http.Client{Timeout: 10 * time.Second}))
	}

	if url := a.cfg.Events.AMQP.URL; url != "" {
		n, err := notify.NewAMQPNotifier(notify.AMQPConfig{
			URL:        url,
			Exchange:   a.cfg.Events.AMQP.Exchange,
			RoutingKey: a.cfg.Events.AMQP.RoutingKey,
		}, a.logger)
		if err != nil {
			a.logger.Warn("amqp notifier disabled", "error", err)
		} else {
			sinks = append(sinks, n)
			a.closers = append(a.closers, n)
		}
	}

	if sender, err := a.emailSender(); err != nil {
		a.logger.Warn("email notifier disabled", "error", err)
	} else if sender != nil {
		sinks = append(sinks, notify.NewEmailNotifier(sender, a.cfg.BaseURL))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	a.logger.Info("lifecycle notifiers", "sinks", names)
	return sinks
}

var errEmailNotConfigured = errors.New("email provider has no credentials")

func (a *app) emailSender() (*email.Service, error) {
	provider := email.Provider(a.cfg.Email.Provider)
	switch provider {
	case email.ProviderSendgrid:
		if a.cfg.Sendgrid.APIKey == "" {
			return nil, nil
		}
	case email.ProviderSMTP:
		if _, ok := a.cfg.SMTP[string(provider)]; !ok {
			return nil, errEmailNotConfigured
		}
	case "":
		return nil, nil
	}
	return email.NewEmailService(a.cfg, provider)
}
