package app

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/httpclient"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/notify"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
	"github.com/angelmondragon/storefront/pkg/storage/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Params carries optional overrides. Zero values mean "build from config".
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Storage  storage.Store
	Notifier notify.Notifier
	Client   *httpclient.Client
}

// App is the context object shared by every view of the storefront. It is
// built once at startup and owns both stores.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Storage  storage.Store
	Client   *httpclient.Client
	Notifier notify.Notifier
	Registry *prometheus.Registry
	Users    *users.Store
	Cart     *cart.Store

	closers []storage.Closer
}

// New wires storage, the backend client and both stores.
func New(ctx context.Context, p Params) (*App, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := p.Config
	logg := p.Logger
	if logg == nil {
		logg = logger.New(logger.Options{
			ServiceName: "storefront",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
	}

	a := &App{Config: cfg, Logger: logg}

	store := p.Storage
	if store == nil {
		var err error
		store, err = a.openStorage(ctx)
		if err != nil {
			return nil, err
		}
	}
	a.Storage = store

	var storeMetrics *metrics.StoreMetrics
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		storeMetrics = metrics.NewStoreMetrics(a.Registry)
	}

	client := p.Client
	if client == nil {
		var err error
		client, err = httpclient.New(cfg.API,
			httpclient.WithLogger(logg),
			httpclient.WithTokenSource(a.storedToken),
		)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("building api client: %w", err)
		}
	}
	a.Client = client

	a.Notifier = p.Notifier
	if a.Notifier == nil {
		a.Notifier = notify.NewLogNotifier(logg)
	}

	userStore, err := users.NewStore(ctx, users.StoreParams{
		Client:               client,
		Storage:              store,
		Logger:               logg,
		Metrics:              storeMetrics,
		LogoutOnUnauthorized: cfg.Auth.LogoutOnUnauthorized,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("building user store: %w", err)
	}
	a.Users = userStore

	cartStore, err := cart.NewStore(ctx, cart.StoreParams{
		Storage:  store,
		Auth:     userStore,
		Notifier: a.Notifier,
		Logger:   logg,
		Metrics:  storeMetrics,
		Display:  cfg.Display,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("building cart store: %w", err)
	}
	a.Cart = cartStore

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (storage.Store, error) {
	cfg := a.Config
	driver := cfg.Storage.NormalizedDriver()
	ctx = a.Logger.WithField(ctx, "storage_driver", driver)

	switch driver {
	case config.StorageDriverMemory:
		a.Logger.Warn(ctx, "memory storage selected, cart and session will not survive a restart")
		return memory.New(), nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("opening redis storage: %w", err)
		}
		a.closers = append(a.closers, client)
		return client, nil

	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		dbClient, err := db.New(ctx, driver, cfg.DB, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("opening %s storage: %w", driver, err)
		}
		a.closers = append(a.closers, dbClient)

		if cfg.DB.AutoMigrate {
			sqlDB, err := dbClient.DB().DB()
			if err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("resolving sql handle: %w", err)
			}
			if err := migrate.Up(ctx, sqlDB, dbClient.Dialect()); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("migrating storage: %w", err)
			}
			a.Logger.Info(ctx, "storage migrations applied")
		}

		store, err := sqlstore.New(dbClient.DB())
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// storedToken feeds the HTTP client from storage rather than from the user
// store, so a token written by another process is still picked up.
func (a *App) storedToken(ctx context.Context) (string, bool) {
	token, ok, err := a.Storage.Get(ctx, users.TokenKey)
	if err != nil {
		a.Logger.Warn(ctx, "reading token for request failed")
		return "", false
	}
	return token, ok && token != ""
}

// Close releases storage connections.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}
