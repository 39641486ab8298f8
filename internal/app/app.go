// Package app wires the storefront client and the mock backend from their
// configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/state"
	"github.com/utafrali/storefront/internal/tokenstore"
	redisstore "github.com/utafrali/storefront/internal/tokenstore/redis"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App holds the session and every container, sharing one API client.
type App struct {
	Client    *api.Client
	Session   *state.Session
	Catalog   *state.Catalog
	Cart      *state.Cart
	Orders    *state.Orders
	Addresses *state.Addresses
	Favorites *state.Favorites

	cfg      *config.Config
	logger   *slog.Logger
	rdb      *redis.Client
	producer *pkgkafka.Producer
	tracing  func(context.Context) error
	stops    []func()
}

// New creates the client application, initializing all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Tracing.
	shutdown, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracing = shutdown

	// API client.
	apiCfg := api.DefaultConfig()
	apiCfg.BaseURL = cfg.APIBaseURL
	apiCfg.Timeout = cfg.HTTPTimeout
	apiCfg.MaxRetries = cfg.MaxRetries
	apiCfg.RateLimit = cfg.RateLimit
	apiCfg.RateBurst = cfg.RateBurst
	apiCfg.BreakerTimeout = cfg.BreakerTimeout
	apiCfg.BreakerMinRequests = cfg.BreakerMinRequests
	client, err := api.New(apiCfg, logger)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Client = client

	store, err := a.tokenStore(ctx)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	// Containers.
	opts := state.Options{Mode: cfg.Mode, Logger: logger}
	a.Session = state.NewSession(ctx, opts, client, store)
	client.SetTokenSource(a.Session)
	a.Catalog = state.NewCatalog(opts, client)
	a.Cart = state.NewCart(opts, client)
	a.Orders = state.NewOrders(opts, client)
	a.Addresses = state.NewAddresses(opts, client)
	a.Favorites = state.NewFavorites(opts, client)
	a.stops = append(a.stops, a.Catalog.WatchFavorites(a.Favorites))

	// Activity events.
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		relay := event.NewRelay(event.NewProducer(a.producer, logger), logger, event.WithUser(a.userID))
		a.stops = append(a.stops, relay.Watch(a.Favorites, a.Orders))
	}

	logger.Debug("storefront client ready",
		slog.String("mode", string(cfg.Mode)),
		slog.String("api", client.BaseURL()),
		slog.String("token_store", cfg.TokenStore),
	)
	return a, nil
}

// tokenStore opens the configured token backend.
func (a *App) tokenStore(ctx context.Context) (tokenstore.Store, error) {
	switch a.cfg.TokenStore {
	case config.TokenStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPass,
			DB:       a.cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.logger.Info("connected to Redis",
			slog.String("addr", a.cfg.RedisAddr),
			slog.Int("db", a.cfg.RedisDB),
		)
		a.rdb = rdb
		return redisstore.NewStore(rdb, a.cfg.RedisPrefix), nil
	case config.TokenStoreMemory:
		return tokenstore.NewMemoryStore(), nil
	default:
		return tokenstore.NewFileStore(a.cfg.TokenFile), nil
	}
}

// userID tags relayed events with the signed-in user.
func (a *App) userID() string {
	u := a.Session.User()
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

// Close gracefully stops all components.
func (a *App) Close(ctx context.Context) {
	for _, stop := range a.stops {
		stop()
	}
	a.stops = nil

	// Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	// Close Redis client.
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
