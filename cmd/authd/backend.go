package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
)

// backend is the account store selected by STORE_DRIVER together with the
// probes for its connections.
type backend struct {
	store   ports.AccountStore
	pingers map[string]ports.Pinger
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongostore.NewAccountStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return &backend{
			store:   store,
			pingers: map[string]ports.Pinger{"mongodb": mongostore.NewPinger(client)},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect failed")
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		store := postgres.NewAccountStore(pool)
		return &backend{
			store:   store,
			pingers: map[string]ports.Pinger{"postgres": store},
			close:   pool.Close,
		}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			store:   redisstore.NewAccountStore(client),
			pingers: map[string]ports.Pinger{"redis": redisstore.NewPinger(client)},
			close: func() {
				if err := client.Close(); err != nil {
					log.Warn().Err(err).Msg("redis close failed")
				}
			},
		}, nil

	default:
		store := memory.NewAccountStore()
		return &backend{
			store:   store,
			pingers: map[string]ports.Pinger{"memory": store},
			close:   func() {},
		}, nil
	}
}
