package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/lms-api/internal/config"
	"github.com/Clark-Hu/lms-api/internal/store"
)

// Backend is the connection owner behind a Repository.
type Backend interface {
	HealthCheck(ctx context.Context) error
	Close()
}

// Open connects to the store selected by cfg.DBDriver, prepares its schema
// and returns the repository together with the backend to close on shutdown.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Repository, Backend, error) {
	connTimeout := time.Duration(cfg.DBConnTimeoutSecs) * time.Second

	switch cfg.DBDriver {
	case config.DriverMongo:
		st, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, store.MongoOptions{
			MaxPoolSize: uint64(cfg.DBMaxConns),
			MinPoolSize: uint64(cfg.DBMinConns),
			ConnTimeout: connTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, err
		}
		repo, err := NewMongo(ctx, st.Database(), logger)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		return repo, st, nil

	case config.DriverPostgres:
		st, err := store.New(ctx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            connTimeout,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
		return New(st), st, nil

	default:
		return nil, nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}
