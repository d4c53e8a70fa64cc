package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoOptions controls the document-store client.
type MongoOptions struct {
	MaxPoolSize uint64
	MinPoolSize uint64
	ConnTimeout time.Duration
	Logger      zerolog.Logger
}

// MongoStore owns the mongo client and the selected database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
	opts   MongoOptions
}

// NewMongo connects to uri, pings the primary and selects database.
func NewMongo(ctx context.Context, uri, database string, opts MongoOptions) (*MongoStore, error) {
	logger := opts.Logger.With().Str("component", "mongo").Logger()
	logger.Info().Str("database", database).Uint64("max_pool", opts.MaxPoolSize).Msg("connecting to document store")

	clientOpts := options.Client().ApplyURI(uri)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.ConnTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnTimeout)
		clientOpts.SetServerSelectionTimeout(opts.ConnTimeout)
	}

	connCtx := ctx
	if opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		connCtx, cancel = context.WithTimeout(ctx, opts.ConnTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(connCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info().Msg("document store connection established")

	return &MongoStore{client: client, db: client.Database(database), logger: logger, opts: opts}, nil
}

// Database returns the selected database handle for repositories.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// HealthCheck pings the primary.
func (s *MongoStore) HealthCheck(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.logger.Info().Msg("closing document store client")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("disconnect mongo")
	}
}
