package store_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/lms-api/internal/store"
	"github.com/Clark-Hu/lms-api/internal/store/storetest"
)

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded postgres skipped in -short mode")
	}
	pool := storetest.NewPool(t)
	ctx := context.Background()

	applied, err := store.ApplyMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/0001_init.up.sql"}, applied)

	var tables int
	require.NoError(t, pool.QueryRow(ctx, `
        SELECT count(*) FROM information_schema.tables
        WHERE table_schema = 'public' AND table_name IN ('courses', 'users')
    `).Scan(&tables))
	assert.Equal(t, 2, tables)

	_, err = pool.Exec(ctx, `INSERT INTO courses (id, name) VALUES ('x', '   ')`)
	assert.Error(t, err, "blank course names must be rejected by the schema")
}

func TestStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded postgres skipped in -short mode")
	}
	pool := storetest.NewPool(t)
	ctx := context.Background()
	var logs bytes.Buffer

	st, err := store.New(ctx, pool.Config().ConnString(), store.Options{
		MaxConns:               4,
		MinConns:               1,
		MaxConnIdleTime:        time.Minute,
		MaxConnLifetime:        time.Hour,
		ConnTimeout:            5 * time.Second,
		StatementCacheCapacity: 16,
		Logger:                 zerolog.New(&logs),
	})
	require.NoError(t, err)

	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.HealthCheck(ctx))
	require.NotNil(t, st.Stats())
	assert.EqualValues(t, 4, st.Stats().MaxConns())

	st.Close()
	assert.Error(t, st.HealthCheck(ctx), "closed pool must fail health checks")
	assert.Contains(t, logs.String(), `"message":"closing connection pool"`)
	assert.Contains(t, logs.String(), `"acquire_count":`)
}

func TestNilStoreIsSafe(t *testing.T) {
	var st *store.Store
	assert.Error(t, st.HealthCheck(context.Background()))
	assert.Nil(t, st.Stats())
	st.Close()

	var mst *store.MongoStore
	assert.Error(t, mst.HealthCheck(context.Background()))
	mst.Close()
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := store.New(context.Background(), "://not-a-url", store.Options{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestMongoStoreHealthCheck(t *testing.T) {
	st := storetest.Mongo(t)
	require.NoError(t, st.HealthCheck(context.Background()))
	assert.NotNil(t, st.Database())
}
