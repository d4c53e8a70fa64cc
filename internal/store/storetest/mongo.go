package storetest

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Clark-Hu/lms-api/internal/store"
)

const mongoImage = "mongo:7"

// DockerAvailable reports whether a docker daemon answers within a few seconds.
func DockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// Mongo runs a mongo container for one test and returns a connected store.
// Tests are skipped under -short or when docker is unavailable.
func Mongo(t *testing.T) *store.MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container skipped in -short mode")
	}
	if !DockerAvailable() {
		t.Skip("docker not available")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mongoImage,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("Waiting for connections"),
			).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate mongo container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("mongo host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("mongo port: %v", err)
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	st, err := store.NewMongo(ctx, uri, "lms_test_"+uuid.NewString()[:8], store.MongoOptions{
		ConnTimeout: 10 * time.Second,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

// ResetMongo drops every collection of db.
func ResetMongo(t *testing.T, db *mongo.Database) {
	t.Helper()
	if err := db.Drop(context.Background()); err != nil {
		t.Fatalf("drop mongo database: %v", err)
	}
}
