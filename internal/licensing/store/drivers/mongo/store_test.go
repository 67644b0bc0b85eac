package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupMongo(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForListeningPort("27017/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, mappedPort.Port())
}

func TestStoreAgainstMongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	uri := setupMongo(t)

	ctx := context.Background()
	s, err := NewStore(ctx, uri, "licensing_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnsureIndexes(ctx))
	// Indexes are idempotent.
	require.NoError(t, s.EnsureIndexes(ctx))

	storetest.Run(t, s)

	n, err := s.Tenants().ExpireTrials(ctx, time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	require.Positive(t, n)
}

func TestNewStoreRequiresDatabase(t *testing.T) {
	_, err := NewStore(context.Background(), "mongodb://localhost:1", "")
	require.Error(t, err)
}
