//go:build integration

package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisPort    nat.Port = "6379/tcp"
	postgresPort nat.Port = "5432/tcp"
)

// StartRedis starts a Redis container and returns its host:port address.
// The container is terminated when the test finishes.
func StartRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{string(redisPort)},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30*time.Second),
				wait.ForListeningPort(redisPort),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, redisPort)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

// StartPostgres starts a PostgreSQL container and returns its DSN
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	dsn := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://ingrediate:ingrediate@%s:%s/ingrediate?sslmode=disable", host, port.Port())
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{string(postgresPort)},
			Env: map[string]string{
				"POSTGRES_DB":       "ingrediate",
				"POSTGRES_USER":     "ingrediate",
				"POSTGRES_PASSWORD": "ingrediate",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(postgresPort, "pgx", dsn),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, postgresPort)
	require.NoError(t, err)

	return dsn(host, port)
}
