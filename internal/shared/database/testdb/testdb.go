//go:build integration

// Package testdb starts a disposable postgres for repository integration tests.
package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/clusterhub/server/internal/shared/config"
	"github.com/clusterhub/server/internal/shared/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// TestDB wraps a migrated test database with cleanup helpers.
type TestDB struct {
	DB        *gorm.DB
	Config    *config.DatabaseConfig
	Container testcontainers.Container
}

// Setup starts a postgres container, applies the embedded migrations and
// registers cleanup on t.
func Setup(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "clusterhub_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		Database: "clusterhub_test",
		SSLMode:  "disable",
	}

	if err := database.Migrate(cfg); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close(db)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{DB: db, Config: cfg, Container: container}
}

// CleanTables truncates every application table.
func (tdb *TestDB) CleanTables(t *testing.T) {
	t.Helper()

	tables := []string{
		"comments",
		"tasks",
		"stages",
		"project_files",
		"invitations",
		"project_investors",
		"projects",
		"users",
	}
	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
