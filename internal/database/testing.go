package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/turf-ledger/internal/config"
)

// TestDatabaseEnv names the config file used by integration tests.
// Tests calling SetupTestDB are skipped when it is unset.
const TestDatabaseEnv = "TURF_LEDGER_TEST_CONFIG"

// SetupTestDB creates a test database connection and verifies it
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestDatabaseEnv)
	if path == "" {
		t.Skipf("integration test: set %s to a config file pointing at a test database", TestDatabaseEnv)
	}

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}
