//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"stockroom/internal/store"
)

// Environment variable names for integration test configuration.
const (
	EnvMongoURI         = "INTEGRATION_MONGO_URI"
	EnvMongoDatabase    = "INTEGRATION_MONGO_DATABASE"
	EnvDynamoRegion     = "INTEGRATION_DYNAMO_REGION"
	EnvDynamoEndpoint   = "INTEGRATION_DYNAMO_ENDPOINT"
	EnvDynamoItemsTable = "INTEGRATION_DYNAMO_ITEMS_TABLE"
	EnvDynamoUsersTable = "INTEGRATION_DYNAMO_USERS_TABLE"
)

// Default configuration values. The MongoDB and DynamoDB defaults match
// the docker-compose development setup.
const (
	DefaultMongoURI         = "mongodb://localhost:27017"
	DefaultMongoDatabase    = "stockroom_integration"
	DefaultDynamoRegion     = "us-east-1"
	DefaultDynamoEndpoint   = "http://localhost:8000"
	DefaultDynamoItemsTable = "stockroom_items"
	DefaultDynamoUsersTable = "stockroom_users"
	DefaultTimeout          = 10 * time.Second
	ConnectTimeout          = 3 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// connectMongo connects to the MongoDB instance configured through the
// environment and skips the test when it is unreachable. The connection
// is closed when the test finishes.
func connectMongo(t *testing.T) *store.MongoStore {
	t.Helper()

	uri := getEnvOrDefault(EnvMongoURI, DefaultMongoURI)
	database := getEnvOrDefault(EnvMongoDatabase, DefaultMongoDatabase)

	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()

	st, err := store.ConnectMongo(ctx, uri, database)
	if err != nil {
		t.Skipf("MongoDB unavailable at %s: %v", uri, err)
	}

	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), ConnectTimeout)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			t.Logf("Failed to close MongoDB connection: %v", err)
		}
	})

	return st
}

// connectDynamo connects to the DynamoDB instance configured through the
// environment and skips the test when it is unreachable. dynamodb-local
// accepts any static credentials, so placeholders are injected when the
// environment carries none.
func connectDynamo(t *testing.T) *store.DynamoStore {
	t.Helper()

	if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		t.Setenv("AWS_ACCESS_KEY_ID", "local")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "local")
	}

	opts := store.DynamoOptions{
		Region:     getEnvOrDefault(EnvDynamoRegion, DefaultDynamoRegion),
		Endpoint:   getEnvOrDefault(EnvDynamoEndpoint, DefaultDynamoEndpoint),
		ItemsTable: getEnvOrDefault(EnvDynamoItemsTable, DefaultDynamoItemsTable),
		UsersTable: getEnvOrDefault(EnvDynamoUsersTable, DefaultDynamoUsersTable),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()

	st, err := store.ConnectDynamo(ctx, opts)
	if err != nil {
		t.Skipf("DynamoDB unavailable at %s: %v", opts.Endpoint, err)
	}

	return st
}

// uniqueName returns a name that no earlier test run can have left
// behind, so tests stay independent of database state.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// testContext returns a context bounded by the default test timeout.
func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// cleanupItem removes an item after the test, tolerating the item
// already being gone.
func cleanupItem(t *testing.T, st store.ItemStore, id string) {
	t.Helper()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
		defer cancel()
		_ = st.Delete(ctx, id)
	})
}
