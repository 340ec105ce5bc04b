// Package testmongo starts throwaway MongoDB servers for store and migration tests.
package testmongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const defaultImage = "mongo:7"

// Image returns the MongoDB image under test, overridable with
// BOTFRONT_TEST_MONGO_IMAGE to check against the server version a deployment runs.
func Image() string {
	if img := os.Getenv("BOTFRONT_TEST_MONGO_IMAGE"); img != "" {
		return img
	}
	return defaultImage
}

// StartMongo starts a disposable MongoDB container and returns its connection URI.
// The container is terminated when the test finishes.
func StartMongo(tb testing.TB) string {
	tb.Helper()

	ctx := context.Background()
	container, err := mongodb.Run(ctx, Image())
	if err != nil {
		tb.Fatalf("start %s container: %v", Image(), err)
	}
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			tb.Errorf("terminate mongodb container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		tb.Fatalf("mongodb connection string: %v", err)
	}
	return uri
}
