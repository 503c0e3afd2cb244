// Package testutil starts throwaway backing services for integration tests.
// Tests are skipped under -short or when no Docker daemon is reachable.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	// GenericContainer panics when no provider is reachable; skip first
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("container %s unavailable: %v", req.Image, err)
	}

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = container.Terminate(cleanupCtx)
	})
	return container, ctx
}

// endpoint returns host:port of the container's single exposed port
func endpoint(t *testing.T, ctx context.Context, c testcontainers.Container) string {
	t.Helper()
	ep, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("container endpoint: %v", err)
	}
	return ep
}
