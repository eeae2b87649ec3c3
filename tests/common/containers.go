package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	portalBuildOnce  sync.Once
	portalBuildError error
	portalContainer  *PortalEnvironment
	portalOnce       sync.Once
	portalStartErr   error
)

// PortalEnvironment wraps a testcontainers stack: Metaversal backend + portal
// on a shared Docker network.
type PortalEnvironment struct {
	portal  testcontainers.Container
	backend testcontainers.Container
	network *testcontainers.DockerNetwork
	ctx     context.Context
	cancel  context.CancelFunc
	url     string
}

// URL returns the base URL of the running portal container.
func (p *PortalEnvironment) URL() string {
	return p.url
}

// CollectLogs saves container stdout/stderr to dir/.
func (p *PortalEnvironment) CollectLogs(dir string) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	os.MkdirAll(dir, 0755)

	collect := func(c testcontainers.Container, name string) {
		if c == nil {
			return
		}
		reader, err := c.Logs(ctx)
		if err != nil {
			return
		}
		defer reader.Close()

		logs, err := io.ReadAll(reader)
		if err != nil {
			return
		}
		os.WriteFile(filepath.Join(dir, name+".log"), logs, 0644)
	}

	collect(p.portal, "portal")
	collect(p.backend, "backend")
}

// Cleanup tears down the containers and the network. Uses a fresh context in
// case the main context expired.
func (p *PortalEnvironment) Cleanup() {
	if p == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	if p.portal != nil {
		p.portal.Terminate(cleanupCtx)
	}
	if p.backend != nil {
		p.backend.Terminate(cleanupCtx)
	}
	if p.network != nil {
		p.network.Remove(cleanupCtx)
	}
	if p.cancel != nil {
		p.cancel()
	}
}

// FindProjectRoot walks up from the working directory to the go.mod root.
func FindProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

// buildPortalImage builds the asset-portal:test Docker image once per run.
func buildPortalImage() error {
	portalBuildOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    FindProjectRoot(),
					Dockerfile: "tests/docker/Dockerfile",
					Repo:       "asset-portal",
					Tag:        "test",
					KeepImage:  true,
				},
			},
		}

		_, portalBuildError = testcontainers.GenericContainer(ctx, req)
		if portalBuildError != nil {
			// Image may have built successfully even if container creation failed
			if strings.Contains(portalBuildError.Error(), "asset-portal:test") {
				portalBuildError = nil
			}
		}
	})
	return portalBuildError
}

// backendImage returns the Metaversal backend image to run against. The
// backend is a separate repo; its image must be built beforehand.
func backendImage() string {
	if img := os.Getenv("METAVERSAL_BACKEND_IMAGE"); img != "" {
		return img
	}
	return "metaversal-backend:test"
}

// startTestEnvironment creates the backend + portal stack on a shared
// Docker network.
func startTestEnvironment() (*PortalEnvironment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)

	testNet, err := network.New(ctx, network.WithCheckDuplicate())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create docker network: %w", err)
	}

	backendCtr, err := testcontainers.Run(ctx, backendImage(),
		testcontainers.WithExposedPorts("3001/tcp"),
		network.WithNetwork([]string{"metaversal-backend"}, testNet),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("3001/tcp").WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		testNet.Remove(ctx)
		cancel()
		return nil, fmt.Errorf("start backend: %w", err)
	}

	// Use the container IP directly (bypass Docker DNS for CGO_ENABLED=0)
	backendIP, err := backendCtr.ContainerIP(ctx)
	if err != nil {
		backendCtr.Terminate(ctx)
		testNet.Remove(ctx)
		cancel()
		return nil, fmt.Errorf("get backend IP: %w", err)
	}

	portalCtr, err := testcontainers.Run(ctx, "asset-portal:test",
		testcontainers.WithExposedPorts("4361/tcp"),
		network.WithNetwork([]string{"asset-portal"}, testNet),
		testcontainers.WithEnv(map[string]string{
			"PORTAL_BACKEND_BASE_URL": fmt.Sprintf("http://%s:3001", backendIP),
			"PORTAL_PROVIDER_APP_ID":  "ui-test-app",
			"PORTAL_ENV":              "dev",
			"PORTAL_SERVER_HOST":      "0.0.0.0",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/api/health").WithPort("4361/tcp").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		backendCtr.Terminate(ctx)
		testNet.Remove(ctx)
		cancel()
		return nil, fmt.Errorf("start portal: %w", err)
	}

	mappedPort, err := portalCtr.MappedPort(ctx, "4361/tcp")
	if err != nil {
		portalCtr.Terminate(ctx)
		backendCtr.Terminate(ctx)
		testNet.Remove(ctx)
		cancel()
		return nil, fmt.Errorf("get portal mapped port: %w", err)
	}

	host, err := portalCtr.Host(ctx)
	if err != nil {
		portalCtr.Terminate(ctx)
		backendCtr.Terminate(ctx)
		testNet.Remove(ctx)
		cancel()
		return nil, fmt.Errorf("get portal host: %w", err)
	}

	return &PortalEnvironment{
		portal:  portalCtr,
		backend: backendCtr,
		network: testNet,
		ctx:     ctx,
		cancel:  cancel,
		url:     fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}, nil
}

// StartPortal starts the container stack (once per test process). Returns nil
// when PORTAL_TEST_URL is set: manual mode, tests use the existing server.
func StartPortal(t *testing.T) *PortalEnvironment {
	t.Helper()
	if os.Getenv("PORTAL_TEST_URL") != "" {
		return nil
	}

	portalOnce.Do(func() {
		if err := buildPortalImage(); err != nil {
			portalStartErr = fmt.Errorf("build portal image: %w", err)
			return
		}
		var err error
		portalContainer, err = startTestEnvironment()
		if err != nil {
			portalStartErr = err
		}
	})

	if portalStartErr != nil {
		t.Fatalf("Failed to start test environment: %v", portalStartErr)
	}
	return portalContainer
}
