// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Listen:          "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     30 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 2 * time.Second,
	}
}

func testDeps(h http.Handler) Deps {
	return Deps{Logger: log.WithComponent("test"), APIHandler: h}
}

func startManager(t *testing.T, mgr Manager) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	select {
	case <-mgr.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("manager failed to start: %v", err)
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatal("manager did not become ready")
	}
	return cancel, errCh
}

func waitStopped(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("manager.Start did not return after cancellation")
		return nil
	}
}

func TestNewManagerValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()})
	assert.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)

	mgr, err := NewManager(testServerConfig(), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestManagerServesUntilCancelled(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), testDeps(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "zonewatch")
	})))
	require.NoError(t, err)

	cancel, errCh := startManager(t, mgr)
	addr := mgr.APIAddr()
	require.NotEmpty(t, addr)

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "zonewatch", string(body))

	cancel()
	assert.NoError(t, waitStopped(t, errCh))

	_, err = client.Get("http://" + addr + "/")
	assert.Error(t, err)
}

func TestManagerServesMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	deps := testDeps(http.NotFoundHandler())
	deps.MetricsAddr = metricsAddr
	deps.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "zonewatch_up 1\n")
	})
	mgr, err := NewManager(testServerConfig(), deps)
	require.NoError(t, err)

	cancel, errCh := startManager(t, mgr)
	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "zonewatch_up")

	cancel()
	assert.NoError(t, waitStopped(t, errCh))
}

func TestManagerListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testServerConfig()
	cfg.Listen = ln.Addr().String()
	mgr, err := NewManager(cfg, testDeps(http.NotFoundHandler()))
	require.NoError(t, err)

	var hookRan bool
	mgr.RegisterShutdownHook("store", func(context.Context) error {
		hookRan = true
		return nil
	})

	err = mgr.Start(context.Background())
	assert.ErrorIs(t, err, ErrServerStartFailed)
	assert.True(t, hookRan, "hooks release resources when start fails")
}

func TestManagerShutdownHooksRunLIFO(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	mgr.RegisterShutdownHook("store", record("store", nil))
	mgr.RegisterShutdownHook("telemetry", record("telemetry", errors.New("exporter unreachable")))
	mgr.RegisterShutdownHook("watcher", record("watcher", nil))

	cancel, errCh := startManager(t, mgr)
	cancel()
	err = waitStopped(t, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook telemetry")
	assert.Equal(t, []string{"watcher", "telemetry", "store"}, order)

	assert.NoError(t, mgr.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManagerShutdownNotStarted(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
	assert.Error(t, mgr.Shutdown(nil)) //nolint:staticcheck // nil context is rejected
}

func TestManagerStartTwice(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), testDeps(http.NotFoundHandler()))
	require.NoError(t, err)
	cancel, errCh := startManager(t, mgr)
	assert.Error(t, mgr.Start(context.Background()))
	cancel()
	assert.NoError(t, waitStopped(t, errCh))
}
