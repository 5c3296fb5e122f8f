package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishankoza/svcsync/internal/app"
	"github.com/dishankoza/svcsync/internal/config"
	"github.com/dishankoza/svcsync/internal/registry"
	"github.com/dishankoza/svcsync/internal/rpc"
	"github.com/dishankoza/svcsync/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Node.ID = "test-node"
	cfg.Clock.Period = 10 * time.Millisecond
	cfg.Discovery = config.DiscoveryConfig{
		Mode:   config.DiscoveryStatic,
		Static: map[string][]string{"svc-a": {"10.0.0.1"}},
	}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Store = config.StoreConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "svcsync.db")}
	cfg.Shutdown.Grace = 2 * time.Second
	cfg.PopulateDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func start(t *testing.T, cfg *config.Config) (*app.App, context.CancelFunc, <-chan error) {
	t.Helper()
	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	return a, cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
}

func getService(t *testing.T, base, name string) (registry.Service, int) {
	t.Helper()
	resp, err := http.Get(base + "/v1/services/" + name)
	require.NoError(t, err)
	defer resp.Body.Close()
	var svc registry.Service
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&svc))
	}
	return svc, resp.StatusCode
}

func TestNodeServesAndPersists(t *testing.T) {
	cfg := testConfig(t)
	a, cancel, done := start(t, cfg)
	base := fmt.Sprintf("http://%s", a.HTTPAddr())

	resp, err := http.Get(base + "/svc-a/checkout")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored registry.Service
	require.Eventually(t, func() bool {
		svc, code := getService(t, base, "svc-a")
		stored = svc
		return code == http.StatusOK && !svc.Version.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	client, err := rpc.Dial(a.GRPCAddr().String())
	require.NoError(t, err)
	defer client.Close()
	viaGRPC, err := client.Lookup(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, stored.Version, viaGRPC.Version)

	stop(t, cancel, done)

	st, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer st.Close()
	persisted, err := st.Get(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, stored.Version, persisted.Version)
}

func TestNodeRestoresFromStore(t *testing.T) {
	cfg := testConfig(t)
	a, cancel, done := start(t, cfg)
	base := fmt.Sprintf("http://%s", a.HTTPAddr())
	resp, err := http.Get(base + "/svc-a")
	require.NoError(t, err)
	resp.Body.Close()
	var first registry.Service
	require.Eventually(t, func() bool {
		svc, code := getService(t, base, "svc-a")
		first = svc
		return code == http.StatusOK && !svc.Version.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
	stop(t, cancel, done)

	a, cancel, done = start(t, cfg)
	defer stop(t, cancel, done)
	base = fmt.Sprintf("http://%s", a.HTTPAddr())

	restored, code := getService(t, base, "svc-a")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.Version, restored.Version)

	client, err := rpc.Dial(a.GRPCAddr().String())
	require.NoError(t, err)
	defer client.Close()
	next, err := client.Now(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Version.Less(next), "a restarted node stamps past restored versions")
}

func TestNewRejectsBadDiscovery(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discovery.Mode = "dns"

	_, err := app.New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrUnknownDiscoveryMode)
}
