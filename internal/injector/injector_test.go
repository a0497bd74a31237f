package injector

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/config"
	"github.com/zeusync/scenewalk/internal/core/camera"
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory/remote"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func TestProvideLayout(t *testing.T) {
	cfg := config.Default()
	lay, err := ProvideLayout(cfg)
	require.NoError(t, err)
	assert.Equal(t, layout.Default(), lay)

	cfg.LayoutFile = filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(cfg.LayoutFile, []byte("camera:\n  main_tag: 9\n"), 0o600))
	lay, err = ProvideLayout(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), lay.Camera.MainTag)
}

func TestProvideOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Schema = "legacy"
	cfg.Scan.ManagedPolicy = "skip"
	cfg.Scan.EnabledPolicy = "closed"

	logger, cleanup, err := ProvideLogger(cfg)
	require.NoError(t, err)
	defer cleanup()

	opts, err := ProvideOptions(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, registry.SchemaLegacy, opts.Schema)
	assert.Equal(t, registry.SkipUnmanaged, opts.ManagedPolicy)
	assert.Equal(t, camera.FailClosed, opts.EnabledPolicy)
	assert.Equal(t, 4, opts.Workers)
}

func TestInitializeSession_Remote(t *testing.T) {
	demo := scenetest.NewDemo(layout.Default())
	srv := httptest.NewServer(remote.NewServer(demo.Image))
	defer srv.Close()

	cfg := config.Default()
	cfg.Log.Level = "silent"
	cfg.Backend = config.BackendConfig{
		Kind:    config.BackendRemote,
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Timeout: 2 * time.Second,
	}
	cfg.Target.Bootstrap = demo.Bootstrap.String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, cleanup, err := InitializeSession(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	entities, err := session.Entities()
	require.NoError(t, err)
	assert.Len(t, entities, len(demo.Entities))

	e, _, m, err := session.MainCamera()
	require.NoError(t, err)
	assert.Equal(t, demo.Entities[3].Address, e.Address)
	assert.Equal(t, camera.Matrix(scenetest.DemoMatrix), m)
}

func TestInitializeSession_QUIC(t *testing.T) {
	demo := scenetest.NewDemo(layout.Default())
	serverTLS, _, err := remote.SelfSignedTLS()
	require.NoError(t, err)
	ln, err := remote.ListenQUIC("127.0.0.1:0", serverTLS)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = remote.NewServer(demo.Image).ServeQUIC(ctx, ln) }()
	defer ln.Close()

	cfg := config.Default()
	cfg.Log.Level = "silent"
	cfg.Backend = config.BackendConfig{
		Kind:     config.BackendQUIC,
		URL:      ln.Addr().String(),
		Timeout:  2 * time.Second,
		Insecure: true,
	}
	cfg.Target.Bootstrap = demo.Bootstrap.String()

	session, cleanup, err := InitializeSession(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	e, err := session.FindByName("Player")
	require.NoError(t, err)
	assert.Equal(t, demo.Entities[1].Address, e.Address)
}

func TestProvideReader_BadCAFile(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendConfig{Kind: config.BackendQUIC, URL: "127.0.0.1:1"}
	cfg.Backend.CAFile = filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(cfg.Backend.CAFile, []byte("not pem"), 0o600))

	logger, cleanup, err := ProvideLogger(cfg)
	require.NoError(t, err)
	defer cleanup()

	_, _, err = ProvideReader(context.Background(), cfg, logger)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestInitializeSession_NoTarget(t *testing.T) {
	demo := scenetest.NewDemo(layout.Default())
	srv := httptest.NewServer(remote.NewServer(demo.Image))
	defer srv.Close()

	cfg := config.Default()
	cfg.Log.Level = "silent"
	cfg.Backend = config.BackendConfig{Kind: config.BackendRemote, URL: "ws" + strings.TrimPrefix(srv.URL, "http")}

	_, _, err := InitializeSession(context.Background(), cfg)
	require.Error(t, err)
}
