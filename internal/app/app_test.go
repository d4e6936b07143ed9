package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photogram/internal/db"
	"photogram/internal/media"
)

// =============================================================================
// Config
// =============================================================================

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8081")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("RATE_LIMIT_AUTH_REQUESTS", "7")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 7, cfg.Server.RateLimit.AuthRequests)
	assert.Equal(t, db.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, media.ProviderLocal, cfg.Media.Provider)
	assert.Equal(t, "instagram-mvp", cfg.Media.Folder)
	assert.EqualValues(t, media.DefaultMaxUploadBytes, cfg.Media.MaxUploadBytes)
	assert.True(t, cfg.Server.SecureCookies)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "auth:\n  jwt_secret: from-file\nmedia:\n  folder: pics\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "pics", cfg.Media.Folder)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = "s"
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Database.Driver = "mysql"
	bad.Media.Provider = "ftp"
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown database driver "mysql"`)
	assert.Contains(t, err.Error(), `unknown media provider "ftp"`)

	bad = *cfg
	bad.Media.Provider = media.ProviderCloudinary
	assert.ErrorContains(t, bad.Validate(), "cloudinary requires")

	bad = *cfg
	bad.Media.Provider = media.ProviderS3
	assert.ErrorContains(t, bad.Validate(), "s3 requires a bucket")
}

// =============================================================================
// Wiring
// =============================================================================

func TestNewServesHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = "wiring-secret"
	cfg.Database.DSN = filepath.Join(dir, "app.db")
	cfg.Media.Local.Dir = filepath.Join(dir, "uploads")

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	w := httptest.NewRecorder()
	a.Server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	srv := a.HTTPServer()
	assert.Equal(t, cfg.Server.Addr, srv.Addr)
	assert.DirExists(t, filepath.Join(dir, "uploads", "instagram-mvp"))
}

// =============================================================================
// HTTPService
// =============================================================================

type fakeServer struct {
	mu       sync.Mutex
	listenFn func() error
	stop     chan struct{}
	shutdown bool
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenFn != nil {
		return f.listenFn()
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	close(f.stop)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.True(t, srv.shutdown)
	assert.Equal(t, "http-server", svc.String())
}

func TestHTTPServiceListenError(t *testing.T) {
	boom := errors.New("address in use")
	svc := NewHTTPService(&fakeServer{listenFn: func() error { return boom }}, 0)

	err := svc.Serve(context.Background())
	assert.ErrorIs(t, err, boom)
}
