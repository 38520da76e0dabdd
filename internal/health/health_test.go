package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

// mockLogger records error messages; the serve loop logs from its own goroutine.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestServer_HealthAllPassing(t *testing.T) {
	s := NewServer(0, "v1.2.3", &mockLogger{})
	s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "block 123" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "v1.2.3", status.Version)
	assert.Equal(t, Check{Healthy: true, Message: "block 123"}, status.Checks["rpc"])
}

func TestServer_HealthDegraded(t *testing.T) {
	s := NewServer(0, "dev", &mockLogger{})
	s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "" })
	s.RegisterCheck("monitor", func(context.Context) (bool, string) { return false, "stopped" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Checks["monitor"].Healthy)
}

func TestServer_ReadyAndLive(t *testing.T) {
	s := NewServer(0, "dev", &mockLogger{})
	healthy := false
	s.RegisterCheck("monitor", func(context.Context) (bool, string) { return healthy, "" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	healthy = true
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, "alive", rec.Body.String())
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(0, "dev", &mockLogger{})
	require.NoError(t, s.Start())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_ServeErrorIsLogged(t *testing.T) {
	log := &mockLogger{}
	s := NewServer(0, "dev", log)
	require.NoError(t, s.Start())

	// Closing the listener underneath Serve is a failure, not a shutdown.
	require.NoError(t, s.ln.Close())

	require.Eventually(t, func() bool { return log.errorCount() == 1 }, time.Second, 5*time.Millisecond)
	log.mu.Lock()
	assert.Equal(t, "health server stopped", log.errors[0])
	log.mu.Unlock()
}

func TestServer_GracefulStopIsNotLogged(t *testing.T) {
	log := &mockLogger{}
	s := NewServer(0, "dev", log)
	require.NoError(t, s.Start())

	require.NoError(t, s.Stop(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, log.errorCount())
}
