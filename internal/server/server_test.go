package server

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/player"
)

// fakeController records calls and serves canned stats.
type fakeController struct {
	mu      sync.Mutex
	playErr error
	calls   []string
	stats   player.Stats
}

func (c *fakeController) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeController) Play() error {
	c.record("play")
	return c.playErr
}
func (c *fakeController) Pause() { c.record("pause") }
func (c *fakeController) Stop()  { c.record("stop") }
func (c *fakeController) Seek(seconds float64) {
	c.record("seek")
	c.mu.Lock()
	c.stats.Position = seconds
	c.mu.Unlock()
}
func (c *fakeController) SetVolume(volume int) {
	c.record("volume")
	c.mu.Lock()
	c.stats.Volume = volume
	c.mu.Unlock()
}
func (c *fakeController) SetLoop(loop bool) {
	c.record("loop")
	c.mu.Lock()
	c.stats.Loop = loop
	c.mu.Unlock()
}
func (c *fakeController) Stats() player.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *fakeController) called() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func newTestServer(t *testing.T, ctrl *fakeController) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	return New(cfg, logger.NewNullLogger(), ctrl)
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_StatsEndpoint(t *testing.T) {
	ctrl := &fakeController{stats: player.Stats{State: "playing", Path: "clip.mp4", Volume: 80}}
	s := newTestServer(t, ctrl)

	rec := do(s, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"playing"`)
	assert.Contains(t, rec.Body.String(), `"path":"clip.mp4"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_ControlEndpoints(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl)

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/play").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/pause").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/stop").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/seek?t=12.5").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/volume?v=30").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/loop?on=true").Code)

	assert.Equal(t, []string{"play", "pause", "stop", "seek", "volume", "loop"}, ctrl.called())
	assert.Equal(t, 12.5, ctrl.Stats().Position)
	assert.Equal(t, 30, ctrl.Stats().Volume)
	assert.True(t, ctrl.Stats().Loop)
}

func TestServer_ControlValidation(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/seek?t=later").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/volume?v=150").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/loop?on=maybe").Code)
	assert.Empty(t, ctrl.called(), "invalid requests must not reach the player")
}

func TestServer_PlayErrorMapsToConflict(t *testing.T) {
	ctrl := &fakeController{playErr: assert.AnError}
	s := newTestServer(t, ctrl)

	rec := do(s, http.MethodPost, "/api/v1/play")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestServer_MethodsEnforced(t *testing.T) {
	s := newTestServer(t, &fakeController{})

	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodGet, "/api/v1/play").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodPost, "/api/v1/stats").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodPost, "/healthz").Code)
}

func TestServer_HealthAndVersion(t *testing.T) {
	s := newTestServer(t, &fakeController{stats: player.Stats{State: "stopped"}})

	rec := do(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(s, http.MethodGet, "/version")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{})

	rec := do(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
