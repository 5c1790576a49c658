package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveriehq/reverie/internal/config"
	"github.com/reveriehq/reverie/internal/engine"
	"github.com/reveriehq/reverie/internal/extract"
	"github.com/reveriehq/reverie/internal/llm/mockllm"
	"github.com/reveriehq/reverie/internal/storage/sqlite"
	"github.com/reveriehq/reverie/pkg/types"
)

func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	embedder := &mockllm.Embedder{}
	store, err := sqlite.NewMemoryStore(":memory:", embedder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	generator := &mockllm.Generator{Response: `{"facts":[],"emotions":[]}`}
	eng := engine.New(store, extract.NewExtractor(generator), embedder, cfg.Engine)
	eng.Start()
	t.Cleanup(eng.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, hub, err := Start(ctx, cfg, eng)
	require.NoError(t, err)
	require.NotNil(t, hub)
	return "http://" + addr
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{Mode: "development"},
		Engine: config.EngineConfig{
			TaskPause:     2 * time.Millisecond,
			RecallTimeout: time.Second,
			DecayInterval: time.Hour,
		},
	}
}

func TestServerRoutes(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/api/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	resp.Body.Close()

	// Enqueue a turn.
	resp, err = http.Post(base+"/api/turns", "application/json",
		strings.NewReader(`{"user_id":"u1","user_message":"hello","assistant_reply":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var turn struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	resp.Body.Close()
	assert.NotEmpty(t, turn.TaskID)

	// Queue status reflects the accepted task.
	var status types.QueueStatus
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(base + "/api/queue")
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		resp.Body.Close()
		if status.Stats.TotalProcessed == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int64(1), status.Stats.TotalQueued)
	assert.Equal(t, int64(1), status.Stats.TotalProcessed)

	// Recall and mood respond even with nothing stored.
	resp, err = http.Post(base+"/api/recall", "application/json",
		strings.NewReader(`{"user_id":"u1","message":"anything"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base + "/api/mood")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestServerMethodNotAllowed(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/api/turns")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(base+"/api/queue", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestServerProductionAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{Mode: "production", APIToken: "secret"}
	base := startTestServer(t, cfg)

	// Health stays open.
	resp, err := http.Get(base + "/api/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// API routes need the token.
	resp, err = http.Get(base + "/api/queue")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, base+"/api/queue", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
