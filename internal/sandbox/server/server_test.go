package server_test

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aio-lib-state-go/internal/sandbox"
	"github.com/adobe/aio-lib-state-go/internal/sandbox/server"
	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

const base = "/v1beta1/containers/ns"

func basic(key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(key))
}

func newTestServer(t *testing.T, opts server.Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(server.New(sandbox.NewMemoryStore(), opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", basic("secret"))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServerServesStateRoutes(t *testing.T) {
	srv := newTestServer(t, server.Options{})

	resp := do(t, srv, http.MethodGet, base+"/data/greeting", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(stateapi.HeaderRequestID))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, base+"/data/greeting", "hello").StatusCode)

	resp = do(t, srv, http.MethodGet, base+"/data/greeting", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodHead, base, "").StatusCode)
}

func TestServerKeepsCallerRequestID(t *testing.T) {
	srv := newTestServer(t, server.Options{})

	req, err := http.NewRequest(http.MethodHead, srv.URL+base, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", basic("secret"))
	req.Header.Set(stateapi.HeaderRequestID, "req-42")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(stateapi.HeaderRequestID))
}

func TestServerMaxValueSize(t *testing.T) {
	srv := newTestServer(t, server.Options{MaxValueSize: 4})

	resp := do(t, srv, http.MethodPut, base+"/data/k", "12345")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var body stateapi.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Message)
}

func TestServerAuth(t *testing.T) {
	srv := newTestServer(t, server.Options{APIKeys: map[string]string{"ns": "secret"}})

	req, err := http.NewRequest(http.MethodHead, srv.URL+base, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", basic("wrong"))
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodHead, base, "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, base+"/data/k", "v").StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodHead, "/v1beta1/containers/other", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodGet, "/v1beta1/containers/other/data/k", "").StatusCode)
}

func TestServerRateLimit(t *testing.T) {
	srv := newTestServer(t, server.Options{RateLimit: 0.001, Burst: 1})

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodHead, base, "").StatusCode)
	resp := do(t, srv, http.MethodHead, base, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestServerFailureInjection(t *testing.T) {
	srv := newTestServer(t, server.Options{Fail: sandbox.FailConfig{Rate: 1, Code: http.StatusServiceUnavailable}})

	resp := do(t, srv, http.MethodGet, base+"/data/k", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	health, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestServerCORS(t *testing.T) {
	srv := newTestServer(t, server.Options{AllowedOrigins: []string{"https://app.example"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+base+"/data/k", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewLeavesGinModeAlone(t *testing.T) {
	prev := gin.Mode()
	t.Cleanup(func() { gin.SetMode(prev) })

	gin.SetMode(gin.TestMode)
	server.New(sandbox.NewMemoryStore(), server.Options{})
	assert.Equal(t, gin.TestMode, gin.Mode())

	gin.SetMode(gin.DebugMode)
	server.New(sandbox.NewMemoryStore(), server.Options{})
	assert.Equal(t, gin.DebugMode, gin.Mode())
}
