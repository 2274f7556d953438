package state

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adobe/aio-lib-state-go/internal/sandbox"
	"github.com/adobe/aio-lib-state-go/internal/sandbox/server"
)

const (
	testNamespace = "ns"
	testAPIKey    = "secret"
)

// countingExecutor records how many requests reached the wire.
type countingExecutor struct {
	next  Executor
	calls atomic.Int32
}

func (c *countingExecutor) Do(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.Do(req)
}

// executorFunc adapts a function to Executor.
type executorFunc func(*http.Request) (*http.Response, error)

func (f executorFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func newSandboxServer(t *testing.T, opts server.Options) (*httptest.Server, *sandbox.MemoryStore) {
	t.Helper()
	store := sandbox.NewMemoryStore()
	srv := httptest.NewServer(server.New(store, opts).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func newTestClient(t *testing.T, opts server.Options) (*Client, *countingExecutor, *sandbox.MemoryStore) {
	t.Helper()
	srv, store := newSandboxServer(t, opts)
	exec := &countingExecutor{next: srv.Client()}
	client, err := Init(context.Background(), Config{
		Namespace: testNamespace,
		APIKey:    testAPIKey,
		Endpoint:  srv.URL,
		Executor:  exec,
	})
	require.NoError(t, err)
	return client, exec, store
}
