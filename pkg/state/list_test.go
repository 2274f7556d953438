package state

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aio-lib-state-go/internal/sandbox/server"
)

func TestListPaginatesEveryKey(t *testing.T) {
	client, exec, store := newTestClient(t, server.Options{})
	ctx := context.Background()

	want := make([]string, 0, 250)
	for i := range 250 {
		key := fmt.Sprintf("job-%03d", i)
		want = append(want, key)
		require.NoError(t, store.Put(ctx, testNamespace, key, "v", time.Hour))
	}
	require.NoError(t, store.Put(ctx, testNamespace, "other", "v", time.Hour))

	it, err := client.List(ctx, &ListOptions{Match: "job-*", CountHint: 100})
	require.NoError(t, err)
	assert.Zero(t, exec.calls.Load())

	got, err := it.All()
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, want, got)
	assert.EqualValues(t, 3, exec.calls.Load())
}

func TestListPagesSequence(t *testing.T) {
	client, _, store := newTestClient(t, server.Options{})
	ctx := context.Background()
	for i := range 150 {
		require.NoError(t, store.Put(ctx, testNamespace, fmt.Sprintf("k%d", i), "v", time.Hour))
	}

	it, err := client.List(ctx, &ListOptions{CountHint: 100})
	require.NoError(t, err)

	var sizes []int
	for keys, err := range it.Pages() {
		require.NoError(t, err)
		sizes = append(sizes, len(keys))
	}
	assert.Equal(t, []int{100, 50}, sizes)
}

// scriptedPages serves canned list pages and records the cursors it was sent.
func scriptedPages(t *testing.T, pages []string) (Executor, *[]string) {
	t.Helper()
	var cursors []string
	return executorFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		cursors = append(cursors, q.Get(queryCursor))
		body := pages[len(cursors)-1]
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}), &cursors
}

func TestListFollowsOpaqueCursorsAndDedupes(t *testing.T) {
	exec, cursors := scriptedPages(t, []string{
		`{"keys":["a","b"],"cursor":17}`,
		`{"keys":["b","c"],"cursor":"42"}`,
		`{"keys":["d"],"cursor":0}`,
	})
	client, err := Init(context.Background(), Config{Namespace: "ns", APIKey: "k", Endpoint: "http://state.local", Executor: exec})
	require.NoError(t, err)

	it, err := client.List(context.Background(), nil)
	require.NoError(t, err)
	keys, err := it.All()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	assert.Equal(t, []string{"0", "17", "42"}, *cursors)
}

func TestListForwardsCursorVerbatim(t *testing.T) {
	exec, cursors := scriptedPages(t, []string{
		`{"keys":["a"],"cursor":" abc "}`,
		`{"keys":["b"],"cursor":0}`,
	})
	client, err := Init(context.Background(), Config{Namespace: "ns", APIKey: "k", Endpoint: "http://state.local", Executor: exec})
	require.NoError(t, err)

	it, err := client.List(context.Background(), nil)
	require.NoError(t, err)
	keys, err := it.All()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, []string{"0", " abc "}, *cursors)
}

func TestListUsesContextFromList(t *testing.T) {
	var seen []context.Context
	exec := executorFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.Context())
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"keys":["a"],"cursor":5}`)),
		}, nil
	})
	client, err := Init(context.Background(), Config{Namespace: "ns", APIKey: "k", Endpoint: "http://state.local", Executor: exec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	it, err := client.List(ctx, nil)
	require.NoError(t, err)

	require.True(t, it.Next())
	assert.Equal(t, []string{"a"}, it.Keys())

	cancel()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), context.Canceled)
	require.Len(t, seen, 2)
	assert.ErrorIs(t, seen[1].Err(), context.Canceled)
}

func TestListRestartsOnEveryCall(t *testing.T) {
	client, exec, store := newTestClient(t, server.Options{})
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testNamespace, "only", "v", time.Hour))

	for range 2 {
		it, err := client.List(ctx, nil)
		require.NoError(t, err)
		keys, err := it.All()
		require.NoError(t, err)
		assert.Equal(t, []string{"only"}, keys)
	}
	assert.EqualValues(t, 2, exec.calls.Load())
}

func TestListSurfacesErrors(t *testing.T) {
	client, err := Init(context.Background(), Config{
		Namespace: "ns",
		APIKey:    "k",
		Endpoint:  "http://state.local",
		Executor: executorFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}),
	})
	require.NoError(t, err)

	it, err := client.List(context.Background(), &ListOptions{Match: "x*"})
	require.NoError(t, err)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrUnauthorized)

	var seen []error
	for _, err := range it.Pages() {
		seen = append(seen, err)
	}
	assert.Len(t, seen, 1)
}

func TestListSendsMatchAndCountHint(t *testing.T) {
	var query url.Values
	client, err := Init(context.Background(), Config{
		Namespace: "ns",
		APIKey:    "k",
		Endpoint:  "http://state.local",
		Executor: executorFunc(func(req *http.Request) (*http.Response, error) {
			query = req.URL.Query()
			return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
		}),
	})
	require.NoError(t, err)

	it, err := client.List(context.Background(), &ListOptions{CountHint: 500})
	require.NoError(t, err)
	keys, err := it.All()
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, "*", query.Get(queryMatch))
	assert.Equal(t, "500", query.Get(queryCountHint))
	assert.Equal(t, "0", query.Get(queryCursor))
}
