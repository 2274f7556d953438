package state

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aio-lib-state-go/internal/httpx"
)

func httpResponse(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClassifyStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusBadRequest, KindBadRequest},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindBadCredentials},
		{http.StatusRequestEntityTooLarge, KindPayloadTooLarge},
		{http.StatusTooManyRequests, KindRequestRateTooHigh},
		{http.StatusConflict, KindInternal},
		{http.StatusBadGateway, KindInternal},
	}
	for _, tc := range cases {
		header := http.Header{}
		header.Set("X-Request-Id", "req-42")
		_, err := classify(opGet, httpResponse(tc.status, `{"message":"why"}`, header), nil, map[string]any{"key": "k"})
		require.Error(t, err, tc.status)

		var se *Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.kind, se.Kind, tc.status)
		assert.Equal(t, "req-42", se.RequestID)
		assert.Equal(t, tc.status, se.Details["status"])
		assert.Equal(t, "k", se.Details["key"])
	}
}

func TestClassifyInternalCarriesStatusAndBody(t *testing.T) {
	_, err := classify(opStats, httpResponse(http.StatusServiceUnavailable, "upstream down", nil), nil, map[string]any{})
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindInternal, se.Kind)
	assert.Equal(t, "upstream down", se.Details["body"])
	assert.Contains(t, se.Message, "503")
}

func TestClassifyNotFound(t *testing.T) {
	for _, op := range []operation{opGet, opDelete, opDeleteAll, opAny, opStats, opList} {
		res, err := classify(op, httpResponse(http.StatusNotFound, "", nil), nil, map[string]any{})
		require.NoError(t, err, op.String())
		assert.True(t, res.absent, op.String())
	}

	_, err := classify(opPut, httpResponse(http.StatusNotFound, "", nil), nil, map[string]any{})
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestClassifyExecutorErrors(t *testing.T) {
	httpErr := &httpx.HTTPError{StatusCode: http.StatusTooManyRequests, Header: http.Header{}, Body: []byte("slow down")}
	_, err := classify(opPut, nil, httpErr, map[string]any{"key": "k"})
	assert.Equal(t, KindRequestRateTooHigh, KindOf(err))

	notFound := &httpx.HTTPError{StatusCode: http.StatusNotFound, Header: http.Header{}}
	res, err := classify(opGet, nil, notFound, map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.absent)

	transport := errors.New("connection reset by peer")
	_, err = classify(opGet, nil, transport, map[string]any{"key": "k"})
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindInternal, se.Kind)
	assert.Equal(t, "connection reset by peer", se.Details["internal"])
	assert.ErrorIs(t, err, transport)
}

func TestClassifySuccessKeepsBody(t *testing.T) {
	res, err := classify(opStats, httpResponse(http.StatusOK, `{"keys":1}`, nil), nil, map[string]any{})
	require.NoError(t, err)
	assert.False(t, res.absent)
	assert.Equal(t, `{"keys":1}`, string(res.body))
}
