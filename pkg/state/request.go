package state

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type operation int

const (
	opGet operation = iota
	opPut
	opDelete
	opDeleteAll
	opAny
	opStats
	opList
)

func (o operation) String() string {
	switch o {
	case opGet:
		return "get"
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	case opDeleteAll:
		return "deleteAll"
	case opAny:
		return "any"
	case opStats:
		return "stats"
	case opList:
		return "list"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// absentOnNotFound reports whether a 404 means "nothing there" for o.
func (o operation) absentOnNotFound() bool {
	return o != opPut
}

// Query parameter names.
const (
	queryTTL       = "ttl"
	queryMatch     = "match"
	queryMatchData = "matchData"
	queryCountHint = "countHint"
	queryCursor    = "cursor"
)

const contentTypeValue = "application/octet-stream"

// requestBuilder turns operations into authenticated HTTP requests. The
// Authorization header is computed once, at construction.
type requestBuilder struct {
	containerURL string
	authHeader   string
}

func newRequestBuilder(endpoint, namespace, apiKey string) *requestBuilder {
	return &requestBuilder{
		containerURL: strings.TrimRight(endpoint, "/") + "/" + APIVersion + "/containers/" + url.PathEscape(namespace),
		authHeader:   "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey)),
	}
}

func (b *requestBuilder) build(ctx context.Context, op operation, key, value string, query url.Values) (*http.Request, error) {
	var (
		method string
		target = b.containerURL
		body   io.Reader
	)
	switch op {
	case opGet:
		method, target = http.MethodGet, b.keyURL(key)
	case opPut:
		method, target = http.MethodPut, b.keyURL(key)
		body = strings.NewReader(value)
	case opDelete:
		method, target = http.MethodDelete, b.keyURL(key)
	case opDeleteAll:
		if query.Get(queryMatchData) == "" {
			return nil, fmt.Errorf("state: %s requires a %s parameter", op, queryMatchData)
		}
		method = http.MethodDelete
	case opAny:
		method = http.MethodHead
	case opStats:
		method = http.MethodGet
	case opList:
		method, target = http.MethodGet, b.containerURL+"/data"
	default:
		return nil, fmt.Errorf("state: unknown %s", op)
	}

	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("state: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", b.authHeader)
	if op == opPut {
		req.Header.Set("Content-Type", contentTypeValue)
	}
	return req, nil
}

func (b *requestBuilder) keyURL(key string) string {
	return b.containerURL + "/data/" + url.PathEscape(key)
}
