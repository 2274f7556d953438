package state

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// Executor performs one HTTP request. Implementations may retry transient
// failures; the client never retries on its own. *http.Client satisfies it,
// as does the retrying executor installed by Init.
type Executor interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to one State container (namespace + region). It
// holds only immutable configuration and is safe for concurrent use.
type Client struct {
	namespace string
	region    string
	env       string
	endpoint  string

	builder *requestBuilder
	exec    Executor
	logger  *zap.Logger
}

// Namespace returns the namespace the client is bound to.
func (c *Client) Namespace() string { return c.namespace }

// Region returns the resolved region.
func (c *Client) Region() string { return c.region }

// Endpoint returns the resolved service base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Get retrieves the value stored under key. It returns nil, nil when the
// key does not exist or has expired.
func (c *Client) Get(ctx context.Context, key string) (*GetResult, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	params := map[string]any{"key": key}

	res, err := c.do(ctx, opGet, key, "", nil, params)
	if err != nil {
		return nil, err
	}
	if res.absent {
		return nil, nil
	}

	expiresAt, err := stateapi.ParseExpiration(res.header.Get(stateapi.HeaderKeyExpiresMs))
	if err != nil {
		details := cloneDetails(params)
		if id := res.header.Get(stateapi.HeaderRequestID); id != "" {
			details["requestId"] = id
		}
		return nil, newError(KindInternal, fmt.Sprintf("get response has no usable expiration: %v", err), details, err)
	}
	return &GetResult{
		Value:      string(res.body),
		Expiration: stateapi.ISO8601(expiresAt),
		ExpiresAt:  expiresAt,
	}, nil
}

// Put stores value under key and returns the key. A zero or absent TTL
// leaves the service default in place.
func (c *Client) Put(ctx context.Context, key, value string, opts *PutOptions) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if err := ValidateValue(value); err != nil {
		return "", err
	}
	params := map[string]any{"key": key, "valueLength": len(value)}

	var query url.Values
	if opts != nil {
		if err := ValidateTTL(opts.TTL); err != nil {
			return "", err
		}
		if opts.TTL > 0 {
			query = url.Values{queryTTL: {strconv.Itoa(opts.TTL)}}
			params["ttl"] = opts.TTL
		}
	}

	if _, err := c.do(ctx, opPut, key, value, query, params); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes key and returns it, or returns "" when the key did not
// exist.
func (c *Client) Delete(ctx context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	res, err := c.do(ctx, opDelete, key, "", nil, map[string]any{"key": key})
	if err != nil {
		return "", err
	}
	if res.absent {
		return "", nil
	}
	return key, nil
}

// DeleteAll removes every key matching opts.Match. The match pattern is
// mandatory; "*" empties the container.
func (c *Client) DeleteAll(ctx context.Context, opts DeleteAllOptions) (*DeleteAllResult, error) {
	if opts.Match == "" {
		return nil, badArgument("match is required, use \"*\" to delete every key", map[string]any{"match": ""})
	}
	if err := ValidateMatch(opts.Match); err != nil {
		return nil, err
	}
	params := map[string]any{"match": opts.Match}

	res, err := c.do(ctx, opDeleteAll, "", "", url.Values{queryMatchData: {opts.Match}}, params)
	if err != nil {
		return nil, err
	}
	result := &DeleteAllResult{}
	if res.absent {
		return result, nil
	}
	if err := stateapi.Decode(res.body, result); err != nil {
		return nil, newError(KindInternal, fmt.Sprintf("deleteAll response could not be decoded: %v", err), cloneDetails(params), err)
	}
	return result, nil
}

// Any reports whether the container holds at least one live key.
func (c *Client) Any(ctx context.Context) (bool, error) {
	res, err := c.do(ctx, opAny, "", "", nil, map[string]any{})
	if err != nil {
		return false, err
	}
	return !res.absent, nil
}

// Stats returns the aggregate size of the container. A container that does
// not exist reports zero for every field.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	res, err := c.do(ctx, opStats, "", "", nil, map[string]any{})
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	if res.absent {
		return stats, nil
	}
	if err := stateapi.Decode(res.body, stats); err != nil {
		return nil, newError(KindInternal, fmt.Sprintf("stats response could not be decoded: %v", err), map[string]any{}, err)
	}
	return stats, nil
}

// List validates opts and returns an iterator over the matching keys. No
// request is issued until the first call to Next. Matching happens on the
// server; CountHint is a page size hint, not a guarantee. ctx governs every
// page request the iterator makes later, not just this call.
func (c *Client) List(ctx context.Context, opts *ListOptions) (*KeyIterator, error) {
	match, countHint := "*", 0
	if opts != nil {
		if opts.Match != "" {
			if err := ValidateMatch(opts.Match); err != nil {
				return nil, err
			}
			match = opts.Match
		}
		if opts.CountHint != 0 {
			if err := ValidateCountHint(opts.CountHint); err != nil {
				return nil, err
			}
			countHint = opts.CountHint
		}
	}
	return newKeyIterator(ctx, c, match, countHint), nil
}

func (c *Client) do(ctx context.Context, op operation, key, value string, query url.Values, params map[string]any) (*response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := c.builder.build(ctx, op, key, value, query)
	if err != nil {
		return nil, newError(KindInternal, err.Error(), cloneDetails(params), err)
	}

	start := time.Now()
	resp, err := c.exec.Do(req)
	res, err := classify(op, resp, err, params)

	if ce := c.logger.Check(zap.DebugLevel, "state request"); ce != nil {
		fields := []zap.Field{
			zap.String("op", op.String()),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)),
		}
		if res != nil {
			fields = append(fields, zap.Int("status", res.status), zap.Bool("absent", res.absent))
			if id := res.header.Get(stateapi.HeaderRequestID); id != "" {
				fields = append(fields, zap.String("requestId", id))
			}
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		ce.Write(fields...)
	}
	return res, err
}
