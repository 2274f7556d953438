// Package stateapi holds the wire payloads exchanged with the State service
// and the helpers used to encode and decode them on both sides of the wire.
package stateapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header names used by the State service.
const (
	HeaderKeyExpiresMs = "X-Key-Expires-Ms"
	HeaderRequestID    = "X-Request-Id"
)

// ExpirationLayout renders timestamps the way the service documents them:
// ISO-8601, millisecond precision, UTC.
const ExpirationLayout = "2006-01-02T15:04:05.000Z07:00"

// Cursor is the opaque list continuation token. The service emits it either
// as a JSON number or a JSON string; the client forwards it unchanged.
type Cursor string

// InitialCursor starts a listing and, when returned by the server, ends it.
const InitialCursor Cursor = "0"

// Done reports whether the cursor is the end-of-listing sentinel.
func (c Cursor) Done() bool {
	return c == "" || c == InitialCursor
}

// UnmarshalJSON accepts numbers, strings and null.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = InitialCursor
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("stateapi: decode cursor: %w", err)
		}
		*c = Cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("stateapi: decode cursor: %w", err)
	}
	*c = Cursor(n.String())
	return nil
}

// MarshalJSON emits numeric cursors as numbers and anything else as a string.
func (c Cursor) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("0"), nil
	}
	if _, err := strconv.ParseUint(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

// ListPage is one page of a key listing.
type ListPage struct {
	Keys   []string `json:"keys"`
	Cursor Cursor   `json:"cursor"`
}

// Stats aggregates the content of a container.
type Stats struct {
	BytesKeys   int64 `json:"bytesKeys"`
	BytesValues int64 `json:"bytesValues"`
	Keys        int64 `json:"keys"`
}

// DeleteAllResult reports how many keys a delete-by-match removed.
type DeleteAllResult struct {
	Keys int `json:"keys"`
}

// ErrorBody is the JSON error document returned by the service.
type ErrorBody struct {
	Message string `json:"message"`
}

// Decode parses a JSON payload into out. An empty body decodes as JSON null.
func Decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	return json.Unmarshal(trimmed, out)
}

// Encode serialises v without HTML escaping and without a trailing newline.
func Encode(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ErrorMessage extracts the "message" field of a JSON error body, falling
// back to the trimmed body text.
func ErrorMessage(body []byte) string {
	var payload ErrorBody
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// ParseExpiration converts the epoch-millisecond expiration header into a
// UTC timestamp.
func ParseExpiration(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("stateapi: missing %s header", HeaderKeyExpiresMs)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("stateapi: invalid %s header %q: %w", HeaderKeyExpiresMs, raw, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// FormatExpiration renders t in the epoch-millisecond header form.
func FormatExpiration(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ISO8601 renders t with millisecond precision in UTC.
func ISO8601(t time.Time) string {
	return t.UTC().Format(ExpirationLayout)
}
