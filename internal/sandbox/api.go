package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// API serves the State routes from a Store on a plain net/http mux. It
// performs no authentication; the gin server in package server wraps it
// with auth, request ids and fault injection.
type API struct {
	store        Store
	maxValueSize int
	logger       *zap.Logger
	mux          *http.ServeMux
}

// APIOption configures an API.
type APIOption func(*API)

// WithMaxValueSize overrides the largest accepted value (stateapi.MaxValueSize).
func WithMaxValueSize(n int) APIOption {
	return func(a *API) {
		if n > 0 {
			a.maxValueSize = n
		}
	}
}

// WithLogger attaches a logger for store failures.
func WithLogger(logger *zap.Logger) APIOption {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAPI builds the route table for store.
func NewAPI(store Store, opts ...APIOption) *API {
	a := &API{
		store:        store,
		maxValueSize: stateapi.MaxValueSize,
		logger:       zap.NewNop(),
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(a)
	}

	container := "/" + stateapi.APIVersion + "/containers/{namespace}"
	a.mux.HandleFunc("HEAD "+container, a.handleAny)
	a.mux.HandleFunc("GET "+container, a.handleStats)
	a.mux.HandleFunc("DELETE "+container, a.handleDeleteAll)
	a.mux.HandleFunc("GET "+container+"/data", a.handleList)
	a.mux.HandleFunc("GET "+container+"/data/{key}", a.handleGet)
	a.mux.HandleFunc("PUT "+container+"/data/{key}", a.handlePut)
	a.mux.HandleFunc("DELETE "+container+"/data/{key}", a.handleDelete)
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	ns, key := r.PathValue("namespace"), r.PathValue("key")
	if !stateapi.ValidKey(key) {
		WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("key must match %s", stateapi.KeyPattern))
		return
	}
	ent, ok, err := a.store.Get(r.Context(), ns, key)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "key not found")
		return
	}
	if !ent.ExpiresAt.IsZero() {
		w.Header().Set(stateapi.HeaderKeyExpiresMs, stateapi.FormatExpiration(ent.ExpiresAt))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ent.Value)
}

func (a *API) handlePut(w http.ResponseWriter, r *http.Request) {
	ns, key := r.PathValue("namespace"), r.PathValue("key")
	if len(key) > stateapi.MaxKeyLength {
		WriteError(w, r, http.StatusRequestEntityTooLarge, "key is too large")
		return
	}
	if !stateapi.ValidKey(key) {
		WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("key must match %s", stateapi.KeyPattern))
		return
	}

	ttl := stateapi.DefaultTTLSeconds
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > stateapi.MaxTTLSeconds {
			WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("ttl must be an integer in [0,%d]", stateapi.MaxTTLSeconds))
			return
		}
		if n > 0 {
			ttl = n
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(a.maxValueSize)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, "value is too large")
			return
		}
		WriteError(w, r, http.StatusBadRequest, "request body could not be read")
		return
	}

	if err := a.store.Put(r.Context(), ns, key, string(body), time.Duration(ttl)*time.Second); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	ns, key := r.PathValue("namespace"), r.PathValue("key")
	if !stateapi.ValidKey(key) {
		WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("key must match %s", stateapi.KeyPattern))
		return
	}
	deleted, err := a.store.Delete(r.Context(), ns, key)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !deleted {
		WriteError(w, r, http.StatusNotFound, "key not found")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ns := r.PathValue("namespace")
	match := r.URL.Query().Get("matchData")
	if !stateapi.ValidMatch(match) {
		WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("matchData must match %s", stateapi.MatchPattern))
		return
	}
	if !a.exists(w, r, ns) {
		return
	}
	n, err := a.store.DeleteMatching(r.Context(), ns, match)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateapi.DeleteAllResult{Keys: n})
}

func (a *API) handleAny(w http.ResponseWriter, r *http.Request) {
	if !a.exists(w, r, r.PathValue("namespace")) {
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats(r.Context(), r.PathValue("namespace"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if stats.Keys == 0 {
		WriteError(w, r, http.StatusNotFound, "container not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	ns := r.PathValue("namespace")
	query := r.URL.Query()

	match := query.Get("match")
	if match == "" {
		match = "*"
	}
	if !stateapi.ValidMatch(match) {
		WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("match must match %s", stateapi.MatchPattern))
		return
	}
	count := stateapi.MinListCountHint
	if raw := query.Get("countHint"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < stateapi.MinListCountHint || n > stateapi.MaxListCountHint {
			WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("countHint must be in the [%d,%d] range", stateapi.MinListCountHint, stateapi.MaxListCountHint))
			return
		}
		count = n
	}
	rawCursor := query.Get("cursor")
	if rawCursor == "" {
		rawCursor = string(stateapi.InitialCursor)
	}
	cursor, err := strconv.ParseUint(rawCursor, 10, 64)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "cursor is invalid")
		return
	}
	if !a.exists(w, r, ns) {
		return
	}

	keys, next, err := a.store.Scan(r.Context(), ns, match, cursor, count)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateapi.ListPage{
		Keys:   keys,
		Cursor: stateapi.Cursor(strconv.FormatUint(next, 10)),
	})
}

// exists writes a 404 and returns false when the container holds no live key.
func (a *API) exists(w http.ResponseWriter, r *http.Request, namespace string) bool {
	ok, err := a.store.Any(r.Context(), namespace)
	if err != nil {
		a.fail(w, r, err)
		return false
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "container not found")
		return false
	}
	return true
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	a.logger.Error("store operation failed",
		zap.String("path", r.URL.Path),
		zap.String("requestId", w.Header().Get(stateapi.HeaderRequestID)),
		zap.Error(err),
	)
	WriteError(w, r, http.StatusInternalServerError, err.Error())
}

// WriteError writes the service's JSON error document. HEAD responses carry
// the status only.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, stateapi.ErrorBody{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := stateapi.Encode(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
