package sandbox

import (
	"net/http"
	"net/http/httptest"
)

type handlerTransport struct {
	handler http.Handler
}

// NewTransport returns a RoundTripper that serves every request with handler
// in process, without opening a socket.
func NewTransport(handler http.Handler) http.RoundTripper {
	return &handlerTransport{handler: handler}
}

func (t *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
