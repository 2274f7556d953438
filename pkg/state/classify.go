package state

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adobe/aio-lib-state-go/internal/httpx"
	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// response is a classified, fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
	// absent is set when the service answered 404 for an operation where
	// that means the key or container does not exist.
	absent bool
}

// classify turns the outcome of one executor call into a response or an
// *Error. params are the request parameters recorded in error details.
func classify(op operation, resp *http.Response, err error, params map[string]any) (*response, error) {
	if err != nil {
		if resp != nil {
			_, _ = httpx.ReadAllAndClose(resp.Body)
		}
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) {
			return classifyStatus(op, httpErr.StatusCode, httpErr.Header, httpErr.Body, params)
		}
		details := cloneDetails(params)
		details["internal"] = err.Error()
		return nil, newError(KindInternal, fmt.Sprintf("%s request failed: %v", op, err), details, err)
	}
	if resp == nil {
		return nil, newError(KindInternal, fmt.Sprintf("%s request returned no response", op), cloneDetails(params), nil)
	}

	body, readErr := httpx.ReadAllAndClose(resp.Body)
	if readErr != nil {
		details := cloneDetails(params)
		details["status"] = resp.StatusCode
		details["internal"] = readErr.Error()
		if id := resp.Header.Get(stateapi.HeaderRequestID); id != "" {
			details["requestId"] = id
		}
		return nil, newError(KindInternal, fmt.Sprintf("%s response could not be read: %v", op, readErr), details, readErr)
	}
	return classifyStatus(op, resp.StatusCode, resp.Header, body, params)
}

func classifyStatus(op operation, status int, header http.Header, body []byte, params map[string]any) (*response, error) {
	if header == nil {
		header = http.Header{}
	}
	switch {
	case status >= 200 && status <= 299:
		return &response{status: status, header: header, body: body}, nil
	case status == http.StatusNotFound && op.absentOnNotFound():
		return &response{status: status, header: header, body: body, absent: true}, nil
	}

	details := cloneDetails(params)
	details["status"] = status
	if id := header.Get(stateapi.HeaderRequestID); id != "" {
		details["requestId"] = id
	}

	switch status {
	case http.StatusBadRequest:
		return nil, newError(KindBadRequest,
			fmt.Sprintf("%s request rejected by the state service: %s", op, stateapi.ErrorMessage(body)), details, nil)
	case http.StatusUnauthorized:
		return nil, newError(KindUnauthorized,
			"unauthorized: the api key is missing or was not accepted", details, nil)
	case http.StatusForbidden:
		return nil, newError(KindBadCredentials,
			"forbidden: the credentials do not grant access to this container", details, nil)
	case http.StatusRequestEntityTooLarge:
		return nil, newError(KindPayloadTooLarge,
			"key, value or request payload is too large", details, nil)
	case http.StatusTooManyRequests:
		return nil, newError(KindRequestRateTooHigh,
			"request rate too high, retry after a delay", details, nil)
	default:
		details["body"] = string(body)
		return nil, newError(KindInternal,
			fmt.Sprintf("%s request failed with status %d: %s", op, status, stateapi.ErrorMessage(body)), details, nil)
	}
}
