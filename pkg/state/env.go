package state

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/adobe/aio-lib-state-go/internal/sandbox"
)

// Environment variables read by EnvCredentials and NewFromEnv.
const (
	EnvNamespace = "__OW_NAMESPACE"
	EnvAPIKey    = "__OW_API_KEY"
	EnvRegion    = "AIO_STATE_REGION"
	EnvEndpoint  = "AIO_STATE_ENDPOINT"
	EnvCLIEnv    = "AIO_CLI_ENV"
	EnvLogLevel  = "AIO_STATE_LOG_LEVEL"
	EnvMode      = "AIO_STATE_RUNTIME_MODE"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

const (
	mockEndpoint  = "http://state-sandbox.local"
	mockNamespace = "mock-namespace"
	mockAPIKey    = "mock-apikey"
)

// NewFromEnv initialises a Client from the runtime environment and returns
// the resolved mode ("http" or "mock"). AIO_STATE_RUNTIME_MODE selects the
// mode; "auto" (the default) uses http when __OW_API_KEY is set and an
// in-process sandbox otherwise. Mock mode serves requests from memory on a
// plain net/http handler and performs no authentication.
func NewFromEnv(ctx context.Context) (client *Client, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(EnvMode)))
	apiKey := strings.TrimSpace(os.Getenv(EnvAPIKey))

	switch mode {
	case "", modeAuto:
		if apiKey != "" {
			return newHTTPClient(ctx)
		}
		return newMockClient(ctx)
	case modeHTTP:
		if apiKey == "" {
			return nil, "", fmt.Errorf("state: HTTP mode requires %s", EnvAPIKey)
		}
		return newHTTPClient(ctx)
	case modeMock:
		return newMockClient(ctx)
	default:
		return nil, "", fmt.Errorf("state: unsupported %s value %q", EnvMode, mode)
	}
}

func envConfig() Config {
	return Config{
		Env:         strings.TrimSpace(os.Getenv(EnvCLIEnv)),
		LogLevel:    strings.TrimSpace(os.Getenv(EnvLogLevel)),
		Credentials: EnvCredentials{},
	}
}

func newHTTPClient(ctx context.Context) (*Client, string, error) {
	client, err := Init(ctx, envConfig())
	if err != nil {
		return nil, "", fmt.Errorf("state: init HTTP client: %w", err)
	}
	return client, modeHTTP, nil
}

func newMockClient(ctx context.Context) (*Client, string, error) {
	cfg := envConfig()
	cfg.Env = ""
	cfg.Endpoint = mockEndpoint
	cfg.Credentials = CredentialProviderFunc(func(ctx context.Context) (Credentials, error) {
		creds, _ := EnvCredentials{}.Credentials(ctx)
		if creds.Namespace == "" {
			creds.Namespace = mockNamespace
		}
		if creds.APIKey == "" {
			creds.APIKey = mockAPIKey
		}
		return creds, nil
	})

	cfg.HTTPClient = &http.Client{Transport: sandbox.NewTransport(sandbox.NewAPI(sandbox.NewMemoryStore()))}

	client, err := Init(ctx, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("state: init mock client: %w", err)
	}
	return client, modeMock, nil
}
