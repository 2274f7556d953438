package state

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adobe/aio-lib-state-go/internal/httpx"
	"github.com/adobe/aio-lib-state-go/internal/logging"
)

// Credentials identify a State container. Endpoint optionally overrides the
// resolved service URL.
type Credentials struct {
	Namespace string
	APIKey    string
	Region    string
	Endpoint  string
}

// CredentialProvider supplies credentials that were not set explicitly on
// Config.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialProviderFunc adapts a function to CredentialProvider.
type CredentialProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials implements CredentialProvider.
func (f CredentialProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticCredentials is a CredentialProvider returning fixed values.
type StaticCredentials Credentials

// Credentials implements CredentialProvider.
func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// EnvCredentials reads credentials from the runtime environment
// (__OW_NAMESPACE, __OW_API_KEY, AIO_STATE_REGION) and the endpoint override
// from AIO_STATE_ENDPOINT.
type EnvCredentials struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Credentials implements CredentialProvider.
func (e EnvCredentials) Credentials(context.Context) (Credentials, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}
	return Credentials{
		Namespace: get(EnvNamespace),
		APIKey:    get(EnvAPIKey),
		Region:    get(EnvRegion),
		Endpoint:  get(EnvEndpoint),
	}, nil
}

// RetryPolicy configures the default executor.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Config describes a client. Explicit Namespace, APIKey and Region win;
// empty fields are filled from Credentials when a provider is set.
type Config struct {
	Namespace string
	APIKey    string
	Region    string
	// Env selects the endpoint template: ProdEnv (default) or StageEnv.
	Env string
	// Endpoint overrides the resolved base URL when set.
	Endpoint string

	Credentials CredentialProvider

	// Executor replaces the default retrying HTTP executor. When set, Retry,
	// HTTPClient and LogRetryAfter are ignored.
	Executor   Executor
	Retry      *RetryPolicy
	HTTPClient *http.Client

	// Logger receives debug request traces. When nil and LogLevel is set, a
	// logger is built from LogLevel and LogFormat; otherwise logging is off.
	Logger    *zap.Logger
	LogLevel  string
	LogFormat string
	// LogRetryAfter is the retry delay from which the executor logs retries
	// as warnings. Zero keeps the executor default.
	LogRetryAfter time.Duration
}

type resolvedConfig struct {
	namespace string
	apiKey    string
	region    string
	env       string
	endpoint  string
}

// Init resolves credentials, region and endpoint and returns a new client.
// Every call builds an independent client; see ClientCache to share them.
func Init(ctx context.Context, cfg Config) (*Client, error) {
	rc, err := resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newClient(rc, cfg)
}

func resolve(ctx context.Context, cfg Config) (resolvedConfig, error) {
	creds := Credentials{
		Namespace: strings.TrimSpace(cfg.Namespace),
		APIKey:    strings.TrimSpace(cfg.APIKey),
		Region:    strings.TrimSpace(cfg.Region),
		Endpoint:  strings.TrimSpace(cfg.Endpoint),
	}
	if cfg.Credentials != nil && (creds.Namespace == "" || creds.APIKey == "" || creds.Region == "" || creds.Endpoint == "") {
		if ctx == nil {
			ctx = context.Background()
		}
		fallback, err := cfg.Credentials.Credentials(ctx)
		if err != nil {
			return resolvedConfig{}, newError(KindBadArgument, "credentials could not be resolved: "+err.Error(), map[string]any{}, err)
		}
		if creds.Namespace == "" {
			creds.Namespace = strings.TrimSpace(fallback.Namespace)
		}
		if creds.APIKey == "" {
			creds.APIKey = strings.TrimSpace(fallback.APIKey)
		}
		if creds.Region == "" {
			creds.Region = strings.TrimSpace(fallback.Region)
		}
		if creds.Endpoint == "" {
			creds.Endpoint = strings.TrimSpace(fallback.Endpoint)
		}
	}

	if creds.Namespace == "" {
		return resolvedConfig{}, badArgument("namespace is required", map[string]any{})
	}
	if creds.APIKey == "" {
		return resolvedConfig{}, badArgument("apikey is required", map[string]any{"namespace": creds.Namespace})
	}

	region, err := ResolveRegion(creds.Region)
	if err != nil {
		return resolvedConfig{}, err
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	if env == "" {
		env = ProdEnv
	}
	endpoint, err := ResolveEndpoint(env, region, creds.Endpoint)
	if err != nil {
		return resolvedConfig{}, err
	}

	return resolvedConfig{
		namespace: creds.Namespace,
		apiKey:    creds.APIKey,
		region:    region,
		env:       env,
		endpoint:  endpoint,
	}, nil
}

func newClient(rc resolvedConfig, cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		if cfg.LogLevel != "" {
			built, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return nil, newError(KindBadArgument, err.Error(), map[string]any{"logLevel": cfg.LogLevel}, err)
			}
			logger = built
		} else {
			logger = zap.NewNop()
		}
	}
	logger = logger.With(zap.String("namespace", rc.namespace), zap.String("region", rc.region))

	exec := cfg.Executor
	if exec == nil {
		exec = newExecutor(cfg, logger)
	}

	return &Client{
		namespace: rc.namespace,
		region:    rc.region,
		env:       rc.env,
		endpoint:  rc.endpoint,
		builder:   newRequestBuilder(rc.endpoint, rc.namespace, rc.apiKey),
		exec:      exec,
		logger:    logger,
	}, nil
}

func newExecutor(cfg Config, logger *zap.Logger) *httpx.Client {
	opts := []httpx.Option{httpx.WithLogger(logger)}
	if cfg.HTTPClient != nil {
		opts = append(opts, httpx.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Retry != nil {
		policy := httpx.DefaultRetryPolicy
		policy.MaxRetries = cfg.Retry.MaxRetries
		if cfg.Retry.BaseDelay > 0 {
			policy.BaseDelay = cfg.Retry.BaseDelay
		}
		if cfg.Retry.MaxDelay > 0 {
			policy.MaxDelay = cfg.Retry.MaxDelay
		}
		opts = append(opts, httpx.WithRetryPolicy(policy))
	}
	if cfg.LogRetryAfter > 0 {
		opts = append(opts, httpx.WithLogRetryAfter(cfg.LogRetryAfter))
	}
	return httpx.NewClient(opts...)
}
