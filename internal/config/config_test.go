package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("__OW_NAMESPACE", "")
	t.Setenv("__OW_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "amer", cfg.Region)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Retry.LogRetryAfter)
	assert.Equal(t, ":8787", cfg.Sandbox.Addr)
	assert.Equal(t, "memory", cfg.Sandbox.Backend)
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
namespace: 1234-demo
apikey: from-file
region: emea
log:
  level: debug
retry:
  max_retries: 5
  base_delay: 100ms
sandbox:
  latency: 50ms
  api_keys:
    1234-demo: secret
`), 0o600))

	t.Setenv("AIO_STATE_APIKEY", "from-env")
	t.Setenv("AIO_STATE_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1234-demo", cfg.Namespace)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "emea", cfg.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Sandbox.Latency)
	assert.Equal(t, map[string]string{"1234-demo": "secret"}, cfg.Sandbox.APIKeys)

	sc := cfg.StateConfig()
	assert.Equal(t, "1234-demo", sc.Namespace)
	assert.Equal(t, "from-env", sc.APIKey)
	require.NotNil(t, sc.Retry)
	assert.Equal(t, 5, sc.Retry.MaxRetries)
}

func TestLoadRuntimeCredentials(t *testing.T) {
	t.Setenv("__OW_NAMESPACE", "5678-runtime")
	t.Setenv("__OW_API_KEY", "runtime-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "5678-runtime", cfg.Namespace)
	assert.Equal(t, "runtime-key", cfg.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
