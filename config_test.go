package authclient_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TASKS_API_URL", "http://localhost:8000")

	cfg, err := authclient.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, authclient.StoreDriverFile, cfg.StoreDriver)
	assert.Equal(t, authclient.DefaultCredentialKey, cfg.CredentialKey)
	assert.Equal(t, authclient.ProbePath, cfg.ProbePath)
	assert.Equal(t, "127.0.0.1:8573", cfg.ShellAddr)
	assert.Equal(t, authclient.DefaultRoutes(), cfg.Routes())
	assert.Zero(t, cfg.HTTPTimeout)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
base_url: http://file.example
credential_store: memory
home_path: /home
http_timeout: 5s
`)
	t.Setenv("TASKS_API_URL", "http://env.example")
	t.Setenv("TASKS_HTTP_TIMEOUT", "2s")

	cfg, err := authclient.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example", cfg.BaseURL)
	assert.Equal(t, authclient.StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "/home", cfg.HomePath)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfig_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("TASKS_API_URL", "http://localhost:8000")

	_, err := authclient.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("TASKS_API_URL", "")
	_, err := authclient.LoadConfig("")
	assert.Error(t, err, "base url is required")

	t.Setenv("TASKS_API_URL", "http://localhost:8000")
	t.Setenv("TASKS_CREDENTIAL_STORE", "keychain")
	_, err = authclient.LoadConfig("")
	assert.Error(t, err)

	t.Setenv("TASKS_CREDENTIAL_STORE", "")
	_, err = authclient.LoadConfig(writeConfig(t, "base_url: [unterminated"))
	assert.Error(t, err)
}

func TestConfig_OpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range []string{authclient.StoreDriverMemory, authclient.StoreDriverFile, authclient.StoreDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := authclient.DefaultConfig()
			cfg.BaseURL = "http://localhost:8000"
			cfg.StoreDriver = driver
			cfg.StorePath = filepath.Join(dir, driver, "credentials")

			store, closeStore, err := cfg.OpenStore(ctx)
			require.NoError(t, err)
			defer closeStore()

			require.NoError(t, store.Put(ctx, "abc"))
			token, err := store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, "abc", token)
		})
	}
}

func TestConfig_NewCodec(t *testing.T) {
	cfg := authclient.DefaultConfig()

	codec, stop, err := cfg.NewCodec(authclient.NopLogger())
	require.NoError(t, err)
	defer stop()
	_, err = codec.Decode(validToken)
	assert.NoError(t, err)

	cfg.VerifyKey = "secret"
	verifying, stopVerifying, err := cfg.NewCodec(authclient.NopLogger())
	require.NoError(t, err)
	defer stopVerifying()
	_, err = verifying.Decode(validToken)
	assert.True(t, authclient.IsDecodeError(err))
}
