package authclient

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

// Config holds client options. Values come from defaults, then an
// optional YAML file, then the environment.
type Config struct {
	BaseURL       string        `yaml:"base_url" env:"TASKS_API_URL"`
	StoreDriver   string        `yaml:"credential_store" env:"TASKS_CREDENTIAL_STORE"`
	StorePath     string        `yaml:"credential_path" env:"TASKS_CREDENTIAL_PATH"`
	CredentialKey string        `yaml:"credential_key" env:"TASKS_CREDENTIAL_KEY"`
	LoginPath     string        `yaml:"login_path" env:"TASKS_LOGIN_PATH"`
	HomePath      string        `yaml:"home_path" env:"TASKS_HOME_PATH"`
	ProbePath     string        `yaml:"probe_path" env:"TASKS_PROBE_PATH"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" env:"TASKS_HTTP_TIMEOUT"`
	VerifyKey     string        `yaml:"verify_key" env:"TASKS_VERIFY_KEY"`
	VerifyAlg     string        `yaml:"verify_alg" env:"TASKS_VERIFY_ALG"`
	JWKSURL       string        `yaml:"jwks_url" env:"TASKS_JWKS_URL"`
	ShellAddr     string        `yaml:"shell_addr" env:"TASKS_SHELL_ADDR"`
	LogLevel      string        `yaml:"log_level" env:"TASKS_LOG_LEVEL"`
}

// DefaultConfig returns a config with every optional value set
func DefaultConfig() *Config {
	routes := DefaultRoutes()
	return &Config{
		StoreDriver:   StoreDriverFile,
		CredentialKey: DefaultCredentialKey,
		LoginPath:     routes.Login,
		HomePath:      routes.Home,
		ProbePath:     ProbePath,
		VerifyAlg:     "HS256",
		ShellAddr:     "127.0.0.1:8573",
		LogLevel:      "info",
	}
}

// LoadConfig reads the YAML file at path (skipped when empty or missing),
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read config file")
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid config file")
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid environment configuration")
	}

	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.StoreDriver == "" {
		c.StoreDriver = def.StoreDriver
	}
	if c.CredentialKey == "" {
		c.CredentialKey = def.CredentialKey
	}
	if c.LoginPath == "" {
		c.LoginPath = def.LoginPath
	}
	if c.HomePath == "" {
		c.HomePath = def.HomePath
	}
	if c.ProbePath == "" {
		c.ProbePath = def.ProbePath
	}
	if c.VerifyAlg == "" {
		c.VerifyAlg = def.VerifyAlg
	}
	if c.ShellAddr == "" {
		c.ShellAddr = def.ShellAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks the config
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.StoreDriver, validation.In(StoreDriverFile, StoreDriverSQLite, StoreDriverMemory)),
		validation.Field(&c.CredentialKey, validation.Required),
		validation.Field(&c.JWKSURL, is.URL),
		validation.Field(&c.VerifyAlg, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}
	if c.HTTPTimeout < 0 {
		return goerrors.New("http timeout must be non-negative", goerrors.CategoryValidation)
	}
	return nil
}

// Routes returns the shell paths for navigation destinations
func (c *Config) Routes() Routes {
	return Routes{Home: c.HomePath, Login: c.LoginPath}
}

// ResolveStorePath returns StorePath or the per-user default location
func (c *Config) ResolveStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	path, err := DefaultStorePath()
	if err != nil {
		return "", err
	}
	if c.StoreDriver == StoreDriverSQLite {
		return path[:len(path)-len(".json")] + ".db", nil
	}
	return path, nil
}

// OpenStore builds the credential store selected by StoreDriver. The
// returned close function releases any resources held by the store.
func (c *Config) OpenStore(ctx context.Context) (CredentialStore, func() error, error) {
	nop := func() error { return nil }

	switch c.StoreDriver {
	case StoreDriverMemory:
		return NewMemoryStore(), nop, nil
	case StoreDriverSQLite:
		path, err := c.ResolveStorePath()
		if err != nil {
			return nil, nop, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve credential path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nop, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential directory")
		}
		store, err := OpenSQLiteStore(ctx, "file:"+path, c.CredentialKey)
		if err != nil {
			return nil, nop, err
		}
		return store, store.Close, nil
	default:
		path, err := c.ResolveStorePath()
		if err != nil {
			return nil, nop, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve credential path")
		}
		return NewFileStore(path, c.CredentialKey), nop, nil
	}
}

// NewCodec builds the codec, attaching verifiers for VerifyKey and JWKSURL
// when configured. The returned function stops any background refresh.
func (c *Config) NewCodec(logger Logger) (*Codec, func(), error) {
	var verifiers []Verifier
	stop := func() {}

	if c.VerifyKey != "" {
		v, err := NewHMACVerifier([]byte(c.VerifyKey), c.VerifyAlg)
		if err != nil {
			return nil, stop, err
		}
		verifiers = append(verifiers, v)
	}

	if c.JWKSURL != "" {
		v, err := NewJWKSVerifier(c.JWKSURL, logger)
		if err != nil {
			return nil, stop, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load JWK set")
		}
		verifiers = append(verifiers, v)
		stop = v.Close
	}

	switch len(verifiers) {
	case 0:
		return NewCodec(), stop, nil
	case 1:
		return NewCodec(WithVerifier(verifiers[0])), stop, nil
	default:
		return NewCodec(WithVerifier(NewMultiVerifier(verifiers...))), stop, nil
	}
}

// HTTPClient returns a plain client honoring HTTPTimeout
func (c *Config) HTTPClient() *http.Client {
	return &http.Client{Timeout: c.HTTPTimeout}
}
