package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig
const (
	EnvAPIURL         = "SAHAYAK_API_URL"
	EnvStateDB        = "SAHAYAK_STATE_DB"
	EnvCacheDir       = "SAHAYAK_CACHE_DIR"
	EnvRequestTimeout = "SAHAYAK_REQUEST_TIMEOUT"
	EnvLanguage       = "SAHAYAK_LANGUAGE"
	EnvBasePath       = "SAHAYAK_BASE_PATH"
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds client configuration. Precedence: flags, environment, YAML
// file, defaults.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	StateDB        string        `yaml:"state_db"`
	CacheDir       string        `yaml:"cache_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Language       Language      `yaml:"language"`
	// BasePath is the routing prefix for views; the store ignores it
	BasePath string `yaml:"base_path"`
}

// DefaultConfig returns the built-in defaults rooted at the user's home
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &Config{
		APIURL:         DefaultAPIURL,
		StateDB:        filepath.Join(home, ".sahayak", "state.db"),
		CacheDir:       filepath.Join(home, ".sahayak", "cache"),
		RequestTimeout: DefaultRequestTimeout,
		Language:       LanguageEnglish,
	}, nil
}

// DefaultConfigPath returns ~/.config/sahayak/config.yaml
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "sahayak", "config.yaml"), nil
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return &ConfigError{Field: "dotenv", Value: f, Err: err}
		}
		LogDebug("Loaded environment from %s", f)
	}
	return nil
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// and the environment. An empty path means the default location, which may
// be missing; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultConfigPath(); err != nil {
			LogDebug("No default config path: %v", err)
			path = ""
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &ConfigError{Field: "config", Value: path, Err: err}
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return &ConfigError{Field: "config", Value: path, Err: err}
	}
	LogDebug("Loaded config file %s", path)
	c.merge(fileCfg)
	return nil
}

func (c *Config) mergeEnv() error {
	var env Config
	env.APIURL = os.Getenv(EnvAPIURL)
	env.StateDB = os.Getenv(EnvStateDB)
	env.CacheDir = os.Getenv(EnvCacheDir)
	env.Language = Language(os.Getenv(EnvLanguage))
	env.BasePath = os.Getenv(EnvBasePath)
	if raw := strings.TrimSpace(os.Getenv(EnvRequestTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return &ConfigError{Field: EnvRequestTimeout, Value: raw, Err: err}
		}
		env.RequestTimeout = d
	}
	c.merge(env)
	return nil
}

// merge copies every non-zero field of other into c
func (c *Config) merge(other Config) {
	if v := strings.TrimSpace(other.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(other.StateDB); v != "" {
		c.StateDB = expandHome(v)
	}
	if v := strings.TrimSpace(other.CacheDir); v != "" {
		c.CacheDir = expandHome(v)
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.Language != "" {
		c.Language = other.Language
	}
	if other.BasePath != "" {
		c.BasePath = other.BasePath
	}
}

// ApplyFlags applies command-line overrides. Empty values are ignored.
func (c *Config) ApplyFlags(apiURL, stateDB string) error {
	c.merge(Config{APIURL: apiURL, StateDB: stateDB})
	return c.Validate()
}

// Validate checks that all configuration fields are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return &ConfigError{Field: "api_url", Value: c.APIURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return &ConfigError{Field: "api_url", Value: c.APIURL, Err: errors.New("must be an http or https URL")}
	}
	if c.StateDB == "" {
		return &ConfigError{Field: "state_db", Err: errors.New("cannot be empty")}
	}
	if c.CacheDir == "" {
		return &ConfigError{Field: "cache_dir", Err: errors.New("cannot be empty")}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "request_timeout", Value: c.RequestTimeout.String(), Err: errors.New("must be > 0")}
	}
	lang, err := ParseLanguage(string(c.Language))
	if err != nil {
		return &ConfigError{Field: "language", Value: string(c.Language), Err: err}
	}
	c.Language = lang
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
