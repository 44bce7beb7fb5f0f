package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "image-recognition-go/internal/platform/errors"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Loader assembles the runtime configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
type Loader struct {
	useDotEnv bool
	path      string
	lookup    LookupFunc
}

// NewLoader creates a loader reading .env, config.yaml and the process environment.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookup:    os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithFile overrides the YAML file path. CONFIG_FILE is used otherwise.
func (l *Loader) WithFile(path string) *Loader {
	l.path = path
	return l
}

// WithLookup overrides the environment source (useful for tests).
func (l *Loader) WithLookup(lookup LookupFunc) *Loader {
	if lookup != nil {
		l.lookup = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env file is the common case.
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	path := l.path
	if path == "" {
		if v, ok := l.lookup("CONFIG_FILE"); ok && v != "" {
			path = v
		} else {
			path = "config.yaml"
		}
	}

	loadedPath, err := l.loadFile(path, cfg)
	if err != nil {
		return nil, err
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	cfg.applyProfile()

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   loadedPath,
	}, nil
}

func (l *Loader) loadFile(path string, cfg *Config) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "env", nil
		}
		return "", platformerrors.Wrap(platformerrors.KindConfig, "config.read", "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return "", platformerrors.Wrap(platformerrors.KindConfig, "config.parse", "failed to parse config file", err)
	}
	return path, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := l.lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("DEFAULT_MODEL", &cfg.DefaultModel)
	str("IMAGE_PROFILE", &cfg.Image.Profile)
	str("IMAGE_FALLBACK", &cfg.Image.Fallback)
	str("MCP_TRANSPORT", &cfg.MCP.Transport)
	str("MCP_ADDR", &cfg.MCP.Addr)
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_DIR", &cfg.Log.Dir)
	str("LOG_FILE", &cfg.Log.File)

	ints := []struct {
		key string
		dst *int
	}{
		{"IMAGE_MAX_EDGE", &cfg.Image.MaxEdge},
		{"IMAGE_QUALITY", &cfg.Image.Quality},
	}
	for _, item := range ints {
		v, ok := l.lookup(item.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", fmt.Sprintf("invalid %s", item.key), err)
		}
		*item.dst = n
	}

	int64s := []struct {
		key string
		dst *int64
	}{
		{"IMAGE_MAX_PIXELS", &cfg.Image.MaxPixels},
		{"IMAGE_MAX_DOWNLOAD_BYTES", &cfg.Image.MaxDownloadBytes},
	}
	for _, item := range int64s {
		v, ok := l.lookup(item.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", fmt.Sprintf("invalid %s", item.key), err)
		}
		*item.dst = n
	}

	if v, ok := l.lookup("FETCH_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", "invalid FETCH_TIMEOUT", err)
		}
		cfg.Image.FetchTimeout = d
	}

	return nil
}

func (l *Loader) validate(cfg *Config) error {
	if _, ok := profiles[cfg.Image.Profile]; !ok {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown image profile %q", cfg.Image.Profile))
	}
	if cfg.Image.MaxEdge <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("image max edge must be positive, got %d", cfg.Image.MaxEdge))
	}
	if cfg.Image.Quality < 1 || cfg.Image.Quality > 100 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("image quality must be within 1..100, got %d", cfg.Image.Quality))
	}
	switch cfg.Image.Fallback {
	case FallbackFail, FallbackPassthrough:
	default:
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown image fallback %q", cfg.Image.Fallback))
	}
	if cfg.Image.MaxPixels < 0 || cfg.Image.MaxDownloadBytes < 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "image limits must not be negative")
	}
	switch cfg.MCP.Transport {
	case TransportStdio, TransportSSE:
	default:
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown MCP transport %q", cfg.MCP.Transport))
	}
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "default model is required")
	}
	return nil
}
