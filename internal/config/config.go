package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finitefield.org/routine-web/internal/routine"
)

const (
	envPrefix = "ROUTINE_WEB_"

	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultEnvironment     = "local"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRequestTimeout  = 45 * time.Second
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultLocalesDir      = "locales"
	defaultContentDir      = "content"
	defaultCatalogSource   = "data/catalog.json"
	defaultLogLevel        = "info"
	defaultAIEndpoint      = "https://api.openai.com/v1/chat/completions"
	defaultAIModel         = "gpt-4o-mini"
	defaultAIMaxTokens     = 600
	defaultAITemperature   = 0.7
	defaultAITimeout       = 30 * time.Second
	defaultAIRatePerMin    = 30
	defaultStateCapacity   = 10000
	defaultStateIdleTTL    = 2 * time.Hour
	minSigningKeyLength    = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Env       string
	Dev       bool
	LogLevel  string
	Server    ServerConfig
	Paths     PathConfig
	Catalog   CatalogConfig
	Selection SelectionConfig
	Session   SessionConfig
	AI        AIConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// PathConfig lists the directories served or parsed at startup.
type PathConfig struct {
	Templates string
	Public    string
	Locales   string
	Content   string
}

// CatalogConfig points at the product source: a file path or an http(s) URL.
type CatalogConfig struct {
	Source string
}

// SelectionConfig selects the selection storage. An empty DBPath keeps selections in memory.
type SelectionConfig struct {
	DBPath string
}

// SessionConfig controls the signed session cookie and how much per-session state the
// process keeps in memory.
type SessionConfig struct {
	SigningKey    string
	SecureCookie  bool
	StateCapacity int
	StateIdleTTL  time.Duration
}

// AIConfig configures the remote routine endpoint. An empty APIKey selects the local heuristic.
type AIConfig struct {
	Endpoint      string
	APIKey        string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	RatePerMinute int
}

// Address returns the listen address for the HTTP server.
func (c Config) Address() string {
	return ":" + c.Server.Port
}

// Routine maps the AI settings onto the routine builder configuration.
func (c Config) Routine() routine.Config {
	return routine.Config{
		Endpoint:      c.AI.Endpoint,
		APIKey:        c.AI.APIKey,
		Model:         c.AI.Model,
		MaxTokens:     c.AI.MaxTokens,
		Temperature:   c.AI.Temperature,
		Timeout:       c.AI.Timeout,
		RatePerMinute: c.AI.RatePerMinute,
	}
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides and environment variables.
// Precedence is dotenv < OS env < explicit env map.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}
	// Prefixed keys win; PORT is honoured for platforms that inject it.
	prefixed := func(key string) (string, bool) {
		if value, ok := lookup(envPrefix + key); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
		if key == "PORT" {
			return lookup("PORT")
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(prefixed, "ENV", defaultEnvironment))
	cfg := Config{
		Env:      env,
		Dev:      boolWithDefault(prefixed, "DEV", env == "local" || env == "dev"),
		LogLevel: stringWithDefault(prefixed, "LOG_LEVEL", stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		Server: ServerConfig{
			Port:            stringWithDefault(prefixed, "PORT", defaultPort),
			ReadTimeout:     durationWithDefault(prefixed, "READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(prefixed, "WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(prefixed, "IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout:  durationWithDefault(prefixed, "REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout: durationWithDefault(prefixed, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Paths: PathConfig{
			Templates: stringWithDefault(prefixed, "TEMPLATES_DIR", defaultTemplatesDir),
			Public:    stringWithDefault(prefixed, "PUBLIC_DIR", defaultPublicDir),
			Locales:   stringWithDefault(prefixed, "LOCALES_DIR", defaultLocalesDir),
			Content:   stringWithDefault(prefixed, "CONTENT_DIR", defaultContentDir),
		},
		Catalog: CatalogConfig{
			Source: stringWithDefault(prefixed, "CATALOG_SOURCE", defaultCatalogSource),
		},
		Selection: SelectionConfig{
			DBPath: stringWithDefault(prefixed, "SELECTION_DB", ""),
		},
		Session: SessionConfig{
			SigningKey:    stringWithDefault(prefixed, "SESSION_SIGNING_KEY", ""),
			StateCapacity: intWithDefault(prefixed, "SESSION_STATE_CAPACITY", defaultStateCapacity),
			StateIdleTTL:  durationWithDefault(prefixed, "SESSION_STATE_TTL", defaultStateIdleTTL),
		},
		AI: AIConfig{
			Endpoint:      stringWithDefault(prefixed, "AI_ENDPOINT", defaultAIEndpoint),
			APIKey:        strings.TrimSpace(stringWithDefault(prefixed, "AI_API_KEY", "")),
			Model:         stringWithDefault(prefixed, "AI_MODEL", defaultAIModel),
			MaxTokens:     intWithDefault(prefixed, "AI_MAX_TOKENS", defaultAIMaxTokens),
			Temperature:   floatWithDefault(prefixed, "AI_TEMPERATURE", defaultAITemperature),
			Timeout:       durationWithDefault(prefixed, "AI_TIMEOUT", defaultAITimeout),
			RatePerMinute: intWithDefault(prefixed, "AI_RATE_PER_MIN", defaultAIRatePerMin),
		},
	}
	cfg.Session.SecureCookie = boolWithDefault(prefixed, "SECURE_COOKIE", !cfg.Dev)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Catalog.Source) == "" {
		missing = append(missing, "Catalog.Source")
	}
	if !cfg.Dev && len(cfg.Session.SigningKey) < minSigningKeyLength {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Session.StateCapacity <= 0 {
		missing = append(missing, "Session.StateCapacity")
	}
	if cfg.Session.StateIdleTTL <= 0 {
		missing = append(missing, "Session.StateIdleTTL")
	}
	if cfg.AI.MaxTokens <= 0 {
		missing = append(missing, "AI.MaxTokens")
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		missing = append(missing, "AI.Temperature")
	}
	if cfg.AI.Timeout <= 0 {
		missing = append(missing, "AI.Timeout")
	}
	if cfg.AI.RatePerMinute <= 0 {
		missing = append(missing, "AI.RatePerMinute")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
