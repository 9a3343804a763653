// Package config loads the application configuration: defaults, then an
// optional YAML file, then a .env file, then LINGODRILL_* variables. The
// result is validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/lingodrill/internal/llm"
)

// Popup behaviors for newly generated sessions.
const (
	PopupSurprise     = "surprise"
	PopupNotification = "notification"
	PopupSilent       = "silent"
)

// AutoSession configures the background session generator.
type AutoSession struct {
	Enabled            bool   `yaml:"enabled"`
	IntervalMinutes    int    `yaml:"intervalMinutes" validate:"min=1"`
	MaxPendingSessions int    `yaml:"maxPendingSessions" validate:"min=1"`
	SessionExpiryHours int    `yaml:"sessionExpiryHours" validate:"min=1,max=168"`
	QuestionCount      int    `yaml:"questionCount" validate:"min=5,max=50"`
	PopupBehavior      string `yaml:"popupBehavior" validate:"oneof=surprise notification silent"`
}

// Interval returns the tick interval.
func (a AutoSession) Interval() time.Duration {
	return time.Duration(a.IntervalMinutes) * time.Minute
}

// Expiry returns the lifetime of a generated session.
func (a AutoSession) Expiry() time.Duration {
	return time.Duration(a.SessionExpiryHours) * time.Hour
}

// Generation tunes generation requests.
type Generation struct {
	MaxTokens   int     `yaml:"maxTokens" validate:"min=256"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=1"`
}

// Config is the full application configuration.
type Config struct {
	AutoSession AutoSession `yaml:"autoSession"`
	Generation  Generation  `yaml:"generation"`
	LLM         llm.Config  `yaml:"llm"`

	// DBPath is the SQLite file. Empty uses the XDG data directory.
	DBPath string `yaml:"dbPath"`

	// CacheDir is the session cache directory. Empty uses the XDG cache
	// directory; "off" disables the cache.
	CacheDir string `yaml:"cacheDir"`

	LogLevel    string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AutoSession: AutoSession{
			Enabled:            true,
			IntervalMinutes:    60,
			MaxPendingSessions: 3,
			SessionExpiryHours: 24,
			QuestionCount:      10,
			PopupBehavior:      PopupNotification,
		},
		Generation: Generation{
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		LLM:      llm.DefaultConfig(),
		LogLevel: "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/lingodrill/config.yaml.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("find home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lingodrill", "config.yaml"), nil
}

// Options tells Load where to look.
type Options struct {
	// Path is the YAML file. Empty tries DefaultPath and tolerates its
	// absence; an explicit path must exist.
	Path string

	// EnvFile is a dotenv file. Empty tries ".env" and tolerates its
	// absence. Values never override variables already set.
	EnvFile string
}

// Load builds and validates the configuration.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path, required := opts.Path, true
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path, required = p, false
	}
	if err := readFile(&cfg, path, required); err != nil {
		return nil, err
	}

	envFile, required := opts.EnvFile, true
	if envFile == "" {
		envFile, required = ".env", false
	}
	if err := godotenv.Load(envFile); err != nil {
		if required || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.LLM.ApplyEnv()
	cfg.LLM.Discover()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	a := &cfg.AutoSession
	ints := []struct {
		name string
		dst  *int
	}{
		{"LINGODRILL_INTERVAL_MINUTES", &a.IntervalMinutes},
		{"LINGODRILL_MAX_PENDING_SESSIONS", &a.MaxPendingSessions},
		{"LINGODRILL_SESSION_EXPIRY_HOURS", &a.SessionExpiryHours},
		{"LINGODRILL_QUESTION_COUNT", &a.QuestionCount},
		{"LINGODRILL_RATE_LIMIT_RETRIES", &cfg.LLM.Retry.MaxAttempts},
	}
	for _, v := range ints {
		s, ok := os.LookupEnv(v.name)
		if !ok || s == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s: not an integer: %q", v.name, s)
		}
		*v.dst = n
	}

	if s := os.Getenv("LINGODRILL_AUTO_SESSION"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("LINGODRILL_AUTO_SESSION: not a boolean: %q", s)
		}
		a.Enabled = b
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"LINGODRILL_POPUP_BEHAVIOR", &a.PopupBehavior},
		{"LINGODRILL_DB", &cfg.DBPath},
		{"LINGODRILL_CACHE_DIR", &cfg.CacheDir},
		{"LINGODRILL_LOG_LEVEL", &cfg.LogLevel},
		{"LINGODRILL_METRICS_ADDR", &cfg.MetricsAddr},
	}
	for _, v := range strs {
		if s := os.Getenv(v.name); s != "" {
			*v.dst = s
		}
	}
	return nil
}

// Validate checks every field rule and reports each violation by its
// YAML path.
func (c Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msgs[i] = fmt.Sprintf("%s: %s", field, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}
