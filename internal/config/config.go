// Package config loads editor integration settings from file, environment
// and defaults, validates them and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// LINGGEN_BACKEND_HTTPURL.
const EnvPrefix = "LINGGEN"

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Config is the full settings tree.
type Config struct {
	Backend    Backend    `mapstructure:"backend"`
	HealthPoll HealthPoll `mapstructure:"healthPoll"`
	View       View       `mapstructure:"view"`
	InstallURL string     `mapstructure:"installUrl" validate:"required,url"`
	StatePath  string     `mapstructure:"statePath"`
	LogLevel   string     `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
}

// Backend locates the Linggen server.
type Backend struct {
	HTTPURL         string `mapstructure:"httpUrl" validate:"required,url"`
	ExplainEndpoint string `mapstructure:"explainAcrossProjectsEndpoint" validate:"required"`
}

// HealthPoll configures the background monitor.
type HealthPoll struct {
	Enabled       bool `mapstructure:"enabled"`
	IntervalMs    int  `mapstructure:"intervalMs" validate:"gte=0"`
	ShowStatusBar bool `mapstructure:"showStatusBar"`
}

// Interval is the poll period, never below one second.
func (h HealthPoll) Interval() time.Duration {
	return max(time.Second, time.Duration(h.IntervalMs)*time.Millisecond)
}

// View configures the local graph view server.
type View struct {
	Addr   string  `mapstructure:"addr" validate:"required"`
	Width  float64 `mapstructure:"width" validate:"gt=0"`
	Height float64 `mapstructure:"height" validate:"gt=0"`
}

var defaults = map[string]interface{}{
	"backend.httpUrl":                       "http://localhost:8787",
	"backend.explainAcrossProjectsEndpoint": "/api/query",
	"healthPoll.enabled":                    true,
	"healthPoll.intervalMs":                 5000,
	"healthPoll.showStatusBar":              true,
	"view.addr":                             "127.0.0.1:0",
	"view.width":                            1200.0,
	"view.height":                           800.0,
	"installUrl":                            "https://linggen.dev",
	"statePath":                             "",
	"logLevel":                              "info",
}

// Keys lists every known setting, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrUnknownKey is returned by Set for keys not in Keys().
var ErrUnknownKey = errors.New("config: unknown key")

var validate = validator.New()

// DefaultPath is ~/.config/linggen/editor.yaml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "linggen", "editor.yaml")
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Loader resolves settings with precedence flag > env > file > default.
type Loader struct {
	v    *viper.Viper
	path string
}

// New creates a loader for the YAML file at path ("" selects DefaultPath).
// The file need not exist.
func New(path string) *Loader {
	if path == "" {
		path = DefaultPath()
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, path: path}
}

// Path returns the config file path.
func (l *Loader) Path() string { return l.path }

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads the file (if present), applies overrides and validates.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("config: read %s: %w", l.path, err)
	}
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := check(cfg); err != nil {
		return Config{}, err
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(filepath.Dir(l.path), "editor-state.db")
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// Get returns the effective value of key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set parses raw according to the key's type, writes it to the config file
// and returns the value stored. Only the file's own keys plus key are
// written; defaults and env overrides are not persisted.
func (l *Loader) Set(key, raw string) (interface{}, error) {
	def, ok := lookupDefault(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	var val interface{}
	var err error
	switch def.(type) {
	case bool:
		val, err = strconv.ParseBool(raw)
	case int:
		val, err = strconv.Atoi(raw)
	case float64:
		val, err = strconv.ParseFloat(raw, 64)
	default:
		val = raw
	}
	if err != nil {
		return nil, fmt.Errorf("config: %s: invalid value %q: %w", key, raw, err)
	}

	file := viper.New()
	file.SetConfigFile(l.path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", l.path, err)
	}
	file.Set(key, val)

	// Validate the result before touching the file.
	probe := New(l.path)
	for _, k := range file.AllKeys() {
		probe.v.Set(k, file.Get(k))
	}
	var cfg Config
	if err := probe.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := check(cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("config: create dir: %w", err)
	}
	if err := file.WriteConfigAs(l.path); err != nil {
		return nil, fmt.Errorf("config: write %s: %w", l.path, err)
	}
	l.v.Set(key, val)
	return val, nil
}

func lookupDefault(key string) (interface{}, bool) {
	for k, v := range defaults {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Watch calls onChange with the reloaded settings whenever the config file
// changes. Invalid edits are logged and skipped. The file must exist.
func (l *Loader) Watch(onChange func(Config)) error {
	if _, err := os.Stat(l.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", l.path, err)
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Load()
		if err != nil {
			slog.Warn("config change ignored", "path", e.Name, "error", err)
			return
		}
		slog.Info("config changed", "path", e.Name, "op", e.Op.String())
		onChange(cfg)
	})
	l.v.WatchConfig()
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// check runs the struct tags plus rules tags cannot express. Port 0 is a
// valid view address (ephemeral port).
func check(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if _, _, err := net.SplitHostPort(cfg.View.Addr); err != nil {
		return fmt.Errorf("config: Config.View.Addr: must be host:port, got %q", cfg.View.Addr)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("config: %w", err)
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("config: %s: field is required", field)
		case "url":
			return fmt.Errorf("config: %s: must be a URL, got %q", field, e.Value())
		case "oneof":
			return fmt.Errorf("config: %s: must be one of [%s]", field, e.Param())
		default:
			return fmt.Errorf("config: %s: failed %s=%s", field, e.Tag(), e.Param())
		}
	}
	return fmt.Errorf("config: %w", err)
}
