package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/guest"
)

// FileName is the optional configuration file looked up in the working
// directory.
const FileName = "ebox.yaml"

const (
	HeapArena = "arena"
	HeapGuest = "guest"

	DefaultArenaSize = 1 << 20
)

// Config represents the optional ebox.yaml configuration.
type Config struct {
	// Version is the config schema version; only v1.x is understood.
	Version string     `yaml:"version,omitempty"`
	Heap    HeapConfig `yaml:"heap"`
	Log     LogConfig  `yaml:"log"`
}

// HeapConfig selects and sizes the foreign heap.
type HeapConfig struct {
	Kind      string       `yaml:"kind,omitempty"`
	ArenaSize uint32       `yaml:"arena_size,omitempty"`
	Wasm      string       `yaml:"wasm,omitempty"`
	Guest     guest.Config `yaml:"guest"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	HeapKind  string
	ArenaSize uint32
	Wasm      string
	Guest     guest.Config
	LogLevel  zapcore.Level
}

// LoadOptional reads ebox.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if stderrors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindInvalidInput
		if stderrors.Is(err, os.ErrNotExist) {
			kind = errors.KindNotFound
		}
		return nil, errors.Wrap(errors.PhaseConfig, kind, err, "failed to read "+path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "failed to parse "+path)
	}
	return &cfg, nil
}

// Resolve applies defaults and validates cfg. A non-empty wasm path
// overrides the file and implies a guest heap.
func Resolve(cfg *Config, wasm string) (*Resolved, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	// the leading "v" is optional: "1.0" and "v1.0" are the same version
	if v := strings.TrimSpace(cfg.Version); v != "" {
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			return nil, invalid("invalid config version %q", cfg.Version)
		}
		if semver.Major(v) != "v1" {
			return nil, invalid("unsupported config version %s (want v1)", v)
		}
	}

	r := &Resolved{
		HeapKind:  strings.ToLower(strings.TrimSpace(cfg.Heap.Kind)),
		ArenaSize: cfg.Heap.ArenaSize,
		Wasm:      cfg.Heap.Wasm,
		Guest:     cfg.Heap.Guest,
		LogLevel:  zapcore.WarnLevel,
	}
	if wasm != "" {
		r.Wasm = wasm
		r.HeapKind = HeapGuest
	}
	if r.HeapKind == "" {
		r.HeapKind = HeapArena
		if r.Wasm != "" {
			r.HeapKind = HeapGuest
		}
	}
	if r.ArenaSize == 0 {
		r.ArenaSize = DefaultArenaSize
	}

	switch r.HeapKind {
	case HeapArena:
	case HeapGuest:
		if r.Wasm == "" {
			return nil, invalid("heap kind %q needs a wasm module", HeapGuest)
		}
	default:
		return nil, invalid("unknown heap kind %q", cfg.Heap.Kind)
	}

	if lvl := strings.TrimSpace(cfg.Log.Level); lvl != "" {
		l, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid log level")
		}
		r.LogLevel = l
	}

	return r, nil
}

func invalid(format string, args ...any) error {
	return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf(format, args...))
}
