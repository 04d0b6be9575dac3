// Package config loads ukbc.toml, the optional per-project settings of the
// ukbc tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ukernel/internal/target"
	"ukernel/internal/trace"
)

// FileName is the name searched for by Find.
const FileName = "ukbc.toml"

var (
	// ErrInvalidJobs indicates a negative [resolve].jobs.
	ErrInvalidJobs = errors.New("invalid [resolve].jobs")
	// ErrInvalidTriple indicates an unparsable entry of [resolve].triples.
	ErrInvalidTriple = errors.New("invalid [resolve].triples entry")
	// ErrInvalidTrace indicates an unknown [trace].level, mode or format.
	ErrInvalidTrace = errors.New("invalid [trace] setting")
)

// Config is the decoded ukbc.toml. The zero value is a usable default.
type Config struct {
	Path string `toml:"-"` // file the config came from, "" for defaults
	Root string `toml:"-"` // directory of Path; relative paths resolve here

	Resolve ResolveConfig `toml:"resolve"`
	Catalog CatalogConfig `toml:"catalog"`
	Trace   TraceConfig   `toml:"trace"`
}

// ResolveConfig is the [resolve] section.
type ResolveConfig struct {
	Triples []string `toml:"triples"`
	Jobs    int      `toml:"jobs"`
}

// CatalogConfig is the [catalog] section.
type CatalogConfig struct {
	// Dir replaces the embedded catalog with the *.bc files of a directory.
	Dir string `toml:"dir"`
}

// TraceConfig is the [trace] section. Values use the --trace* flag syntax.
type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// Find walks up from startDir to locate ukbc.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	cfg.Path = abs
	cfg.Root = filepath.Dir(abs)

	if meta.IsDefined("resolve", "triples") {
		cleaned := make([]string, 0, len(cfg.Resolve.Triples))
		for _, tr := range cfg.Resolve.Triples {
			if tr = strings.TrimSpace(tr); tr != "" {
				cleaned = append(cleaned, tr)
			}
		}
		cfg.Resolve.Triples = cleaned
	}
	if meta.IsDefined("catalog", "dir") {
		cfg.Catalog.Dir = strings.TrimSpace(cfg.Catalog.Dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Discover finds ukbc.toml from startDir upwards and loads it. Without a
// file it returns the default config and ok=false.
func Discover(startDir string) (cfg *Config, ok bool, err error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Config{}, false, nil
	}
	cfg, err = Load(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// Validate checks the values that can be checked without touching the
// filesystem.
func (c *Config) Validate() error {
	if c.Resolve.Jobs < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidJobs, c.Resolve.Jobs)
	}
	for _, tr := range c.Resolve.Triples {
		if _, err := target.Parse(tr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTriple, err)
		}
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	return nil
}

// Targets parses Resolve.Triples in order.
func (c *Config) Targets() ([]target.Target, error) {
	out := make([]target.Target, 0, len(c.Resolve.Triples))
	for _, tr := range c.Resolve.Triples {
		t, err := target.Parse(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTriple, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// CatalogDir returns Catalog.Dir resolved against Root, or "" when the
// embedded catalog should be used.
func (c *Config) CatalogDir() string {
	dir := c.Catalog.Dir
	if dir == "" {
		return ""
	}
	dir = filepath.FromSlash(dir)
	if filepath.IsAbs(dir) || c.Root == "" {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.Root, dir)
}
