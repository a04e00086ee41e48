// Package config provides the configuration loader for zb.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/adrg/xdg"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// defaultConcurrency caps simultaneous bottle downloads.
const defaultConcurrency = 48

// defaultAPIBase is the formula API used when no formula directory is set.
const defaultAPIBase = "https://formulae.brew.sh"

// Config is the resolved zb configuration. Precedence, lowest to highest:
// built-in defaults, the zb.yaml file, ZB_* environment variables.
type Config struct {
	// Root holds the store, database, cache and locks.
	Root string `yaml:"root"`

	// Prefix is where packages are linked. Defaults to <root>/prefix.
	Prefix string `yaml:"prefix"`

	// Concurrency caps simultaneous downloads.
	Concurrency int `yaml:"concurrency"`

	// FormulaDir, when set, serves formulae from local <name>.json files
	// instead of the API.
	FormulaDir string `yaml:"formula_dir"`

	// APIBase is the formula API endpoint.
	APIBase string `yaml:"api_base"`

	// MacOS overrides the detected macOS release used for bottle selection.
	MacOS string `yaml:"macos"`
}

// DefaultRoot is the platform-conventional root: /opt/zerobrew on macOS,
// the XDG data directory on Linux.
func DefaultRoot() string {
	if runtime.GOOS == "darwin" {
		return "/opt/zerobrew"
	}
	return filepath.Join(xdg.DataHome, "zerobrew")
}

// DefaultPath is where Load looks for zb.yaml when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "zb", "zb.yaml")
}

// Load resolves the configuration from path (or DefaultPath when empty),
// then applies environment overrides and defaults. A missing file is fine;
// a malformed one is not.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if explicit {
			return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
		}
	case err != nil:
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ZB_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("ZB_PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv("ZB_FORMULA_DIR"); v != "" {
		c.FormulaDir = v
	}
	if v := os.Getenv("ZB_API_BASE"); v != "" {
		c.APIBase = v
	}
	if v := os.Getenv("ZB_MACOS"); v != "" {
		c.MacOS = v
	}
	if v := os.Getenv("ZB_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return zerr.With(zerr.New("invalid ZB_CONCURRENCY"), "value", v)
		}
		c.Concurrency = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = DefaultRoot()
	}
	if c.Prefix == "" {
		c.Prefix = filepath.Join(c.Root, "prefix")
	}
	if c.Concurrency < 1 {
		c.Concurrency = defaultConcurrency
	}
	if c.APIBase == "" {
		c.APIBase = defaultAPIBase
	}
}
