package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds defaults loaded from the TOML config file. Flags set on the
// command line always win; config values only fill in what the user left
// unset.
type Config struct {
	// BufferDistance is the default road buffer in meters.
	BufferDistance float64 `toml:"buffer_distance"`

	// MinArea and MaxArea are the default parcel area bounds in square
	// meters.
	MinArea float64 `toml:"min_area"`
	MaxArea float64 `toml:"max_area"`

	// TargetCRS is the default working CRS (e.g. "EPSG:32736").
	TargetCRS string `toml:"target_crs"`

	// ExtentBufferPct is the default tessellation extent buffer.
	ExtentBufferPct float64 `toml:"extent_buffer_pct"`

	// Serve configures the HTTP server.
	Serve ServeConfig `toml:"serve"`
}

// ServeConfig holds serve-mode defaults.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `toml:"addr"`

	// RedisAddr enables the Redis job store when set; empty means the
	// in-memory store.
	RedisAddr string `toml:"redis_addr"`
}

// loadConfig reads the config file. A missing file is not an error; an
// explicitly passed path that doesn't exist is.
func (c *CLI) loadConfig() (Config, error) {
	var cfg Config

	path := c.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, fmt.Errorf("config file %s does not exist", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Logger.Debug("config loaded", "path", path)
	return cfg, nil
}

// defaultConfigPath returns the XDG config file location
// (~/.config/cadastral/config.toml), or "" when no home is available.
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
