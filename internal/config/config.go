// Package config loads mdview settings from the per-user config file and
// environment. Everything has a sensible default; the config file is
// optional.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete mdview configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	SSE    SSEConfig    `mapstructure:"sse"`
	Paths  PathsConfig  `mapstructure:"paths"`
}

// ServerConfig controls how the preview server binds.
type ServerConfig struct {
	// Host is the address the server listens on. Previews are local by
	// design, so this defaults to loopback.
	Host string `mapstructure:"host"`
	// StartPort is the first port probed for a free slot.
	StartPort int `mapstructure:"start_port"`
	// MaxPortAttempts bounds the probe range; exhaustion is fatal.
	MaxPortAttempts int `mapstructure:"max_port_attempts"`
}

// SSEConfig controls the live-reload event stream.
type SSEConfig struct {
	// KeepaliveSeconds is the idle interval between keepalive frames.
	KeepaliveSeconds int `mapstructure:"keepalive_seconds"`
}

// PathsConfig overrides filesystem locations.
type PathsConfig struct {
	// DataDir overrides the registry/log directory. Empty means the
	// per-user default.
	DataDir string `mapstructure:"data_dir"`
}

// Keepalive returns the SSE keepalive interval as a duration.
func (c *Config) Keepalive() time.Duration {
	return time.Duration(c.SSE.KeepaliveSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			StartPort:       6914,
			MaxPortAttempts: 100,
		},
		SSE: SSEConfig{
			KeepaliveSeconds: 30,
		},
	}
}

// setDefaults registers default values with viper.
func setDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.start_port", defaults.Server.StartPort)
	v.SetDefault("server.max_port_attempts", defaults.Server.MaxPortAttempts)
	v.SetDefault("sse.keepalive_seconds", defaults.SSE.KeepaliveSeconds)
	v.SetDefault("paths.data_dir", "")
}

// Load reads the configuration from <UserConfigDir>/mdview/config.* and the
// MDVIEW_* environment. A missing config file is fine; a malformed one is
// an error the command surfaces to the user.
func Load() (*Config, error) {
	dir := ""
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, "mdview")
	}
	return loadFrom(dir)
}

func loadFrom(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	if dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("MDVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
