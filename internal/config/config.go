// Package config loads the acquirer gateway's runtime configuration:
// listen address, RSA key file paths, the static asset directory and the
// terminal allow-list path, resolved from environment variables (or an
// optional config.yaml) via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the gateway process.
type Config struct {
	Server struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		PublicDir string `mapstructure:"public_dir"`
	} `mapstructure:"server"`
	Keys struct {
		TransportKeyPath string `mapstructure:"transport_key_path"`
		TokenSigningPath string `mapstructure:"token_signing_key_path"`
	} `mapstructure:"keys"`
	Terminals struct {
		AllowlistPath string `mapstructure:"allowlist_path"`
	} `mapstructure:"terminals"`
	Log struct {
		Level string `mapstructure:"level"`
		Human bool   `mapstructure:"human"`
	} `mapstructure:"log"`
}

var (
	configData Config
	v          *viper.Viper
)

// Initialize sets up the configuration system: defaults, then
// GATEWAY_-prefixed environment variables, then an optional config.yaml
// in the working directory or /etc/iso-acquirer-gateway/.
func Initialize() error {
	v = viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/iso-acquirer-gateway/")

	setDefaults()

	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// PORT (no prefix) is the conventional platform-assigned port.
	_ = v.BindEnv("server.port", "PORT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return nil
}

func setDefaults() {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_dir", "public")

	v.SetDefault("keys.transport_key_path", "keys/transport_key.pem")
	v.SetDefault("keys.token_signing_key_path", "keys/token_signing_key.pem")

	v.SetDefault("terminals.allowlist_path", "terminals.allowlist")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.human", false)
}

// Get returns the current configuration. Initialize must be called first.
func Get() *Config {
	return &configData
}

// GetViper returns the underlying viper instance, for callers (like PORT
// interop) that need direct access.
func GetViper() *viper.Viper {
	return v
}
