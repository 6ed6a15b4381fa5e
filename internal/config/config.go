// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads tunnelmaster settings from defaults, the
// tunnelmaster.yaml file, TUNNELMASTER_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	fileName  = "tunnelmaster"
	envPrefix = "tunnelmaster"
)

// Config is the full set of settings.
type Config struct {
	API      API    `mapstructure:"api" yaml:"api"`
	Language string `mapstructure:"language" yaml:"language"`
	Log      Log    `mapstructure:"log" yaml:"log"`
}

// API describes how to reach the tunnel server.
type API struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	User     string        `mapstructure:"user" yaml:"user,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"` // 0 disables the client timeout
}

type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the built-in values keyed the way viper expects them.
func Defaults() map[string]any {
	return map[string]any{
		"api.url":     "http://localhost:8080",
		"api.user":    "",
		"api.timeout": "0s",
		"language":    "en",
		"log.level":   "info",
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.url %q must be an http(s) URL", c.API.URL)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}
	return nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Tunnelmaster")
		default:
			configDir = "/etc/tunnelmaster"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "tunnelmaster")
	}

	return filepath.Join(configDir, fileName+".yaml"), nil
}

// LoadConfig builds a T from defaults, the first config file found, the
// environment and the flags of cmd. When no file exists the returned error
// is a viper.ConfigFileNotFoundError and c still holds the merged result.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")

	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	readErr := readConfig(v)
	if readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			return c, readErr
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, readErr
}

// readConfig reads the config file. An empty file counts as missing so a
// default one gets written over it.
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	used := v.ConfigFileUsed()
	if st, err := os.Stat(used); err == nil && st.Size() == 0 {
		return viper.ConfigFileNotFoundError{}
	}
	return nil
}

// WriteConfigFile stores c as YAML at the user (or system) config path and
// returns that path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// may hold the API password
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
