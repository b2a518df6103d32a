package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment override, e.g.
// GITLAB_IMPORT_GITLAB_TOKEN for gitlab.token.
const envPrefix = "GITLAB_IMPORT"

// GitLabConfig holds settings for talking to GitLab.
type GitLabConfig struct {
	// UseCachedCredential returns a token from the keyring, when one is
	// stored, instead of prompting for a new one.
	UseCachedCredential bool `mapstructure:"use_cached_credential" yaml:"use_cached_credential"`

	// Token is an optional personal access token. When set the interactive
	// prompt is skipped.
	Token string `mapstructure:"token" yaml:"token,omitempty"`
}

// StoreConfig holds settings for the local record database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Developer bool   `mapstructure:"developer" yaml:"developer"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	GitLab GitLabConfig `mapstructure:"gitlab" yaml:"gitlab"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/gitlab-import, or the working directory when
// the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "gitlab-import")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		GitLab: GitLabConfig{UseCachedCredential: true},
		Store:  StoreConfig{Path: filepath.Join(ConfigDir(), "records.db")},
		Log:    LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("gitlab.use_cached_credential", d.GitLab.UseCachedCredential)
	v.SetDefault("gitlab.token", "")
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.developer", d.Log.Developer)
}

// LoadConfig reads configuration from the YAML file at path, then applies
// environment overrides and any flags bound in flags (which may be nil).
// A missing file is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(*os.PathError)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			missing = true
		}
		if !missing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"db":        "store.path",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}

	// --no-cache inverts gitlab.use_cached_credential.
	if f := flags.Lookup("no-cache"); f != nil && f.Changed {
		v.Set("gitlab.use_cached_credential", f.Value.String() != "true")
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The token is never written.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("gitlab.use_cached_credential", cfg.GitLab.UseCachedCredential)
	v.Set("store.path", cfg.Store.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.developer", cfg.Log.Developer)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
