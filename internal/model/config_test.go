package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)

	assert.True(t, cfg.GitLab.UseCachedCredential)
	assert.Empty(t, cfg.GitLab.Token)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "records.db", filepath.Base(cfg.Store.Path))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gitlab:
  use_cached_credential: false
store:
  path: /tmp/records.db
log:
  level: debug
  developer: true
`), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.False(t, cfg.GitLab.UseCachedCredential)
	assert.Equal(t, "/tmp/records.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Developer)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("GITLAB_IMPORT_GITLAB_TOKEN", "glpat-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("no-cache", false, "")
	flags.String("log-level", "info", "")
	flags.String("db", "", "")
	require.NoError(t, flags.Parse([]string{"--no-cache", "--log-level=warn"}))

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), flags)
	require.NoError(t, err)

	assert.Equal(t, "glpat-env", cfg.GitLab.Token)
	assert.False(t, cfg.GitLab.UseCachedCredential)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "records.db", filepath.Base(cfg.Store.Path), "unset flag keeps the default")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &AppConfig{
		GitLab: GitLabConfig{UseCachedCredential: false, Token: "secret"},
		Store:  StoreConfig{Path: "/data/records.db"},
		Log:    LogConfig{Level: "error"},
	}
	require.NoError(t, SaveConfig(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	out, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.False(t, out.GitLab.UseCachedCredential)
	assert.Equal(t, "/data/records.db", out.Store.Path)
	assert.Equal(t, "error", out.Log.Level)
}
