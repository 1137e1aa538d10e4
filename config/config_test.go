package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"repositories": ["acme/widgets"]}`)

	t.Setenv(EnvGithubToken, "")
	t.Setenv(EnvGithubTokenFallback, "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, defaultDatabasePath), cfg.DatabasePath)
	assert.Equal(t, []string{"acme/widgets"}, cfg.Repositories)
	assert.Equal(t, defaultPerPage, cfg.PerPage)
	assert.Empty(t, cfg.GitHubToken)
}

func TestLoadConfigRelativeDatabasePath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"database_path": "data/issues.db"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", "issues.db"), cfg.DatabasePath)
}

func TestLoadConfigAbsoluteDatabasePathKept(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere.db")
	path := writeConfig(t, dir, `{"database_path": "`+abs+`"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, abs, cfg.DatabasePath)
}

func TestLoadConfigTokenFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"github_token": "from-file"}`)

	t.Run("primary env wins", func(t *testing.T) {
		t.Setenv(EnvGithubToken, "from-env")
		t.Setenv(EnvGithubTokenFallback, "from-fallback")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.GitHubToken)
	})

	t.Run("fallback when primary unset", func(t *testing.T) {
		t.Setenv(EnvGithubToken, "")
		t.Setenv(EnvGithubTokenFallback, "from-fallback")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-fallback", cfg.GitHubToken)
	})

	t.Run("file value without env", func(t *testing.T) {
		t.Setenv(EnvGithubToken, "")
		t.Setenv(EnvGithubTokenFallback, "")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.GitHubToken)
	})
}

func TestLoadConfigPerPageClamped(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"per_page": 500}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPerPage, cfg.PerPage)
}

func TestCreateDefaultConfigDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	require.NoError(t, CreateDefaultConfig(path))

	custom := `{"repositories": ["keep/me"]}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0644))
	require.NoError(t, CreateDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestAddRepository(t *testing.T) {
	cfg := &Config{Repositories: []string{"acme/widgets"}}

	assert.True(t, cfg.AddRepository("acme/gadgets"))
	assert.False(t, cfg.AddRepository("acme/widgets"))
	assert.Equal(t, []string{"acme/widgets", "acme/gadgets"}, cfg.Repositories)
}
