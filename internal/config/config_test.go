package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CODEATLAS_WORKSPACE", "CODEATLAS_DB_PATH",
		"CODEATLAS_EMBEDDING_PROVIDER", "CODEATLAS_EMBEDDING_MODEL",
		"CODEATLAS_DESCRIPTIONS", "CODEATLAS_DEBUG",
		"OPENAI_API_KEY", "OLLAMA_HOST",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	wd, _ := os.Getwd()
	assert.Equal(t, wd, cfg.Workspace.Root)
	assert.Equal(t, filepath.Join(wd, ".codeatlas", "index.db"), cfg.Storage.DatabasePath)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Query.TopK)
	assert.Equal(t, 8, cfg.Query.ExpansionCap)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Watch.EnabledOrDefault())
	assert.Contains(t, cfg.Watch.Extensions, ".go")
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
workspace:
  root: /src/project
  exclude:
    - "**/*_test.go"
storage:
  database_path: /var/lib/atlas/index.db
embedding:
  provider: ollama
  model: nomic-embed-text
query:
  top_k: 12
  expansion_cap: 4
watch:
  enabled: false
  debounce: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/src/project", cfg.Workspace.Root)
	assert.Equal(t, []string{"**/*_test.go"}, cfg.Workspace.Exclude)
	assert.Equal(t, "/var/lib/atlas/index.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 12, cfg.Query.TopK)
	assert.Equal(t, 4, cfg.Query.ExpansionCap)
	assert.False(t, cfg.Watch.EnabledOrDefault())
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_RelativePathsResolveAgainstConfigDir(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
workspace:
  root: ./src
storage:
  database_path: data/index.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "src"), cfg.Workspace.Root)
	assert.Equal(t, filepath.Join(dir, "data", "index.db"), cfg.Storage.DatabasePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
embedding:
  provider: local
`)
	t.Setenv("CODEATLAS_EMBEDDING_PROVIDER", "OPENAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CODEATLAS_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.True(t, cfg.Debug)
}

func TestLoad_FileAPIKeyNotClobberedByEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
embedding:
  api_key: from-file
`)
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Embedding.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "workspace: [broken")
	_, err := Load(path)
	assert.Error(t, err)
}
