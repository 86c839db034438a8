package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err, "failed to parse default config")

	assert.NotEmpty(t, cfg.Sources.Feeds)
	assert.True(t, cfg.Sources.TolerateErrors)
	assert.Equal(t, "openai", cfg.Judge.Provider)
	assert.Equal(t, "strict", cfg.Judge.ParseMode)
	assert.True(t, cfg.Judge.UseConversationMemory)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.Delay)
	assert.Equal(t, 6*time.Hour, cfg.Metrics.StaleAfter)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
self_username: curator
judge:
  provider: ollama
  model: qwen2.5:7b
  parse_mode: lenient
pipeline:
  delay: 500ms
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, "curator", cfg.SelfUsername)
	assert.Equal(t, "ollama", cfg.Judge.Provider)
	assert.Equal(t, "lenient", cfg.Judge.ParseMode)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.Delay)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, "http://localhost:11434", cfg.Judge.OllamaURL)
	assert.Equal(t, 20, cfg.Judge.GoldExamplesLimit)
	assert.Equal(t, 50, cfg.Metrics.Limit)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"provider":   "judge:\n  provider: claude\n",
		"parse mode": "judge:\n  parse_mode: sloppy\n",
		"feed url":   "sources:\n  feeds:\n    - url: not a url\n",
		"search":     "sources:\n  search:\n    enabled: true\n    query: \"\"\n",
		"port":       "server:\n  port: 0\n",
		"duration":   "pipeline:\n  delay: soon\n",
		"log level":  "logging:\n  level: loud\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParseAcceptsLogLevels(t *testing.T) {
	for _, level := range append(slices.Clone(LogLevels), "WARN", "Warning", "") {
		_, err := parse([]byte("logging:\n  level: \"" + level + "\"\n"))
		assert.NoError(t, err, level)
	}
}

func TestXTokenPath(t *testing.T) {
	t.Setenv("X_TOKEN_PATH", "")
	cfg := &Config{Output: Output{DataDir: "/data"}}
	assert.Equal(t, filepath.Join("/data", "x_tokens.json"), cfg.XTokenPath())

	t.Setenv("X_TOKEN_PATH", "/env/tokens.json")
	assert.Equal(t, "/env/tokens.json", cfg.XTokenPath())

	cfg.Metrics.TokenPath = "/cfg/tokens.json"
	assert.Equal(t, "/cfg/tokens.json", cfg.XTokenPath())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Sources.Feeds)
}

func TestResolveExplicitMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Output.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/custom/path", "tweetcurator.db"), cfg.DBPath())
}
