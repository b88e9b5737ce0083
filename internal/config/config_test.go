package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxTokens, cfg.Generation.MaxTokens)
	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.True(t, cfg.ClearPromptOnFailure())
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9100\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, defaultMaxTokens, cfg.Generation.MaxTokens)
	assert.True(t, cfg.ClearPromptOnFailure())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9200
storage:
  dir: /tmp/scriptstudio-test
generation:
  max_tokens: 1024
prompts:
  chat_system_prompt: "You are a screenwriting mentor."
ui:
  clear_prompt_on_failure: false
providers:
  anthropic:
    base_url: http://127.0.0.1:9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "/tmp/scriptstudio-test", cfg.Storage.Dir)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, "You are a screenwriting mentor.", cfg.Prompts.ChatSystemPrompt)
	assert.False(t, cfg.ClearPromptOnFailure())
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Providers.Anthropic.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())

	cfg.Server.Port = -1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadMaxTokens(t *testing.T) {
	path := writeConfig(t, "generation:\n  max_tokens: -5\n")
	_, err := Load(path)
	require.Error(t, err)
}
