package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
models:
  - openai/gpt-4o
system_prompt: |
  You are an OpenSCAD expert.
`

func TestLoadConfigMinimal(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"openai/gpt-4o"}, cfg.Models)
	assert.Nil(t, cfg.Challenges, "absent challenges means all")
	assert.Equal(t, "openscad", cfg.OpenSCADPath)
	assert.Equal(t, 5, cfg.Render.MaxWorkers)
	assert.Equal(t, 20*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.API.Timeout)
	assert.Equal(t, "You are an OpenSCAD expert.", cfg.SystemPrompt)
	assert.Equal(t, filepath.Dir(path), cfg.ProjectRoot)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
models:
  - openai/gpt-4o
  - anthropic/claude-sonnet-4
challenges:
  - box-lid
exclude_challenges: []
openscad_path: /usr/bin/openscad
log_level: debug
render:
  max_workers: 3
  timeout: 5m
api:
  timeout: 2m
  max_concurrency: 4
  temperature: 0.7
  top_k: 50
  seed: 42
  reasoning:
    effort: high
system_prompt: prompt text
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"box-lid"}, cfg.Challenges)
	assert.Equal(t, "/usr/bin/openscad", cfg.OpenSCADPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Render.MaxWorkers)
	assert.Equal(t, 5*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.API.Timeout)
	assert.Equal(t, 4, cfg.API.MaxConcurrency)
	require.NotNil(t, cfg.API.Temperature)
	assert.Equal(t, 0.7, *cfg.API.Temperature)
	require.NotNil(t, cfg.API.TopK)
	assert.Equal(t, 50, *cfg.API.TopK)
	require.NotNil(t, cfg.API.Seed)
	assert.Equal(t, 42, *cfg.API.Seed)
	require.NotNil(t, cfg.API.Reasoning)
	assert.Equal(t, "high", cfg.API.Reasoning.Effort)
}

func TestLoadConfigChallengesAll(t *testing.T) {
	path := writeConfig(t, `
models: [openai/gpt-4o]
challenges: all
system_prompt: p
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Challenges)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "missing models",
			content: "system_prompt: p\n",
			errText: "models",
		},
		{
			name:    "bad model id",
			content: "models: [gpt-4o]\nsystem_prompt: p\n",
			errText: "invalid model ID",
		},
		{
			name:    "model id with empty provider",
			content: "models: [/gpt-4o]\nsystem_prompt: p\n",
			errText: "invalid model ID",
		},
		{
			name:    "missing system prompt",
			content: "models: [openai/gpt-4o]\n",
			errText: "system_prompt",
		},
		{
			name:    "bad challenges scalar",
			content: "models: [openai/gpt-4o]\nchallenges: some\nsystem_prompt: p\n",
			errText: "invalid challenges value",
		},
		{
			name:    "empty challenges list",
			content: "models: [openai/gpt-4o]\nchallenges: []\nsystem_prompt: p\n",
			errText: "challenges list cannot be empty",
		},
		{
			name:    "temperature out of range",
			content: "models: [openai/gpt-4o]\nsystem_prompt: p\napi:\n  temperature: 3.5\n",
			errText: "temperature",
		},
		{
			name:    "negative top_k",
			content: "models: [openai/gpt-4o]\nsystem_prompt: p\napi:\n  top_k: -1\n",
			errText: "top_k",
		},
		{
			name:    "bad reasoning effort",
			content: "models: [openai/gpt-4o]\nsystem_prompt: p\napi:\n  reasoning:\n    effort: extreme\n",
			errText: "reasoning.effort",
		},
		{
			name:    "bad timeout format",
			content: "models: [openai/gpt-4o]\nsystem_prompt: p\napi:\n  timeout: fast\n",
			errText: "invalid api.timeout",
		},
		{
			name:    "bad log level",
			content: "models: [openai/gpt-4o]\nsystem_prompt: p\nlog_level: loud\n",
			errText: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMergeWithFlags(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	level := "debug"
	workers := 2
	timeout := time.Minute
	cfg.MergeWithFlags(
		[]string{"x-ai/grok-4"},
		[]string{"hook"},
		&level,
		&workers,
		&timeout,
	)

	assert.Equal(t, []string{"x-ai/grok-4"}, cfg.Models)
	assert.Equal(t, []string{"hook"}, cfg.Challenges)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Render.MaxWorkers)
	assert.Equal(t, time.Minute, cfg.API.Timeout)
}

func TestLoadAPIKey(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv(APIKeyEnvVar, "")
	require.Error(t, cfg.LoadAPIKey())

	t.Setenv(APIKeyEnvVar, "sk-test")
	require.NoError(t, cfg.LoadAPIKey())
	assert.Equal(t, "sk-test", cfg.APIKey())
}
