package challenge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeModelName(t *testing.T) {
	assert.Equal(t, "anthropic--claude-sonnet-4", SanitizeModelName("anthropic/claude-sonnet-4"))
	assert.Equal(t, "openai--gpt-4o-mini", SanitizeModelName("openai/gpt-4o:mini"))
	assert.Equal(t, "plain-model", SanitizeModelName("plain-model"))
}

func TestParamSuffix(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"empty", nil, ""},
		{"single float", map[string]any{"temperature": 0.7}, "temp07"},
		{"whole float", map[string]any{"temperature": 2.0}, "temp2"},
		{"int param", map[string]any{"top_k": 50}, "topk50"},
		{"seed", map[string]any{"seed": 42}, "seed42"},
		{
			"two params sorted",
			map[string]any{"top_k": 50, "temperature": 0.7},
			"temp07-topk50",
		},
		{
			"reasoning effort",
			map[string]any{"reasoning": map[string]any{"effort": "high"}},
			"reason-high",
		},
		{
			"reasoning tokens",
			map[string]any{"reasoning": map[string]any{"max_tokens": 2000}},
			"reason-2000tok",
		},
		{
			"four params collapse",
			map[string]any{"temperature": 0.5, "top_p": 0.9, "top_k": 40, "seed": 7},
			"custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParamSuffix(tt.params))
		})
	}
}

func TestOutputPath(t *testing.T) {
	dir := OutputPath("/bench/challenges/widget", "openai/gpt-4o", nil)
	assert.Equal(t, filepath.Join("/bench/challenges/widget", "models", "openai--gpt-4o"), dir)

	dir = OutputPath("/bench/challenges/widget", "openai/gpt-4o", map[string]any{"temperature": 0.7})
	assert.Equal(t, filepath.Join("/bench/challenges/widget", "models", "openai--gpt-4o--temp07"), dir)
}

func TestOutputDirReplacesPrevious(t *testing.T) {
	challengeDir := t.TempDir()

	dir, err := OutputDir(challengeDir, "openai/gpt-4o", nil)
	require.NoError(t, err)

	stale := filepath.Join(dir, "stale.stl")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	dir2, err := OutputDir(challengeDir, "openai/gpt-4o", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, dir2)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
