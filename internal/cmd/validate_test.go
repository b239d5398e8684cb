package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	configPath := setupProject(t, testConfigYAML, "widget", "bracket")

	out, _, err := execute(t, "validate", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "config valid (2 models)")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "2 challenges selected")
	assert.Contains(t, out, "widget")
	assert.Contains(t, out, "bracket")
}

func TestValidateCommandBadConfig(t *testing.T) {
	configPath := setupProject(t, `models:
  - bad-model-id
system_prompt: "x"
`, "widget")

	_, _, err := execute(t, "validate", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model ID")
}

func TestValidateCommandMissingChallenges(t *testing.T) {
	configPath := setupProject(t, testConfigYAML)

	_, _, err := execute(t, "validate", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challenges directory not found")
}

func TestValidateCommandMissingConfig(t *testing.T) {
	_, _, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}
