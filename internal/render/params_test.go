package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteParams(t *testing.T) {
	dir := t.TempDir()
	runID := NewRunID()

	err := WriteParams(dir, runID, "vendor/model", 20*time.Minute,
		map[string]any{"temperature": 0.7, "top_k": 50},
		map[string]any{"temperature": 0.7})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ParamsFileName))
	require.NoError(t, err)

	var params AttemptParams
	require.NoError(t, json.Unmarshal(data, &params))

	assert.Equal(t, runID, params.RunID)
	assert.Equal(t, "vendor/model", params.Model)
	assert.Equal(t, float64(1200), params.RenderTimeoutSeconds)
	assert.Equal(t, 0.7, params.LLMParameters["temperature"])
	assert.Equal(t, float64(50), params.LLMParameters["top_k"])
	assert.Len(t, params.NonDefaultParameters, 1)

	ts, err := time.Parse(time.RFC3339, params.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestWriteParamsEmptyMaps(t *testing.T) {
	dir := t.TempDir()

	err := WriteParams(dir, NewRunID(), "vendor/model", time.Minute, nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ParamsFileName))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	// Empty maps serialize as {}, not null
	assert.NotNil(t, raw["llm_parameters"])
	assert.NotNil(t, raw["non_default_parameters"])
}

func TestNewRunIDUnique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
}
