package render

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/scadbench/internal/filelock"
)

// ParamsFileName records the attempt's run metadata inside an output
// directory.
const ParamsFileName = "params.json"

// AttemptParams is the metadata written alongside every attempt so results
// stay reproducible after config changes.
type AttemptParams struct {
	RunID                string         `json:"run_id"`
	Model                string         `json:"model"`
	Timestamp            string         `json:"timestamp"`
	RenderTimeoutSeconds float64        `json:"render_timeout_seconds"`
	LLMParameters        map[string]any `json:"llm_parameters"`
	NonDefaultParameters map[string]any `json:"non_default_parameters"`
}

// NewRunID returns a fresh identifier shared by every attempt in one run.
func NewRunID() string {
	return uuid.NewString()
}

// WriteParams writes params.json into outputDir.
func WriteParams(outputDir, runID, model string, timeout time.Duration, llmParams, nonDefault map[string]any) error {
	if llmParams == nil {
		llmParams = map[string]any{}
	}
	if nonDefault == nil {
		nonDefault = map[string]any{}
	}

	params := AttemptParams{
		RunID:                runID,
		Model:                model,
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		RenderTimeoutSeconds: timeout.Seconds(),
		LLMParameters:        llmParams,
		NonDefaultParameters: nonDefault,
	}

	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	path := filepath.Join(outputDir, ParamsFileName)
	if err := filelock.AtomicWrite(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", ParamsFileName, err)
	}
	return nil
}
