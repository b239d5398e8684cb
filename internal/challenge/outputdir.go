package challenge

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// paramAbbrevs maps sampling parameter names to the short tokens used in
// output directory suffixes.
var paramAbbrevs = map[string]string{
	"temperature":        "temp",
	"top_p":              "topp",
	"top_k":              "topk",
	"frequency_penalty":  "freqp",
	"presence_penalty":   "presp",
	"repetition_penalty": "repp",
	"min_p":              "minp",
	"top_a":              "topa",
	"seed":               "seed",
	"max_tokens":         "maxt",
	"reasoning":          "reason",
}

// SanitizeModelName converts an OpenRouter model ID into a filesystem-safe
// directory name. "anthropic/claude-sonnet-4:beta" becomes
// "anthropic--claude-sonnet-4-beta".
func SanitizeModelName(model string) string {
	s := strings.ReplaceAll(model, "/", "--")
	return strings.ReplaceAll(s, ":", "-")
}

// ParamSuffix builds the directory suffix describing non-default sampling
// parameters, e.g. "temp07-topk50". More than three parameters collapse to
// "custom". An empty map yields "".
func ParamSuffix(nonDefault map[string]any) string {
	if len(nonDefault) == 0 {
		return ""
	}

	names := make([]string, 0, len(nonDefault))
	for name := range nonDefault {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 3 {
		return "custom"
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		abbrev, ok := paramAbbrevs[name]
		if !ok {
			abbrev = name
		}
		if name == "reasoning" {
			parts = append(parts, abbrev+reasoningSuffix(nonDefault[name]))
			continue
		}
		parts = append(parts, abbrev+formatParamValue(nonDefault[name]))
	}
	return strings.Join(parts, "-")
}

// reasoningSuffix renders the reasoning payload map: effort wins over a
// token budget, a bare enable shows as "-on".
func reasoningSuffix(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return "-on"
	}
	if effort, ok := m["effort"].(string); ok && effort != "" {
		return "-" + effort
	}
	if tokens, ok := m["max_tokens"].(int); ok && tokens > 0 {
		return fmt.Sprintf("-%dtok", tokens)
	}
	return "-on"
}

// formatParamValue renders a parameter value compactly for directory names:
// floats drop the decimal point (0.7 -> "07"), integers render as-is, and
// reasoning values render as "-<effort>" or "-on".
func formatParamValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) {
			return fmt.Sprintf("%d", int64(val))
		}
		s := fmt.Sprintf("%g", val)
		return strings.ReplaceAll(s, ".", "")
	case float32:
		return formatParamValue(float64(val))
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case string:
		return "-" + val
	case bool:
		if val {
			return "-on"
		}
		return "-off"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// OutputPath returns the per-model output directory path inside a challenge
// without creating it.
func OutputPath(challengeDir, model string, nonDefault map[string]any) string {
	name := SanitizeModelName(model)
	if suffix := ParamSuffix(nonDefault); suffix != "" {
		name += "--" + suffix
	}
	return filepath.Join(challengeDir, "models", name)
}

// OutputDir creates (replacing any previous contents) the per-model output
// directory for a challenge and returns its path.
func OutputDir(challengeDir, model string, nonDefault map[string]any) (string, error) {
	dir := OutputPath(challengeDir, model, nonDefault)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear output directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return dir, nil
}
