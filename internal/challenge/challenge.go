// Package challenge discovers benchmark challenges and resolves their
// per-model output directories.
package challenge

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReferenceImageFile is the optional per-challenge reference image name.
const ReferenceImageFile = "reference.png"

// Challenge represents a single benchmark challenge: a directory under
// challenges/ containing a prompt.md and optionally a reference image.
type Challenge struct {
	// Name is the challenge directory name (e.g., "headphone-hook")
	Name string

	// Prompt is the content of prompt.md
	Prompt string

	// Path is the full path to the challenge directory
	Path string
}

// Discover finds all valid challenges under <root>/challenges.
// A valid challenge is a directory containing a prompt.md file; the
// TEMPLATE directory is skipped. Results are sorted by name.
func Discover(root string) ([]Challenge, error) {
	challengesDir := filepath.Join(root, "challenges")

	info, err := os.Stat(challengesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("challenges directory not found: %s", challengesDir)
		}
		return nil, fmt.Errorf("failed to access challenges directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("challenges path is not a directory: %s", challengesDir)
	}

	entries, err := os.ReadDir(challengesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenges directory: %w", err)
	}

	var challenges []Challenge
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "TEMPLATE" {
			continue
		}

		dir := filepath.Join(challengesDir, entry.Name())
		promptFile := filepath.Join(dir, "prompt.md")
		data, err := os.ReadFile(promptFile)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read prompt for challenge %q: %w", entry.Name(), err)
		}

		challenges = append(challenges, Challenge{
			Name:   entry.Name(),
			Prompt: strings.TrimSpace(string(data)),
			Path:   dir,
		})
	}

	sort.Slice(challenges, func(i, j int) bool {
		return challenges[i].Name < challenges[j].Name
	})

	return challenges, nil
}

// Filter narrows challenges by name. A nil include list means all, minus the
// exclude list; unknown excluded names produce warnings rather than errors.
// An explicit include list errors on unknown names and preserves its order.
func Filter(challenges []Challenge, include []string, exclude []string) ([]Challenge, []string, error) {
	available := make(map[string]Challenge, len(challenges))
	for _, c := range challenges {
		available[c.Name] = c
	}

	if include == nil {
		var warnings []string
		excluded := make(map[string]bool, len(exclude))
		for _, name := range exclude {
			if _, ok := available[name]; !ok {
				warnings = append(warnings, fmt.Sprintf("excluded challenge %q does not exist", name))
			}
			excluded[name] = true
		}

		var result []Challenge
		for _, c := range challenges {
			if !excluded[c.Name] {
				result = append(result, c)
			}
		}
		return result, warnings, nil
	}

	var missing []string
	for _, name := range include {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(available))
		for name := range available {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, nil, fmt.Errorf("requested challenges not found: %v (available: %v)", missing, names)
	}

	result := make([]Challenge, 0, len(include))
	for _, name := range include {
		result = append(result, available[name])
	}
	return result, nil, nil
}

// ReferenceImageDataURL returns the challenge's reference image encoded as a
// data URL for the API payload, or "" when the challenge has no image.
func (c Challenge) ReferenceImageDataURL() (string, error) {
	path := filepath.Join(c.Path, ReferenceImageFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read reference image for challenge %q: %w", c.Name, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
