// Package config loads and validates the benchmark configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidReasoningEfforts are the accepted reasoning effort levels.
var ValidReasoningEfforts = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// ReasoningConfig controls reasoning/thinking tokens for models that
// support extended reasoning.
type ReasoningConfig struct {
	// Enabled turns reasoning on with provider defaults
	Enabled bool `yaml:"enabled"`

	// Effort is "low", "medium", or "high"
	Effort string `yaml:"effort"`

	// MaxTokens is a specific reasoning token limit
	MaxTokens int `yaml:"max_tokens"`

	// Exclude performs reasoning without returning it
	Exclude bool `yaml:"exclude"`
}

// IsEnabled reports whether any reasoning setting is active.
func (r *ReasoningConfig) IsEnabled() bool {
	if r == nil {
		return false
	}
	return r.Enabled || r.Effort != "" || r.MaxTokens > 0
}

// PayloadValue converts the reasoning settings to the request payload shape.
// Returns nil when reasoning is not configured.
func (r *ReasoningConfig) PayloadValue() map[string]any {
	if r == nil || (!r.IsEnabled() && !r.Exclude) {
		return nil
	}

	result := map[string]any{}
	if r.Enabled && r.Effort == "" && r.MaxTokens == 0 {
		// Enabled without specifics defaults to medium effort
		result["effort"] = "medium"
	} else if r.Effort != "" {
		result["effort"] = r.Effort
	}
	if r.MaxTokens > 0 {
		result["max_tokens"] = r.MaxTokens
	}
	if r.Exclude {
		result["exclude"] = true
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// APIConfig holds OpenRouter request settings including LLM sampling
// parameters. Nil pointer fields mean "use the model's default".
type APIConfig struct {
	// Timeout covers the whole HTTP exchange including stream completion
	Timeout time.Duration

	// MaxConcurrency caps prompt-stage workers (0 = one worker per model)
	MaxConcurrency int

	Temperature       *float64
	TopP              *float64
	TopK              *int
	FrequencyPenalty  *float64
	PresencePenalty   *float64
	RepetitionPenalty *float64
	MinP              *float64
	TopA              *float64
	Seed              *int
	MaxTokens         *int

	Reasoning *ReasoningConfig
}

// RenderConfig holds OpenSCAD render-stage settings.
type RenderConfig struct {
	// MaxWorkers bounds concurrent render subprocesses
	MaxWorkers int

	// Timeout is the hard per-render wall-clock limit
	Timeout time.Duration
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Config represents scadbench configuration options.
type Config struct {
	// Models are OpenRouter model IDs in provider/name form
	Models []string

	// Challenges restricts the run to named challenges (nil = all)
	Challenges []string

	// ExcludeChallenges removes challenges when running all
	ExcludeChallenges []string

	// OpenSCADPath is the renderer executable (name in PATH or full path)
	OpenSCADPath string

	// SystemPrompt is sent with every model request
	SystemPrompt string

	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string

	Render  RenderConfig
	API     APIConfig
	History HistoryConfig

	// ProjectRoot is the directory containing the config file; challenge
	// discovery is rooted here
	ProjectRoot string

	apiKey string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		OpenSCADPath: "openscad",
		LogLevel:     "info",
		Render: RenderConfig{
			MaxWorkers: 5,
			Timeout:    20 * time.Minute,
		},
		API: APIConfig{
			Timeout:        10 * time.Minute,
			MaxConcurrency: 0, // One worker per model
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(".scadbench", "history.db"),
		},
	}
}

// yamlConfig mirrors the file layout with raw types so durations and the
// "all"-or-list challenges field can be parsed explicitly.
type yamlConfig struct {
	Models            []string       `yaml:"models"`
	Challenges        yaml.Node      `yaml:"challenges"`
	ExcludeChallenges []string       `yaml:"exclude_challenges"`
	OpenSCADPath      string         `yaml:"openscad_path"`
	SystemPrompt      string         `yaml:"system_prompt"`
	LogLevel          string         `yaml:"log_level"`
	Render            yamlRender     `yaml:"render"`
	API               yamlAPI        `yaml:"api"`
	History           *HistoryConfig `yaml:"history"`
}

type yamlRender struct {
	MaxWorkers *int   `yaml:"max_workers"`
	Timeout    string `yaml:"timeout"`
}

type yamlAPI struct {
	Timeout           string           `yaml:"timeout"`
	MaxConcurrency    *int             `yaml:"max_concurrency"`
	Temperature       *float64         `yaml:"temperature"`
	TopP              *float64         `yaml:"top_p"`
	TopK              *int             `yaml:"top_k"`
	FrequencyPenalty  *float64         `yaml:"frequency_penalty"`
	PresencePenalty   *float64         `yaml:"presence_penalty"`
	RepetitionPenalty *float64         `yaml:"repetition_penalty"`
	MinP              *float64         `yaml:"min_p"`
	TopA              *float64         `yaml:"top_a"`
	Seed              *int             `yaml:"seed"`
	MaxTokens         *int             `yaml:"max_tokens"`
	Reasoning         *ReasoningConfig `yaml:"reasoning"`
}

// LoadConfig loads configuration from the specified file path.
// Unlike optional tool configs, the file is required: it names the models
// and system prompt the benchmark cannot run without.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.ProjectRoot = filepath.Dir(path)

	if len(yamlCfg.Models) == 0 {
		return nil, fmt.Errorf("configuration must include a non-empty 'models' list")
	}
	for _, id := range yamlCfg.Models {
		if err := validateModelID(id); err != nil {
			return nil, err
		}
	}
	cfg.Models = yamlCfg.Models

	challenges, err := parseChallenges(&yamlCfg.Challenges)
	if err != nil {
		return nil, err
	}
	cfg.Challenges = challenges

	for _, name := range yamlCfg.ExcludeChallenges {
		if name == "" {
			return nil, fmt.Errorf("exclude_challenges entries cannot be empty")
		}
	}
	cfg.ExcludeChallenges = yamlCfg.ExcludeChallenges

	if yamlCfg.OpenSCADPath != "" {
		cfg.OpenSCADPath = yamlCfg.OpenSCADPath
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	systemPrompt := strings.TrimSpace(yamlCfg.SystemPrompt)
	if systemPrompt == "" {
		return nil, fmt.Errorf("configuration must include a non-empty 'system_prompt'")
	}
	cfg.SystemPrompt = systemPrompt

	if yamlCfg.Render.MaxWorkers != nil {
		cfg.Render.MaxWorkers = *yamlCfg.Render.MaxWorkers
	}
	if yamlCfg.Render.Timeout != "" {
		d, err := time.ParseDuration(yamlCfg.Render.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid render.timeout %q: %w", yamlCfg.Render.Timeout, err)
		}
		cfg.Render.Timeout = d
	}

	if err := applyAPIConfig(&cfg.API, &yamlCfg.API); err != nil {
		return nil, err
	}

	if yamlCfg.History != nil {
		cfg.History.Enabled = yamlCfg.History.Enabled
		if yamlCfg.History.DBPath != "" {
			cfg.History.DBPath = yamlCfg.History.DBPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseChallenges accepts "all" (or nothing) for all challenges, or a
// non-empty list of challenge names.
func parseChallenges(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		// Field absent: run all challenges
		return nil, nil
	case yaml.ScalarNode:
		if node.Value == "all" || node.Value == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid challenges value %q: must be \"all\" or a list of challenge names", node.Value)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("invalid challenges list: %w", err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("challenges list cannot be empty")
		}
		for _, name := range names {
			if name == "" {
				return nil, fmt.Errorf("challenge names cannot be empty")
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("challenges must be \"all\" or a list of challenge names")
	}
}

func applyAPIConfig(api *APIConfig, y *yamlAPI) error {
	if y.Timeout != "" {
		d, err := time.ParseDuration(y.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", y.Timeout, err)
		}
		api.Timeout = d
	}
	if y.MaxConcurrency != nil {
		api.MaxConcurrency = *y.MaxConcurrency
	}

	api.Temperature = y.Temperature
	api.TopP = y.TopP
	api.TopK = y.TopK
	api.FrequencyPenalty = y.FrequencyPenalty
	api.PresencePenalty = y.PresencePenalty
	api.RepetitionPenalty = y.RepetitionPenalty
	api.MinP = y.MinP
	api.TopA = y.TopA
	api.Seed = y.Seed
	api.MaxTokens = y.MaxTokens
	api.Reasoning = y.Reasoning

	return nil
}

// validateModelID checks the provider/name format expected by OpenRouter.
func validateModelID(id string) error {
	if strings.Count(id, "/") != 1 {
		return fmt.Errorf("invalid model ID %q: expected format provider/model-name", id)
	}
	parts := strings.SplitN(id, "/", 2)
	if parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid model ID %q: provider and model name must be non-empty", id)
	}
	return nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values, allowing CLI flags
// to take precedence over config file settings.
func (c *Config) MergeWithFlags(models []string, challenges []string, logLevel *string, maxWorkers *int, apiTimeout *time.Duration) {
	if len(models) > 0 {
		c.Models = models
	}
	if len(challenges) > 0 {
		c.Challenges = challenges
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if maxWorkers != nil {
		c.Render.MaxWorkers = *maxWorkers
	}
	if apiTimeout != nil {
		c.API.Timeout = *apiTimeout
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	for _, id := range c.Models {
		if err := validateModelID(id); err != nil {
			return err
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.Render.MaxWorkers <= 0 {
		return fmt.Errorf("render.max_workers must be > 0, got %d", c.Render.MaxWorkers)
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be > 0, got %v", c.Render.Timeout)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0, got %v", c.API.Timeout)
	}
	if c.API.MaxConcurrency < 0 {
		return fmt.Errorf("api.max_concurrency must be >= 0, got %d", c.API.MaxConcurrency)
	}

	if err := c.API.validateSamplingParams(); err != nil {
		return err
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

func (a *APIConfig) validateSamplingParams() error {
	if a.Temperature != nil && (*a.Temperature < 0.0 || *a.Temperature > 2.0) {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %v", *a.Temperature)
	}
	if a.TopP != nil && (*a.TopP < 0.0 || *a.TopP > 1.0) {
		return fmt.Errorf("top_p must be between 0.0 and 1.0, got %v", *a.TopP)
	}
	if a.TopK != nil && *a.TopK < 0 {
		return fmt.Errorf("top_k must be 0 or above, got %d", *a.TopK)
	}
	if a.FrequencyPenalty != nil && (*a.FrequencyPenalty < -2.0 || *a.FrequencyPenalty > 2.0) {
		return fmt.Errorf("frequency_penalty must be between -2.0 and 2.0, got %v", *a.FrequencyPenalty)
	}
	if a.PresencePenalty != nil && (*a.PresencePenalty < -2.0 || *a.PresencePenalty > 2.0) {
		return fmt.Errorf("presence_penalty must be between -2.0 and 2.0, got %v", *a.PresencePenalty)
	}
	if a.RepetitionPenalty != nil && (*a.RepetitionPenalty < 0.0 || *a.RepetitionPenalty > 2.0) {
		return fmt.Errorf("repetition_penalty must be between 0.0 and 2.0, got %v", *a.RepetitionPenalty)
	}
	if a.MinP != nil && (*a.MinP < 0.0 || *a.MinP > 1.0) {
		return fmt.Errorf("min_p must be between 0.0 and 1.0, got %v", *a.MinP)
	}
	if a.TopA != nil && (*a.TopA < 0.0 || *a.TopA > 1.0) {
		return fmt.Errorf("top_a must be between 0.0 and 1.0, got %v", *a.TopA)
	}
	if a.MaxTokens != nil && *a.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", *a.MaxTokens)
	}
	if a.Reasoning != nil && a.Reasoning.Effort != "" && !ValidReasoningEfforts[a.Reasoning.Effort] {
		return fmt.Errorf("reasoning.effort must be one of low, medium, high; got %q", a.Reasoning.Effort)
	}
	if a.Reasoning != nil && a.Reasoning.MaxTokens < 0 {
		return fmt.Errorf("reasoning.max_tokens must be >= 0, got %d", a.Reasoning.MaxTokens)
	}
	return nil
}
