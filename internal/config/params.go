package config

// Provider-side defaults for sampling parameters, used to detect settings
// that actually diverge from what the model would do anyway.
var samplingDefaults = map[string]float64{
	"temperature":        1.0,
	"top_p":              1.0,
	"top_k":              0,
	"frequency_penalty":  0.0,
	"presence_penalty":   0.0,
	"repetition_penalty": 1.0,
	"min_p":              0.0,
	"top_a":              0.0,
}

// SamplingParams returns every configured sampling parameter (non-nil
// value), keyed by its wire name. Used both for the request payload and for
// params.json.
func (a *APIConfig) SamplingParams() map[string]any {
	params := map[string]any{}
	if a.Temperature != nil {
		params["temperature"] = *a.Temperature
	}
	if a.TopP != nil {
		params["top_p"] = *a.TopP
	}
	if a.TopK != nil {
		params["top_k"] = *a.TopK
	}
	if a.FrequencyPenalty != nil {
		params["frequency_penalty"] = *a.FrequencyPenalty
	}
	if a.PresencePenalty != nil {
		params["presence_penalty"] = *a.PresencePenalty
	}
	if a.RepetitionPenalty != nil {
		params["repetition_penalty"] = *a.RepetitionPenalty
	}
	if a.MinP != nil {
		params["min_p"] = *a.MinP
	}
	if a.TopA != nil {
		params["top_a"] = *a.TopA
	}
	if a.Seed != nil {
		params["seed"] = *a.Seed
	}
	if a.MaxTokens != nil {
		params["max_tokens"] = *a.MaxTokens
	}
	if reasoning := a.Reasoning.PayloadValue(); reasoning != nil {
		params["reasoning"] = reasoning
	}
	return params
}

// NonDefaultParams returns only the sampling parameters whose values differ
// from the provider defaults. Seed and max_tokens count as non-default
// whenever set. Used to build output-directory suffixes and params.json.
func (a *APIConfig) NonDefaultParams() map[string]any {
	params := map[string]any{}

	addFloat := func(name string, v *float64) {
		if v != nil && *v != samplingDefaults[name] {
			params[name] = *v
		}
	}
	addFloat("temperature", a.Temperature)
	addFloat("top_p", a.TopP)
	addFloat("frequency_penalty", a.FrequencyPenalty)
	addFloat("presence_penalty", a.PresencePenalty)
	addFloat("repetition_penalty", a.RepetitionPenalty)
	addFloat("min_p", a.MinP)
	addFloat("top_a", a.TopA)

	if a.TopK != nil && float64(*a.TopK) != samplingDefaults["top_k"] {
		params["top_k"] = *a.TopK
	}
	if a.Seed != nil {
		params["seed"] = *a.Seed
	}
	if a.MaxTokens != nil {
		params["max_tokens"] = *a.MaxTokens
	}
	if a.Reasoning.IsEnabled() {
		if reasoning := a.Reasoning.PayloadValue(); reasoning != nil {
			params["reasoning"] = reasoning
		}
	}
	return params
}

// HasNonDefaultParams reports whether any sampling parameter diverges from
// the provider defaults.
func (a *APIConfig) HasNonDefaultParams() bool {
	return len(a.NonDefaultParams()) > 0
}
