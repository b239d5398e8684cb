package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
)

// APIKeyEnvVar names the environment variable carrying the OpenRouter key.
const APIKeyEnvVar = "OPENROUTER_API_KEY"

// LoadAPIKey reads the OpenRouter API key from the environment, loading a
// .env file first if one exists. A missing key is a fatal setup error: no
// model can be dispatched without it.
func (c *Config) LoadAPIKey() error {
	// Ignore the error: a missing .env file just means the variable must
	// already be exported.
	_ = godotenv.Load()

	key := os.Getenv(APIKeyEnvVar)
	if key == "" {
		return fmt.Errorf("%s environment variable is not set; set it to your OpenRouter API key", APIKeyEnvVar)
	}
	c.apiKey = key
	return nil
}

// APIKey returns the loaded API key.
func (c *Config) APIKey() string {
	return c.apiKey
}

// SetAPIKey overrides the API key, primarily for tests.
func (c *Config) SetAPIKey(key string) {
	c.apiKey = key
}

// ValidateOpenSCADPath reports whether the configured OpenSCAD executable
// can be found, either as an existing file or in PATH. A missing renderer
// is a warning, not an error: the prompt stage still produces artifacts.
func (c *Config) ValidateOpenSCADPath() bool {
	if info, err := os.Stat(c.OpenSCADPath); err == nil && !info.IsDir() {
		return true
	}
	_, err := exec.LookPath(c.OpenSCADPath)
	return err == nil
}
