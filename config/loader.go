package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// SettingsEnvVar names a settings file that takes precedence over DefaultPaths
	SettingsEnvVar = "MTAPI_SETTINGS"
	// APIKeyEnvVar overrides feed.apiKey
	APIKeyEnvVar = "MTA_KEY"
)

// DefaultPaths are tried in order when neither a path nor SettingsEnvVar is given
var DefaultPaths = []string{"settings.yml", "config.yml"}

// ErrNoConfig is returned when no settings file can be found
var ErrNoConfig = errors.New("no configuration found: create settings.yml or set " + SettingsEnvVar)

// LoadEnv loads .env style files into the process environment. Missing files
// are ignored; with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ResolvePath picks the settings file: explicit path, then SettingsEnvVar,
// then the first existing entry of DefaultPaths.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if p := os.Getenv(SettingsEnvVar); p != "" {
		return p, nil
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrNoConfig
}

// LoadAppConfig reads, defaults, overrides from the environment and validates
// the configuration.
func LoadAppConfig(path string) (*AppConfig, error) {
	p, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Defaults, applies APIKeyEnvVar and validates
func Parse(data []byte) (*AppConfig, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if key := os.Getenv(APIKeyEnvVar); key != "" {
		cfg.Feed.APIKey = key
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags on the whole configuration
func Validate(cfg *AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
