package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/ruleconsole/internal/client"
)

// EnvBaseURL overrides the profile's base URL when set.
const EnvBaseURL = "RULECONSOLE_BASE_URL"

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is the connection settings for one rule service deployment.
type Profile struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ruleconsole", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{
				DefaultProfile: "local",
				Profiles:       make(map[string]Profile),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetProfileConfig resolves the connection settings to use.
// Priority: command flag > RULECONSOLE_BASE_URL > profile > built-in default.
// Returns the profile and the effective profile name ("" when none was used).
func GetProfileConfig(profileName, baseURLFlag string) (*Profile, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	explicit := profileName != ""
	if profileName == "" {
		profileName = cfg.DefaultProfile
	}

	p, ok := cfg.Profiles[profileName]
	if !ok {
		if explicit {
			return nil, "", fmt.Errorf("profile '%s' not found in config", profileName)
		}
		profileName = ""
	}

	switch {
	case baseURLFlag != "":
		p.BaseURL = baseURLFlag
	case os.Getenv(EnvBaseURL) != "":
		p.BaseURL = os.Getenv(EnvBaseURL)
	case p.BaseURL == "":
		p.BaseURL = client.DefaultBaseURL
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")

	if p.Timeout < 0 {
		return nil, "", fmt.Errorf("timeout must not be negative for profile '%s'", profileName)
	}

	return &p, profileName, nil
}

// SetProfile stores base URL and timeout under name, creating the profile if needed.
// A zero timeout keeps the existing value.
func SetProfile(name, baseURL string, timeout time.Duration, makeDefault bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name is required")
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	p := cfg.Profiles[name]
	if baseURL != "" {
		p.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		p.Timeout = timeout
	}
	cfg.Profiles[name] = p
	if makeDefault {
		cfg.DefaultProfile = name
	}

	return SaveConfig(cfg)
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				BaseURL: client.DefaultBaseURL,
				Timeout: 30 * time.Second,
			},
			"staging": {
				BaseURL: "https://rules.staging.example.com",
				Timeout: 10 * time.Second,
			},
		},
	}

	return SaveConfig(cfg)
}
