package zenforce

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client settings loadable from a YAML file.
//
// Settings resolve in order: defaults, then file values, then environment
// overrides (ZENFORCE_BASE_URL, ZENFORCE_ASK_TIMEOUT). The file is optional;
// DefaultConfig alone is enough to talk to a locally run backend.
type Config struct {
	// BaseURL is the backend address, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`

	// AskTimeout bounds the synchronous /ask round trip.
	// Expressed in Go duration syntax in YAML, e.g. "25s".
	AskTimeout time.Duration `yaml:"ask_timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		AskTimeout: DefaultAskTimeout,
	}
}

// UnmarshalYAML decodes ask_timeout from duration syntax ("25s", "1m30s").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL    string `yaml:"base_url"`
		AskTimeout string `yaml:"ask_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.BaseURL = raw.BaseURL
	if raw.AskTimeout != "" {
		d, err := time.ParseDuration(raw.AskTimeout)
		if err != nil {
			return fmt.Errorf("invalid ask_timeout %q: %w", raw.AskTimeout, err)
		}
		c.AskTimeout = d
	}
	return nil
}

// LoadConfigFromFile reads a YAML config, fills unset fields with defaults,
// and applies environment overrides. An empty path skips the file and returns
// defaults plus overrides.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("zenforce: reading config file: %w", err)
		}
		loaded := &Config{}
		if err := yaml.Unmarshal(data, loaded); err != nil {
			return nil, fmt.Errorf("zenforce: parsing config file: %w", err)
		}
		if loaded.BaseURL != "" {
			cfg.BaseURL = loaded.BaseURL
		}
		if loaded.AskTimeout > 0 {
			cfg.AskTimeout = loaded.AskTimeout
		}
	}

	if v := os.Getenv("ZENFORCE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ZENFORCE_ASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("zenforce: invalid ZENFORCE_ASK_TIMEOUT %q: %w", v, err)
		}
		cfg.AskTimeout = d
	}

	return cfg, nil
}
