package rtc

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxResourceSize is the resource size ceiling: 50 MiB.
const DefaultMaxResourceSize int64 = 50 << 20

// DefaultAllowedMimePatterns returns the default resource allow-set: images,
// PDF, Word documents, and plain text.
func DefaultAllowedMimePatterns() []string {
	return []string{
		"image/*",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}
}

// Config is the recognized configuration surface.
type Config struct {
	ServerBaseURL       string   `yaml:"server_base_url"`
	MaxResourceSize     int64    `yaml:"max_resource_size_bytes"`
	AllowedMimePatterns []string `yaml:"allowed_mime_patterns"`
	ActionTimeoutMs     int      `yaml:"action_timeout_ms"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		ServerBaseURL:       "http://localhost:8000",
		MaxResourceSize:     DefaultMaxResourceSize,
		AllowedMimePatterns: DefaultAllowedMimePatterns(),
		ActionTimeoutMs:     int(DefaultDispatchTimeout / time.Millisecond),
	}
}

// LoadConfig reads a YAML config file and applies defaults for fields the
// file leaves unset. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.ServerBaseURL != "" {
		cfg.ServerBaseURL = file.ServerBaseURL
	}
	if file.MaxResourceSize > 0 {
		cfg.MaxResourceSize = file.MaxResourceSize
	}
	if len(file.AllowedMimePatterns) > 0 {
		cfg.AllowedMimePatterns = file.AllowedMimePatterns
	}
	if file.ActionTimeoutMs > 0 {
		cfg.ActionTimeoutMs = file.ActionTimeoutMs
	}

	return cfg, nil
}

// ActionTimeout returns the dispatch timeout as a duration.
func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutMs) * time.Millisecond
}
