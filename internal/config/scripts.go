package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScriptSettings configures one dispatcher script mounted on the host.
type ScriptSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Extension   string `yaml:"extension"`
	ServletName string `yaml:"servlet_name"`
	// ContextConfigLocation points at the dispatcher context YAML file.
	ContextConfigLocation string `yaml:"context_config_location"`
	Description           string `yaml:"description"`
}

// ScriptsConfig maps script ids to their settings.
type ScriptsConfig struct {
	Scripts map[string]*ScriptSettings `yaml:"scripts"`
}

// LoadScriptsConfigFromPath loads the scripts configuration from a file.
func LoadScriptsConfigFromPath(path string) (*ScriptsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scripts config: %w", err)
	}

	var cfg ScriptsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scripts config: %w", err)
	}

	for id, settings := range cfg.Scripts {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("script id must not be blank")
		}
		if settings == nil {
			return nil, fmt.Errorf("script %s: settings are required", id)
		}
		if strings.Contains(id, "/") {
			return nil, fmt.Errorf("script %s: id must be a single path segment", id)
		}
	}

	return &cfg, nil
}

// LoadScriptsConfigOrDefault loads scripts config or returns the default if
// the file cannot be read.
func LoadScriptsConfigOrDefault(path string) *ScriptsConfig {
	cfg, err := LoadScriptsConfigFromPath(path)
	if err != nil {
		return DefaultScriptsConfig()
	}
	return cfg
}

// DefaultScriptsConfig mounts a single "mvc" dispatcher script.
func DefaultScriptsConfig() *ScriptsConfig {
	return &ScriptsConfig{
		Scripts: map[string]*ScriptSettings{
			"mvc": {
				Enabled:     true,
				Extension:   "service.json",
				Description: "MVC dispatcher for repository controllers",
			},
		},
	}
}

// IsEnabled reports whether the script exists and is enabled.
func (c *ScriptsConfig) IsEnabled(id string) bool {
	settings := c.GetSettings(id)
	return settings != nil && settings.Enabled
}

// GetSettings returns the settings of a script, or nil.
func (c *ScriptsConfig) GetSettings(id string) *ScriptSettings {
	if c == nil || c.Scripts == nil {
		return nil
	}
	return c.Scripts[id]
}

// EnabledIDs returns the enabled script ids in sorted order.
func (c *ScriptsConfig) EnabledIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Scripts))
	for id, settings := range c.Scripts {
		if settings != nil && settings.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
