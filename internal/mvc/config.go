package mvc

import (
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// InitParamContextConfigLocation names the init parameter that points at the
// dispatcher settings file.
const InitParamContextConfigLocation = "contextConfigLocation"

// Config is the servlet-style configuration passed to Init. No container
// provides it: callers synthesise one.
type Config interface {
	ServletName() string
	InitParameter(name string) string
	InitParameterNames() []string
}

// Settings are read from the dispatcher context config file.
type Settings struct {
	// DefaultErrorStatus is used for resolved handler errors that carry no
	// HTTP status of their own.
	DefaultErrorStatus int `yaml:"default_error_status"`
	// ResolveErrors writes handler errors as exception envelopes. When false
	// they are returned from Service instead.
	ResolveErrors bool  `yaml:"resolve_errors"`
	MaxBodyBytes  int64 `yaml:"max_body_bytes"`
	// Controllers restricts routing to the named controller beans. Empty
	// selects every Controller visible from the dispatcher context.
	Controllers []string `yaml:"controllers"`
}

// DefaultSettings returns the settings used when no config file is given.
func DefaultSettings() Settings {
	return Settings{
		DefaultErrorStatus: http.StatusBadRequest,
		ResolveErrors:      true,
		MaxBodyBytes:       1 << 20,
	}
}

// LoadSettings reads settings from a YAML file. Missing keys keep their
// defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read dispatcher context config: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse dispatcher context config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("dispatcher context config %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.DefaultErrorStatus < 400 || s.DefaultErrorStatus > 599 {
		return fmt.Errorf("default_error_status %d is not an error status", s.DefaultErrorStatus)
	}
	if s.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must not be negative")
	}
	return nil
}
