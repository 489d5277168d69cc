// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/orchestrator"
)

// Default values applied when neither the config file nor the environment set them.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
	DefaultTimeout      = 60 * time.Second
)

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Verbose enables debug logging.
	// Env: LMCTL_LOG_VERBOSE
	Verbose bool `mapstructure:"verbose"`

	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `mapstructure:"timestamps"`
}

// ProjectConfig holds defaults for project commands.
type ProjectConfig struct {
	// Autocorrect lets validation rewrite legacy layouts in place.
	// Env: LMCTL_PROJECT_AUTOCORRECT
	Autocorrect bool `mapstructure:"autocorrect"`

	// PollInterval is the wait between behaviour execution polls.
	PollInterval time.Duration `mapstructure:"pollInterval" validate:"gte=0"`

	// PollTimeout bounds how long a single execution is polled.
	PollTimeout time.Duration `mapstructure:"pollTimeout" validate:"gte=0"`
}

// Environment describes one orchestration environment.
type Environment struct {
	Address      string                `mapstructure:"address" validate:"required,url"`
	Secure       bool                  `mapstructure:"secure"`
	AuthMode     orchestrator.AuthMode `mapstructure:"authMode" validate:"omitempty,oneof=oauth client token none"`
	AuthAddress  string                `mapstructure:"authAddress" validate:"omitempty,url"`
	Username     string                `mapstructure:"username"`
	Password     string                `mapstructure:"password"`
	ClientID     string                `mapstructure:"clientId"`
	ClientSecret string                `mapstructure:"clientSecret"`
	Token        string                `mapstructure:"token"`
	// Timeout applies to each HTTP request.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// ClientOptions converts e into orchestrator client options.
func (e Environment) ClientOptions() orchestrator.Options {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return orchestrator.Options{
		Address: e.Address,
		Secure:  e.Secure,
		Timeout: timeout,
		Auth: orchestrator.Auth{
			Mode:         e.AuthMode,
			Address:      e.AuthAddress,
			Username:     e.Username,
			Password:     e.Password,
			ClientID:     e.ClientID,
			ClientSecret: e.ClientSecret,
			Token:        e.Token,
		},
	}
}

// Config represents the lmctl CLI configuration.
// Loaded from ~/.lmctl/config.yaml.
type Config struct {
	// Log contains logging-related settings.
	Log LogConfig `mapstructure:"log"`

	// Project contains defaults for project commands.
	Project ProjectConfig `mapstructure:"project"`

	// DefaultEnvironment is used when a command is not given an environment.
	// Env: LMCTL_ENVIRONMENT
	DefaultEnvironment string `mapstructure:"defaultEnvironment"`

	// Environments maps environment names to their connection settings.
	Environments map[string]Environment `mapstructure:"environments" validate:"dive"`
}

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			PollInterval: DefaultPollInterval,
			PollTimeout:  DefaultPollTimeout,
		},
		Environments: map[string]Environment{},
	}
}

// Environment returns the named environment.
func (c *Config) Environment(name string) (Environment, error) {
	if name == "" {
		return Environment{}, fmt.Errorf("no environment selected, name one or set defaultEnvironment")
	}
	env, ok := c.Environments[name]
	if !ok {
		// viper lowercases map keys
		env, ok = c.Environments[strings.ToLower(name)]
	}
	if !ok {
		return Environment{}, oerrors.NewNotFoundError(
			fmt.Sprintf("environment %q not found, configured: %v", name, c.EnvironmentNames()),
			"run 'lmctl config envs' to list environments")
	}
	return env, nil
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
