package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for lmctl configuration.
const envPrefix = "LMCTL"

// Keys that can be overridden from the environment. Environments themselves
// are only read from the config file.
var envKeys = []string{
	"log.verbose",
	"log.timestamps",
	"project.autocorrect",
	"project.pollInterval",
	"project.pollTimeout",
}

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v    *viper.Viper
	path string
	// file holds the config file layer alone, nil when no file was read.
	file *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("log.verbose", false)
	v.SetDefault("project.autocorrect", false)
	v.SetDefault("project.pollInterval", defaults.Project.PollInterval)
	v.SetDefault("project.pollTimeout", defaults.Project.PollTimeout)

	_ = v.BindEnv("log.timestamps")
	_ = v.BindEnv("defaultEnvironment", EnvEnvironment)

	return &Loader{v: v}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// A missing file is not an error; defaults and environment apply.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}
	l.path = expandedPath

	l.v.SetConfigFile(expandedPath)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		l.file = viper.New()
		l.file.SetConfigFile(expandedPath)
		l.file.SetConfigType("yaml")
		if err := l.file.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = map[string]Environment{}
	}

	return cfg, nil
}

// Path returns the expanded path of the last loaded file.
func (l *Loader) Path() string { return l.path }

// Found reports whether the last Load read a config file.
func (l *Loader) Found() bool { return l.file != nil }

// Load is a convenience for NewLoader().Load followed by validation.
func Load(configFile string) (*Config, error) {
	cfg, err := NewLoader().Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
