package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/opmodel/lmctl/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is one configuration value with the source that won.
type ResolvedValue struct {
	Key    string
	Value  string
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveConfigPathResult contains the resolved config path and its source.
type ResolveConfigPathResult struct {
	ConfigPath string
	Source     ConfigSource
	Shadowed   map[ConfigSource]string
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) LMCTL_CONFIG env, (3) ~/.lmctl/config.yaml.
func ResolveConfigPath(flagValue string) (ResolveConfigPathResult, error) {
	result := ResolveConfigPathResult{Shadowed: make(map[ConfigSource]string)}

	paths, err := DefaultPaths()
	if err != nil {
		return result, err
	}
	envValue := os.Getenv(EnvConfig)

	switch {
	case flagValue != "":
		result.ConfigPath = flagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = paths.ConfigFile
	case envValue != "":
		result.ConfigPath = envValue
		result.Source = SourceEnv
		result.Shadowed[SourceDefault] = paths.ConfigFile
	default:
		result.ConfigPath = paths.ConfigFile
		result.Source = SourceDefault
	}

	return result, nil
}

// envName returns the variable viper reads for key.
func envName(key string) string {
	if key == "defaultEnvironment" {
		return EnvEnvironment
	}
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Resolve reports the winning source of every overridable key, using
// precedence flag > env > config > default. flags maps keys to values given
// on the command line.
func (l *Loader) Resolve(flags map[string]string) []ResolvedValue {
	keys := append([]string{"defaultEnvironment"}, envKeys...)
	out := make([]ResolvedValue, 0, len(keys))

	for _, key := range keys {
		rv := ResolvedValue{Key: key, Shadowed: make(map[ConfigSource]string)}

		candidates := []struct {
			source ConfigSource
			value  string
			set    bool
		}{
			{source: SourceFlag},
			{source: SourceEnv},
			{source: SourceConfig},
			{source: SourceDefault},
		}
		candidates[0].value, candidates[0].set = flags[key]
		candidates[1].value, candidates[1].set = os.LookupEnv(envName(key))
		if l.file != nil && l.file.IsSet(key) {
			candidates[2].value, candidates[2].set = fmt.Sprint(l.file.Get(key)), true
		}
		if d := defaultValue(key); d != "" {
			candidates[3].value, candidates[3].set = d, true
		}

		for _, c := range candidates {
			if !c.set {
				continue
			}
			if rv.Source == "" {
				rv.Source = c.source
				rv.Value = c.value
				continue
			}
			rv.Shadowed[c.source] = c.value
		}
		out = append(out, rv)
	}
	return out
}

func defaultValue(key string) string {
	d := DefaultConfig()
	switch key {
	case "log.verbose", "project.autocorrect":
		return "false"
	case "log.timestamps":
		return "true"
	case "project.pollInterval":
		return d.Project.PollInterval.String()
	case "project.pollTimeout":
		return d.Project.PollTimeout.String()
	default:
		return ""
	}
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
