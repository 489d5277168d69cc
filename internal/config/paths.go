package config

import (
	"os"
	"path/filepath"
)

// Environment variable names read outside viper.
const (
	EnvConfig      = "LMCTL_CONFIG"
	EnvEnvironment = "LMCTL_ENVIRONMENT"
)

// Paths contains standard filesystem paths for lmctl.
type Paths struct {
	// ConfigFile is the path to the config file (~/.lmctl/config.yaml).
	ConfigFile string

	// HomeDir is the lmctl home directory (~/.lmctl).
	HomeDir string
}

// DefaultPaths returns the default paths for lmctl.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	lmctlHome := filepath.Join(homeDir, ".lmctl")

	return &Paths{
		ConfigFile: filepath.Join(lmctlHome, "config.yaml"),
		HomeDir:    lmctlHome,
	}, nil
}

// GetConfigFile returns the config file path.
// If LMCTL_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(path string) (bool, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	// Handle ~/path/to/something
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// ~username is not supported
	return path, nil
}
