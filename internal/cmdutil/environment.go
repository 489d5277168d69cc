package cmdutil

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/config"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/output"
)

// EnvironmentOptions select and override the environment of a command.
type EnvironmentOptions struct {
	// Name of the environment, empty selects the configured default.
	Name string

	// Password overrides the configured password when set.
	Password string
}

// ResolveEnvironmentConfig returns the named environment from the loaded
// configuration with opts applied.
func ResolveEnvironmentConfig(gc *cmdtypes.GlobalConfig, opts EnvironmentOptions) (string, config.Environment, error) {
	if gc != nil && gc.ConfigErr != nil {
		return "", config.Environment{}, &cmdtypes.ExitError{
			Code: cmdtypes.ExitValidationError,
			Err:  fmt.Errorf("loading config %s: %w", gc.ConfigPath, gc.ConfigErr),
		}
	}
	if gc == nil || gc.Config == nil {
		return "", config.Environment{}, fmt.Errorf("no configuration loaded, run 'lmctl config init' to create one")
	}
	name := opts.Name
	if name == "" {
		name = gc.Config.DefaultEnvironment
	}
	env, err := gc.Config.Environment(name)
	if err != nil {
		return "", config.Environment{}, &cmdtypes.ExitError{Code: cmdtypes.ExitNotFound, Err: err}
	}
	if opts.Password != "" {
		env.Password = opts.Password
	}
	return name, env, nil
}

// NewStores creates a client for the selected environment.
func NewStores(gc *cmdtypes.GlobalConfig, opts EnvironmentOptions) (orchestrator.Stores, error) {
	name, env, err := ResolveEnvironmentConfig(gc, opts)
	if err != nil {
		return orchestrator.Stores{}, err
	}

	clientOpts := env.ClientOptions()
	if clientOpts.Auth.Mode == orchestrator.AuthOAuth && clientOpts.Auth.Password == "" {
		password, err := promptPassword(name)
		if err != nil {
			return orchestrator.Stores{}, &cmdtypes.ExitError{Code: cmdtypes.ExitPermissionDenied, Err: err}
		}
		clientOpts.Auth.Password = password
	}

	output.Debug("connecting to environment",
		"environment", name,
		"address", env.Address,
		"auth", clientOpts.Auth.Mode,
	)

	client, err := orchestrator.New(clientOpts)
	if err != nil {
		return orchestrator.Stores{}, fmt.Errorf("environment %q: %w", name, err)
	}
	return client.Stores(), nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(environment string) (string, error) {
	if !isTerminal() {
		return "", oerrors.NewPermissionError(environment, "no password configured",
			"set it in the config or pass --pwd")
	}
	fmt.Fprintf(os.Stderr, "Password for environment %s: ", environment)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
