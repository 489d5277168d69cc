// Package cmdtypes provides shared types for the cmd package and its sub-packages.
// It is separate from internal/cmd to avoid import cycles between internal/cmd
// and its sub-packages (internal/cmd/project, internal/cmd/config).
package cmdtypes

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/opmodel/lmctl/internal/config"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/project"
)

// GlobalConfig holds CLI-wide configuration resolved during PersistentPreRunE.
// It is populated once at startup and passed explicitly into every sub-command
// constructor.
type GlobalConfig struct {
	Config     *config.Config
	Loader     *config.Loader
	ConfigPath string // resolved --config path
	Verbose    bool

	// ConfigErr is the error from loading or validating the config file.
	// Commands that do not need an environment still run when it is set.
	ConfigErr error

	// Flags holds the config keys set on the command line, for source reporting.
	Flags map[string]string
}

// Project returns the configured project defaults, or the built-in defaults
// when no configuration was loaded.
func (g *GlobalConfig) Project() config.ProjectConfig {
	if g == nil || g.Config == nil {
		return config.DefaultConfig().Project
	}
	return g.Config.Project
}

// Exit codes, aliased from internal/errors.
const (
	ExitSuccess           = oerrors.ExitSuccess
	ExitGeneralError      = oerrors.ExitGeneralError
	ExitValidationError   = oerrors.ExitValidationError
	ExitConnectivityError = oerrors.ExitConnectivityError
	ExitPermissionDenied  = oerrors.ExitPermissionDenied
	ExitNotFound          = oerrors.ExitNotFound
)

// ExitError is a type alias to internal/errors.ExitError.
type ExitError = oerrors.ExitError

// ExitCodeFromError maps pipeline and environment errors to exit codes.
// Errors it does not recognise fall back to oerrors.ExitCodeFromError.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var statusErr *orchestrator.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ExitPermissionDenied
		case http.StatusNotFound:
			return ExitNotFound
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return ExitConnectivityError
		}
		return ExitGeneralError
	}

	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, project.ErrInvalidProject):
		return ExitValidationError
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		return ExitConnectivityError
	}
	return oerrors.ExitCodeFromError(err)
}
