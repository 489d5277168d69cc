package cmdtypes

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/project"
)

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "nil", err: nil, wantCode: ExitSuccess},
		{name: "exit error", err: &ExitError{Code: ExitNotFound, Err: fmt.Errorf("x")}, wantCode: ExitNotFound},
		{name: "unauthorized", err: &orchestrator.StatusError{StatusCode: 401}, wantCode: ExitPermissionDenied},
		{name: "forbidden", err: fmt.Errorf("push: %w", &orchestrator.StatusError{StatusCode: 403}), wantCode: ExitPermissionDenied},
		{name: "unavailable", err: &orchestrator.StatusError{StatusCode: 503}, wantCode: ExitConnectivityError},
		{name: "bad request", err: &orchestrator.StatusError{StatusCode: 400}, wantCode: ExitGeneralError},
		{name: "remote not found", err: fmt.Errorf("GET /x: %w", orchestrator.ErrNotFound), wantCode: ExitNotFound},
		{name: "invalid project", err: fmt.Errorf("%w: no file", project.ErrInvalidProject), wantCode: ExitValidationError},
		{name: "unreachable", err: &url.Error{Op: "Get", URL: "https://lm", Err: fmt.Errorf("refused")}, wantCode: ExitConnectivityError},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ExitConnectivityError},
		{name: "validation sentinel", err: oerrors.Wrap(oerrors.ErrValidation, "bad"), wantCode: ExitValidationError},
		{name: "other", err: fmt.Errorf("boom"), wantCode: ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, ExitCodeFromError(tt.err))
		})
	}
}
