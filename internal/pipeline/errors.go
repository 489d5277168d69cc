package pipeline

import (
	"errors"
	"fmt"

	"github.com/opmodel/lmctl/internal/behaviour"
	oerrors "github.com/opmodel/lmctl/internal/errors"
	"github.com/opmodel/lmctl/internal/validation"
)

// ErrNoEnvironment is returned by operations that need an environment when
// the pipeline was created without one.
var ErrNoEnvironment = errors.New("no environment configured")

// ValidationFailedError stops a build when validation found errors.
type ValidationFailedError struct {
	Result *validation.Result
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n%v", len(e.Result.Errors), e.Result.Err())
}

// Unwrap lets callers match the failure with errors.Is(err, errors.ErrValidation).
func (e *ValidationFailedError) Unwrap() error {
	return oerrors.ErrValidation
}

// TestsFailedError reports a test run with at least one failed scenario.
type TestsFailedError struct {
	Report *behaviour.Report
}

func (e *TestsFailedError) Error() string {
	return fmt.Sprintf("%d test(s) failed, %d passed, %d skipped", e.Report.Failed(), e.Report.Passed(), e.Report.Skipped())
}

// InvalidOptionsError indicates unusable operation options.
type InvalidOptionsError struct {
	Message string
}

func (e *InvalidOptionsError) Error() string {
	return "invalid options: " + e.Message
}
