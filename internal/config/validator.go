package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/opmodel/lmctl/internal/orchestrator"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	validate.RegisterStructValidation(validateEnvironmentAuth, Environment{})
}

// validateEnvironmentAuth checks that the credentials required by the auth
// mode are present.
func validateEnvironmentAuth(sl validator.StructLevel) {
	env, ok := sl.Current().Interface().(Environment)
	if !ok {
		return
	}
	switch env.AuthMode {
	case orchestrator.AuthOAuth:
		if env.Username == "" {
			sl.ReportError(env.Username, "username", "Username", "required_for_oauth", "")
		}
	case orchestrator.AuthClient:
		if env.ClientID == "" {
			sl.ReportError(env.ClientID, "clientId", "ClientID", "required_for_client", "")
		}
	case orchestrator.AuthToken:
		if env.Token == "" {
			sl.ReportError(env.Token, "token", "Token", "required_for_token", "")
		}
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Validate checks cfg against its struct rules and the per-auth-mode
// credential requirements.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return errs
}

// fieldPath drops the root struct name: "Config.environments[dev].address"
// becomes "environments[dev].address".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("must be a valid URL, got %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "gte":
		return "must not be negative"
	case "required_for_oauth":
		return "is required when authMode is oauth"
	case "required_for_client":
		return "is required when authMode is client"
	case "required_for_token":
		return "is required when authMode is token"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
