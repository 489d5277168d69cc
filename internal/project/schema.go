package project

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// supportedSchemas is the range of lmproject.yml schemas this build reads.
const supportedSchemas = "^2.0"

// SchemaError is a single structural problem in a project file.
type SchemaError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e SchemaError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaErrors is a collection of structural problems.
type SchemaErrors []SchemaError

// Error implements the error interface.
func (e SchemaErrors) Error() string {
	if len(e) == 0 {
		return "no schema errors"
	}

	var sb strings.Builder
	sb.WriteString("project file does not match schema:\n")
	for _, err := range e {
		sb.WriteString("  ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// checkSchema validates the raw project document against the embedded CUE
// definition of a project file.
func checkSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing project file: %w", err)
	}
	if raw == nil {
		return SchemaErrors{{Message: "project file is empty"}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE)
	if schema.Err() != nil {
		return fmt.Errorf("compiling project schema: %w", schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath("#Project"))
	value := def.Unify(ctx.Encode(raw))
	err := value.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs SchemaErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = append(errs, SchemaError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return errs
}

// checkSchemaVersion rejects project files written for a schema this build
// does not understand.
func checkSchemaVersion(schema string) error {
	v, err := semver.NewVersion(schema)
	if err != nil {
		return fmt.Errorf("schema %q is not a valid version: %w", schema, err)
	}
	c, err := semver.NewConstraint(supportedSchemas)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("schema %q is not supported, expected %s", schema, supportedSchemas)
	}
	return nil
}

// VersionWarnings returns notes about a project version that is accepted but
// not a semantic version.
func VersionWarnings(c *Config) []string {
	version := c.EffectiveVersion()
	if _, err := semver.NewVersion(version); err != nil {
		return []string{fmt.Sprintf("Project version %q is not a semantic version", version)}
	}
	return nil
}
