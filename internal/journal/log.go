package journal

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var sectionStyle = lipgloss.NewStyle().Bold(true)

// LogConsumer writes entries to a charmbracelet logger.
type LogConsumer struct {
	logger *log.Logger
	runID  string
}

// NewLogConsumer returns a consumer logging to logger.
func NewLogConsumer(logger *log.Logger) *LogConsumer {
	return &LogConsumer{logger: logger}
}

// WithRunID tags every entry with the run id.
func (c *LogConsumer) WithRunID(id string) *LogConsumer {
	c.runID = id
	return c
}

// Consume implements Consumer.
func (c *LogConsumer) Consume(e Entry) {
	var kv []any
	if e.Project != "" {
		kv = append(kv, "project", e.Project)
	}
	if c.runID != "" {
		kv = append(kv, "run", c.runID)
	}

	switch e.Kind {
	case KindSection:
		c.logger.Info(sectionStyle.Render(e.Message), kv...)
	case KindStage:
		c.logger.Info("- "+e.Message, kv...)
	case KindSubproject:
		c.logger.Debug("processing subproject", append(kv, "name", e.Message)...)
	case KindSubprojectEnd:
		c.logger.Debug("finished subproject", kv...)
	case KindErrorEvent:
		c.logger.Error(e.Message, kv...)
	case KindWarning, KindDiagnostic:
		c.logger.Warn(e.Message, kv...)
	default:
		c.logger.Info(e.Message, kv...)
	}
}
