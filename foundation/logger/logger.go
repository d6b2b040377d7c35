// Package logger provides a convenience function to construct a
// logger. It's require for the application and testing.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a Sugared Logger that writes to stdout with
// human-readable timestamps, tagged with the owning service and the
// component within it (e.g. "processor", "dbadapter", "sandbox") so
// log lines from the single-fiber transaction cycle can be filtered
// per subsystem.
func New(service, component string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service":   service,
		"component": component,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
