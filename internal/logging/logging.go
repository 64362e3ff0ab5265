// Package logging builds the diagnostic logger shared by the adapters and services.
//
// Console output meant for the operator goes through the line reporter; this
// logger only carries debugging detail and is silent unless verbose is set.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a debug-level development logger on stderr when verbose is true
// and a no-op logger otherwise.
func New(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
