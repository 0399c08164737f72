// Package logging sets up piperack's own structured logger and, when a
// log_file template is configured, per-process file sinks for supervised
// child output.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logger piperack uses for its own diagnostic output. It
// always uses zap's development-style console encoder; debug enables
// debug-level messages, otherwise the level is raised to info.
func New(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger := zap.Must(cfg.Build())
	return logger.Named("piperack")
}
