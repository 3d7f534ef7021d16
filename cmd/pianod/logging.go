package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. Production JSON goes to stderr;
// debug switches to the console encoder. When the terminal belongs to the
// console UI, output goes to logFile instead, or nowhere if it is empty.
func newLogger(debug, consoleUI bool, logFile string) (*zap.Logger, error) {
	if consoleUI && logFile == "" {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if consoleUI {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}
	return cfg.Build()
}
