// Package logger provides structured logging for Seal.
//
// This package wraps Uber's zap logger to provide high-performance, structured
// logging with configurable log levels. It initializes a global logger instance
// for use throughout the Seal service.
//
// # Configuration
//
// The log level is configured via the LOG_LEVEL environment variable or
// directly via InitLogger:
//
//	logger.InitLogger("debug") // Options: debug, info, warn, error
//
// # Usage
//
// After initialization, use the global Log variable:
//
//	logger.Log.Info("rule version activated",
//	    zap.String("version", version),
//	)
//
//	logger.Log.Warn("check denied by depth guard",
//	    zap.String("subject", subject),
//	    zap.String("object", object),
//	)
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

func InitLogger(level string) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	Log, err = cfg.Build()
	if err != nil {
		panic(err)
	}
}
