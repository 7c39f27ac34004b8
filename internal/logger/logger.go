package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func level(debugMode bool) zap.AtomicLevel {
	if debugMode {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}

// NewProductionLogger creates a production-ready logger with JSON encoding
func NewProductionLogger(debugMode bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = level(debugMode)
	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	// stack traces for error level and above
	config.DisableStacktrace = false

	return config.Build()
}

// NewCLILogger creates a console logger writing to stderr so command output on stdout stays clean
func NewCLILogger(debugMode bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = level(debugMode)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = !debugMode
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return config.Build()
}

// Sync flushes any buffered log entries. This should be called before application exit.
// It's safe to call Sync() multiple times.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}
