package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar      *zap.SugaredLogger
	loggerOnce sync.Once
	level      zap.AtomicLevel
)

// initLogger builds the global zap logger writing to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

		cfg := zap.NewProductionConfig()
		cfg.Level = level
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

		logger, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// zap's production config cannot realistically fail to build;
			// fall back to a no-op logger rather than panicking at import time.
			logger = zap.NewNop()
		}
		sugar = logger.Sugar()
	})
}

// SetLevel changes the minimum logging level. Accepted values are the
// zapcore level names ("debug", "info", "warn", "error"). Unknown values
// leave the level unchanged.
func SetLevel(s string) {
	initLogger()
	if l, err := zapcore.ParseLevel(s); err == nil {
		level.SetLevel(l)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	sugar.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	sugar.Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	sugar.Errorw(msg, extended...)
}

// Sync flushes buffered log entries. Intended for deferred use in main.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
