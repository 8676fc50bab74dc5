package logger

import (
	"os"

	"go.uber.org/zap"
)

var sugar = newSugared()

func newSugared() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("LOG_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

func Info(format string, v ...interface{}) {
	sugar.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	sugar.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	sugar.Debugf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	sugar.Fatalf(format, v...)
}

// Sync flushes buffered log entries; call before process exit.
func Sync() {
	_ = sugar.Sync()
}
