package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap logger writing JSON to stdout and, when path is set,
// to a size-rotated file as well.
func New(level string, path string) (*zap.Logger, error) {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
	}

	lvl := parseLevel(level)

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl),
	}

	if path != "" {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lj), lvl))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
