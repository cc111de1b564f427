// Package logging builds the zap.Logger schemasync's CLI and long-lived
// components (tunnel manager, connection pool, secret store) share, with
// file output rotated through gopkg.in/natefinch/lumberjack.v2.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the shared logger. An empty FilePath disables file
// rotation and logs to stderr only.
type Options struct {
	FilePath   string
	Level      zapcore.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultOptions returns the rotation settings used when a caller doesn't
// override them: 100MB per file, 5 backups, 28 days retention.
func DefaultOptions() Options {
	return Options{
		Level:      zapcore.InfoLevel,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}

// New builds a zap.Logger writing JSON to stderr, plus a rotated file sink
// when opts.FilePath is set.
func New(opts Options) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), opts.Level),
	}

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), opts.Level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
