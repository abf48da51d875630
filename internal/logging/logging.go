// Package logging builds the client's zap logger. The TUI owns the
// terminal, so logs go to a file.
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Off disables logging when used as the log path.
const Off = "off"

type ctxKey struct{}

// New returns a sugared logger writing JSON lines to path, plus a flush
// func for shutdown. An empty path or Off yields a no-op logger.
func New(path string) (*zap.SugaredLogger, func(), error) {
	if path == "" || path == Off {
		return zap.NewNop().Sugar(), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("logging.New: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging.New: open %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.InfoLevel)
	logger := zap.New(core, zap.AddCaller()).Sugar()

	flush := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger, flush, nil
}

// ToContext stores logger in ctx.
func ToContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return zap.NewNop().Sugar()
}
