package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// newLogger returns a zerolog logger writing JSON lines to w, or a console
// writer when w is a terminal.
func newLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(level); err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
	}
	if isTerminal(w) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// newZapLogger builds the zap logger used by the WebAssembly engine at the
// same level as the main logger.
func newZapLogger(level zerolog.Level, w io.Writer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(enc)
	if isTerminal(w) {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	zl := zapcore.InfoLevel
	switch {
	case level == zerolog.Disabled:
		return zap.NewNop()
	case level <= zerolog.DebugLevel:
		zl = zapcore.DebugLevel
	case level == zerolog.WarnLevel:
		zl = zapcore.WarnLevel
	case level >= zerolog.ErrorLevel:
		zl = zapcore.ErrorLevel
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zl))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
