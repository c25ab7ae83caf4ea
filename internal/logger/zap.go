package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger and owns the log file, if any.
type Logger struct {
	*zap.SugaredLogger
	file *os.File
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// loggerName is printed on every line, next to the level.
const loggerName = "geotrace"

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case CriticalLevel:
		return zapcore.DPanicLevel
	default:
		return defaultZapLevel
	}
}

// newEncoder returns the console encoder shared by every sink so that the
// file and the terminal receive identical lines.
func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " - "
	return zapcore.NewConsoleEncoder(cfg)
}

// newCore builds a zapcore.Core targeting w.
func newCore(enc zapcore.Encoder, w io.Writer, level zapcore.LevelEnabler) zapcore.Core {
	ws := zapcore.Lock(zapcore.AddSync(w)) // thread-safe writer
	return zapcore.NewCore(enc, ws, level)
}

// newZapLogger constructs a sugared zap logger teeing console and file output.
func newZapLogger(levelStr string, console io.Writer, file *os.File) *Logger {
	level := zap.NewAtomicLevelAt(toZapLevel(levelStr))
	enc := newEncoder()

	cores := []zapcore.Core{newCore(enc, console, level)}
	if file != nil {
		cores = append(cores, newCore(enc.Clone(), file, level))
	}

	return &Logger{
		SugaredLogger: zap.New(zapcore.NewTee(cores...)).Named(loggerName).Sugar(),
		file:          file,
	}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync() // stdout sync fails on some terminals
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
