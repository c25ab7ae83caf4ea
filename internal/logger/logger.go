package logger

import (
	"fmt"
	"os"
)

// Log levels used across the application.
const (
	DebugLevel    = "debug"
	InfoLevel     = "info"
	WarnLevel     = "warn"
	ErrorLevel    = "error"
	CriticalLevel = "critical"
)

const logFileMode = 0o644

// New builds a logger that writes the same console-formatted lines to stdout
// and, when filePath is not empty, appends them to filePath.
// The caller owns the returned logger and must Close it on shutdown.
func New(level, filePath string) (*Logger, error) {
	var file *os.File
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", filePath, err)
		}
		file = f
	}
	return newZapLogger(level, os.Stdout, file), nil
}
