package logger

import (
	"log"
	"os"
)

// LoggerInterface defines the methods that your logger should implement.
type LoggerInterface interface {
	Printf(format string, v ...interface{})
}

// Logger represents a logger instance.
type Logger struct {
	*log.Logger
}

// NewLogger creates a new instance of LoggerInterface writing to the given
// file. An empty path, or a file that cannot be opened, falls back to stderr.
func NewLogger(path string) LoggerInterface {
	if path == "" {
		return &Logger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
	}
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Error opening log file %s, logging to stderr: %v", path, err)
		return &Logger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
	}
	return &Logger{Logger: log.New(logFile, "", log.LstdFlags)}
}
