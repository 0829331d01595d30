// Package common provides shared utilities for Tally
package common

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

func consoleWriter() arbor_models.WriterConfiguration {
	return arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
		OutputType: arbor_models.OutputFormatLogfmt,
	}
}

// NewLogger creates a console logger with the specified level
func NewLogger(level string) *Logger {
	if level == "" {
		level = "info"
	}
	logger := arbor.NewLogger().
		WithConsoleWriter(consoleWriter()).
		WithLevelFromString(level)
	return &Logger{ILogger: logger}
}

// NewLoggerFromConfig creates a logger from the logging section of the config
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, output := range cfg.Outputs {
		switch output {
		case "file":
			hasFile = true
		case "console", "stdout":
			hasConsole = true
		}
	}

	if hasFile && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			logger = logger.WithFileWriter(arbor_models.WriterConfiguration{
				Type:       arbor_models.LogWriterTypeFile,
				FileName:   cfg.FilePath,
				TimeFormat: "15:04:05",
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: arbor_models.OutputFormatLogfmt,
			})
		}
	}
	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return &Logger{ILogger: logger.WithLevelFromString(level)}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() *Logger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger that discards all output. The private
// writer is never started, so every event is dropped without touching the
// shared writer registry.
func NewSilentLogger() *Logger {
	discard, err := writers.NewChannelWriter(arbor_models.WriterConfiguration{}, 1, func(arbor_models.LogEvent) error { return nil })
	if err != nil {
		return NewLogger("disabled")
	}
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{discard})}
}

// WithCorrelationID returns a logger tagging every entry with id
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
