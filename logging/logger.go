package logging

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
//
// Behavior is controlled by environment variables:
//
//	TENDRIL_LOG_LEVEL  - debug|info|warn|error (default info)
//	TENDRIL_LOG_FORMAT - text|json (default text)
//	TENDRIL_LOG_CALLER - "true" to include file:line in output
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("TENDRIL_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("TENDRIL_LOG_CALLER") == "true" {
		logger.SetReportCaller(true)
	}

	switch os.Getenv("TENDRIL_LOG_FORMAT") {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&TextFormatter{
			Colors: isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	logger.SetOutput(os.Stderr)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel overrides the level for an already-created component logger.
// Used by the CLI layer when --verbose is passed.
func SetLevel(component string, level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if entry, exists := loggers[component]; exists {
		entry.Logger.SetLevel(level)
	}
}
