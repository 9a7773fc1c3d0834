// Package logging provides the process-wide structured logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger, a stdout logger at info level. At
// startup its level is set from the CLI flags through SetLevel; code that
// runs before that point (or in tests) logs at info level.
var Logger = New("info", "")

// New builds a configured logger. An empty output path logs to stdout; any
// other value is treated as a file path opened for append, falling back to
// stdout if the file cannot be opened.
func New(level, output string) *logrus.Logger {
	logger := logrus.New()

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if output == "" {
		logger.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logger.SetOutput(file)
		} else {
			logger.SetOutput(os.Stdout)
			logger.WithError(err).Warnf("failed to open log file %s, using stdout", output)
		}
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return logger
}

// SetLevel changes the log level of the process-wide logger at runtime.
func SetLevel(level string) {
	switch level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "info":
		Logger.SetLevel(logrus.InfoLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	}
}

// Component returns a sub-logger tagged with a component field, for
// attributing log lines to the subsystem that emitted them.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
