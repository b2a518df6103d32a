// Package logging builds the logrus logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// New creates a logger at the given level. Developer mode uses a human
// readable text formatter; otherwise entries are written as JSON.
func New(level string, developer bool) (*logrus.Logger, error) {
	return NewWithOutput(level, developer, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(level string, developer bool, out io.Writer) (*logrus.Logger, error) {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.Out = out
	logger.Level = lv

	if developer {
		logger.Formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		}
	} else {
		logger.Formatter = &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		}
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}
