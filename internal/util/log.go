// Package util provides small cross-cutting helpers shared by the agent's
// packages, starting with a structured logger.
package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level from its string name.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches the logger to JSON output, useful when the agent
// runs under a supervisor that scrapes structured logs.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger entry carrying a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger entry carrying multiple fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithDevice returns a logger entry scoped to a device family tag.
func WithDevice(deviceType string) *logrus.Entry {
	return Logger.WithField("device_type", deviceType)
}

// WithOperation returns a logger entry scoped to a boss command verb.
func WithOperation(operation string) *logrus.Entry {
	return Logger.WithField("operation", operation)
}

// Redacted is the fixed placeholder logged in place of any secret
// (password, private key path, SNMP community string) so that field
// presence is visible in logs without leaking the value.
const Redacted = "***"
