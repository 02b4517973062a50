// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger with the given level and
// output format and returns it for injection.
func Setup(out io.Writer, level string, json bool) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(out)

	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
