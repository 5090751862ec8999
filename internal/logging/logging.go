// Package logging configures the logrus logger used by fleetdb.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New builds a logger writing to out with the given level and format.
// Unknown levels fall back to info; format is "json" or "text".
func New(out io.Writer, level, format string) *log.Logger {
	logger := log.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}
