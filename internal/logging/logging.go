// Package logging configures the module's single structured logger.
package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level name (DEBUG, INFO, WARN,
// ERROR; case-insensitive; empty means WARN), matching the original CLI's
// `-v` flag. Output uses logrus's TextFormatter with full RFC3339
// timestamps.
func New(level string) (*logrus.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	return log, nil
}

func parseLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(level) {
	case "", "WARN", "WARNING":
		return logrus.WarnLevel, nil
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "INFO":
		return logrus.InfoLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("logging: unrecognized level %q", level)
	}
}

// Component returns a logger entry tagged with the given component name,
// mirroring the original's per-module getLogger(__name__) loggers.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
