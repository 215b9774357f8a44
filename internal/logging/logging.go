// Package logging builds the logrus logger shared by the supervisor, the
// update actions, and the CLI. Logs go to stderr so stdout stays reserved for
// the two lifecycle banners.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = logrus.InfoLevel

// New returns a text logger writing to w at the given level name.
// An empty level selects DefaultLevel.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl := DefaultLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		lvl = parsed
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return logger, nil
}
