package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Log is the default logger for the application.
	Log = logrus.New()
)

// Init initializes the logger with the given level and format ("text" or "json").
func Init(level, format string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	Log.SetLevel(logLevel)
	Log.SetOutput(os.Stderr)
	if strings.EqualFold(format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return nil
}
