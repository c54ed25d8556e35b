package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// Init configures the shared logger. Unknown levels fall back to info.
func Init(level string, format ...string) {
	l := GetLogger()

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.WithField("level", level).Warn("Invalid log level, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if len(format) > 0 && strings.EqualFold(format[0], "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// GetLogger returns the process-wide logger, creating it on first use.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		log = logrus.New()
		log.SetOutput(os.Stdout)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.InfoLevel)
	})
	return log
}
