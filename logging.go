package sirihub

import (
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogging builds the process logger. The level is read from
// SIRI_HUB_LOG_LEVEL and defaults to info.
func InitLogging() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("SIRI_HUB_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
