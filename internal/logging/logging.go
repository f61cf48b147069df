// Package logging sets up the process-wide structured logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured for the orchestrator.
// Level is parsed from levelName; an unrecognized name falls back to info
// rather than failing startup over a logging preference.
func New(levelName string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// Component returns a logger scoped with a "component" field, the
// convention every package in this repository uses instead of ad-hoc
// prefixes.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
