// Package logging configures the process-wide logrus formatter. It stands
// in for the upstream logrusutil.CreateDefaultFormatter helper, which isn't
// part of this repository's dependency surface.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Init sets the standard logger's level and formatter. jsonFormat selects
// structured JSON output (for log aggregation) over the human-readable
// text formatter (for local runs).
func Init(level logrus.Level, jsonFormat bool) {
	logrus.SetLevel(level)
	if jsonFormat {
		logrus.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
		})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// ParseLevel wraps logrus.ParseLevel, defaulting to InfoLevel on a parse
// failure rather than erroring out the whole process for a bad flag value.
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
