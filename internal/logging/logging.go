// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConsoleTarget keeps log output on stderr.
const ConsoleTarget = "console"

// InitLog parses and sets log-level input. A logPath other than "console"
// sends output to a rotating file.
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	if logPath != "" && logPath != ConsoleTarget {
		log.SetOutput(io.Writer(NewRotatingFile(logPath)))
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetLevel(level)
	return nil
}

// NewRotatingFile returns a size-rotated log writer at path.
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		// Log file absolute path, os agnostic
		Filename:   filepath.ToSlash(path),
		MaxSize:    5, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
}
