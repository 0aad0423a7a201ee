package utils

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	Logger   *logrus.Logger
	loggerMu sync.Mutex
)

// InitLogger initializes the global logger
func InitLogger(level, format, output, file string) error {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	if output == "file" && file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
	} else {
		// stdout carries CLI output, logs go to stderr
		logger.SetOutput(os.Stderr)
	}

	loggerMu.Lock()
	Logger = logger
	loggerMu.Unlock()
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	logger := Logger
	loggerMu.Unlock()

	if logger == nil {
		// Initialize with defaults if not already initialized
		_ = InitLogger("info", "json", "stdout", "")
		return GetLogger()
	}
	return logger
}
