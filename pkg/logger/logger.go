// Package logger wraps a process-wide logrus instance with optional file
// rotation. Strategy code logs through the package-level helpers or via
// WithField entries.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the shared instance; nil until Init runs.
	Logger *logrus.Logger
	logMu  sync.Mutex
)

type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // empty -> stdout only
	MaxSize    int    // MB per file before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
		ForceColors:     true,
	}
	l.SetFormatter(formatter)

	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	multi := io.MultiWriter(writers...)
	l.SetOutput(multi)

	// Mirror onto the global logrus logger so WithField entries created
	// straight off logrus land in the same file.
	logrus.SetOutput(multi)
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)

	Logger = l
	return nil
}

func InitDefault() error {
	return Init(Config{
		Level:      "info",
		OutputFile: "logs/signalbot.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	})
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.NewEntry(logrus.New())
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	if Logger != nil {
		return Logger.WithFields(fields)
	}
	return logrus.NewEntry(logrus.New())
}
