package logger

import (
	"io"
	"os"
	"strings"

	"github.com/klokku/agenda/internal/config"
	log "github.com/sirupsen/logrus"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the optional log file
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Configure applies the configured level and, when cfg.File is set, adds a rotating file output.
// The returned closer releases the file and is never nil.
func Configure(cfg config.Log, stderr io.Writer) (io.Closer, error) {
	level := log.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nopCloser{}, err
		}
		level = parsed
	}
	log.SetLevel(level)

	if cfg.File == "" {
		log.SetOutput(stderr)
		return nopCloser{}, nil
	}

	file := &lj.Logger{
		Filename:   cfg.File,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(stderr, file))
	return file, nil
}

// ConfigureFromEnv honours LOG_LEVEL before any configuration file is read.
func ConfigureFromEnv() error {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		log.SetLevel(log.InfoLevel)
		return nil
	}
	logrusLevel, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(logrusLevel)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
