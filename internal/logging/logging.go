// Package logging configures the daemon's structured logger: a logrus
// logger with a console appender and an optional rotating file appender,
// adapted from the teacher repo's internal/log package (formatter +
// MultiWriter + lumberjack file appender), trimmed of its Kafka/Loki
// appenders since message-queue plumbing is out of scope (see DESIGN.md).
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction. Zero value is a sane default: info
// level, console only.
type Config struct {
	Level string `mapstructure:"level"`

	FileEnabled bool   `mapstructure:"file_enabled"`
	Filename    string `mapstructure:"filename"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

// New builds a *logrus.Logger per cfg. A zero Config yields an info-level
// console logger.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	l.SetLevel(parsed)

	mw := newMultiWriter().add(os.Stdout)
	if cfg.FileEnabled {
		if cfg.Filename == "" {
			return nil, fmt.Errorf("logging: file_enabled requires filename")
		}
		mw.add(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	l.SetOutput(mw)
	return l, nil
}
