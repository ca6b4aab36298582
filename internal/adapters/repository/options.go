package repository

import (
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithBusyTimeout sets how long sqlite waits on a locked database before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithLogLevel sets the gorm SQL log level (silent by default).
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(s *SQLiteStore) {
		s.logLevel = level
	}
}
