// Package badger provides a BadgerDB-backed concept store.
package badger

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// ErrOpen is returned when the database cannot be opened.
var ErrOpen = errors.New("badger: open failed")

// Config configures BadgerDB storage.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// GCDiscardRatio is the value log discard ratio passed to GC runs.
	GCDiscardRatio float64

	// GCInterval is the interval between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// KeyPrefix namespaces every key, so several stores can share a database.
	KeyPrefix string
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithSyncWrites enables synchronous writes.
func WithSyncWrites() Option {
	return func(c *Config) {
		c.SyncWrites = true
	}
}

// WithGCInterval sets the value log GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) {
		c.GCInterval = d
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// DefaultConfig returns the configuration used by the server.
func DefaultConfig() Config {
	return Config{
		GCDiscardRatio: 0.5,
		GCInterval:     5 * time.Minute,
		KeyPrefix:      "concepts/",
	}
}

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(dbLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}
	return db, nil
}

// dbLogger routes badger's internal messages to the structured logger.
// Badger is chatty at info level, so info is demoted to debug.
type dbLogger struct{}

func (dbLogger) Errorf(format string, args ...any) {
	logging.Error().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (dbLogger) Warningf(format string, args ...any) {
	logging.Warn().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (dbLogger) Infof(format string, args ...any) {
	logging.Debug().Add(logging.Component("badger")).Msg(trim(format, args))
}

func (dbLogger) Debugf(format string, args ...any) {
	logging.Debug().Add(logging.Component("badger")).Msg(trim(format, args))
}

func trim(format string, args []any) string {
	s := fmt.Sprintf(format, args...)
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	return s
}
