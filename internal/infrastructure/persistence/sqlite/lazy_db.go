package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/logging"
)

// ErrDatabaseClosed is returned by DB after Close.
var ErrDatabaseClosed = errors.New("preference database is closed")

// LazyDB opens the preference database on first use and shares it between
// every profile's pref store. A failed open is remembered; the caller sees
// the same error on every later call.
type LazyDB struct {
	path string

	mu      sync.Mutex
	db      *sql.DB
	openErr error
	closed  bool
}

var _ port.DatabaseProvider = (*LazyDB)(nil)

// NewLazyDB returns a provider for the database at path without opening it.
func NewLazyDB(path string) *LazyDB {
	return &LazyDB{path: path}
}

// DB returns the shared connection, opening and migrating the database on
// the first call.
func (l *LazyDB) DB(ctx context.Context) (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.closed:
		return nil, ErrDatabaseClosed
	case l.db != nil:
		return l.db, nil
	case l.openErr != nil:
		return nil, l.openErr
	}

	log := logging.FromContext(ctx)
	log.Debug().Str("path", l.path).Msg("opening preference database")

	db, err := Open(ctx, l.path)
	if err != nil {
		l.openErr = fmt.Errorf("open preference database: %w", err)
		log.Error().Err(err).Str("path", l.path).Msg("preference database unavailable")
		return nil, l.openErr
	}
	l.db = db
	return db, nil
}

// Close closes the connection if it was opened. Later DB calls fail with
// ErrDatabaseClosed.
func (l *LazyDB) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// IsInitialized reports whether the database is currently open.
func (l *LazyDB) IsInitialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db != nil
}

// SchemaVersion returns the applied migration version, opening the
// database if needed.
func (l *LazyDB) SchemaVersion(ctx context.Context) (int64, error) {
	db, err := l.DB(ctx)
	if err != nil {
		return 0, err
	}
	return GetMigrationStatus(ctx, db)
}

// Path returns the database file path.
func (l *LazyDB) Path() string {
	return l.path
}
