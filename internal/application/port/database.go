// Package port defines interfaces for infrastructure adapters.
package port

import (
	"context"
	"database/sql"
)

// DatabaseProvider hands out the preference database shared by all
// profiles. The database may be opened on the first DB call.
type DatabaseProvider interface {
	DB(ctx context.Context) (*sql.DB, error)
	Close() error

	// IsInitialized reports whether DB has opened the database.
	IsInitialized() bool
}
