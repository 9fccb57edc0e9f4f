package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/domain/repository"
	"github.com/bnema/touchicons/internal/logging"
	"github.com/bnema/touchicons/internal/sequence"
)

const (
	selectPrefQuery = `SELECT value FROM prefs WHERE profile = ? AND key = ?`
	upsertPrefQuery = `INSERT INTO prefs (profile, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	selectKeysQuery = `SELECT key FROM prefs WHERE profile = ? ORDER BY key`
)

// PrefStore is a per-profile preference store backed by the prefs table.
//
// Reads are cached in memory. SetList updates the cache at once and
// schedules a write; bursts of writes to one key collapse into a single
// statement on the store's writer sequence.
type PrefStore struct {
	provider port.DatabaseProvider
	profile  string
	ctx      context.Context

	mu    sync.Mutex
	cache map[string][]json.RawMessage

	writer  *sequence.Runner
	pending *sequence.Coalescer

	closeOnce sync.Once
}

// Compile-time interface check.
var _ repository.PrefRepository = (*PrefStore)(nil)

// NewPrefStore creates a store for profile. The database is not touched until
// the first read or write. The logger carried by ctx is used for background
// writes.
func NewPrefStore(ctx context.Context, provider port.DatabaseProvider, profile string) *PrefStore {
	writer := sequence.NewRunner("prefs-" + profile)
	return &PrefStore{
		provider: provider,
		profile:  profile,
		ctx:      logging.WithProfile(context.WithoutCancel(ctx), profile),
		cache:    make(map[string][]json.RawMessage),
		writer:   writer,
		pending:  sequence.NewCoalescer(writer.Post),
	}
}

// Profile returns the profile this store belongs to.
func (s *PrefStore) Profile() string {
	return s.profile
}

// GetList returns the list stored under key, or nil if there is none.
func (s *PrefStore) GetList(ctx context.Context, key string) ([]json.RawMessage, error) {
	s.mu.Lock()
	if values, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cloneList(values), nil
	}
	s.mu.Unlock()

	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}

	var raw string
	err = db.QueryRowContext(ctx, selectPrefQuery, s.profile, key).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read pref %q: %w", key, err)
	}

	var values []json.RawMessage
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("stored pref is not a list, ignoring")
			values = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A SetList that raced with the query wins.
	if cached, ok := s.cache[key]; ok {
		return cloneList(cached), nil
	}
	s.cache[key] = values
	return cloneList(values), nil
}

// SetList replaces the list stored under key. The in-memory value changes
// immediately; the database write happens in the background.
func (s *PrefStore) SetList(ctx context.Context, key string, values []json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("pref key cannot be empty")
	}

	s.mu.Lock()
	s.cache[key] = cloneList(values)
	s.mu.Unlock()

	s.pending.Post(key, func() { s.writeKey(key) })
	return nil
}

// Keys lists the keys stored for this profile.
func (s *PrefStore) Keys(ctx context.Context) ([]string, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}

	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectKeysQuery, s.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to list pref keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Flush waits until every scheduled write has reached the database.
func (s *PrefStore) Flush(ctx context.Context) error {
	return sequence.Flush(ctx, s.writer)
}

// Close flushes pending writes and stops the writer. Later SetList calls only
// update memory.
func (s *PrefStore) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if flushErr := s.Flush(ctx); flushErr != nil {
			err = fmt.Errorf("failed to flush prefs: %w", flushErr)
		}
		s.pending.Destroy()
		s.writer.Close()
	})
	return err
}

// writeKey runs on the writer sequence.
func (s *PrefStore) writeKey(key string) {
	log := logging.FromContext(s.ctx)

	s.mu.Lock()
	values := s.cache[key]
	s.mu.Unlock()

	if values == nil {
		values = []json.RawMessage{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to encode pref")
		return
	}

	db, err := s.provider.DB(s.ctx)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("pref database unavailable, write dropped")
		return
	}

	if _, err := db.ExecContext(s.ctx, upsertPrefQuery, s.profile, key, string(encoded), time.Now().UnixMicro()); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to write pref")
		return
	}

	log.Debug().Str("key", key).Int("entries", len(values)).Msg("pref written")
}

func cloneList(values []json.RawMessage) []json.RawMessage {
	if values == nil {
		return nil
	}
	out := make([]json.RawMessage, len(values))
	copy(out, values)
	return out
}
