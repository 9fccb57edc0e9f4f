package cli

import (
	"context"
	"fmt"

	"github.com/bnema/touchicons/internal/application/port"
)

// Status summarizes one profile's cache and the shared database.
type Status struct {
	Profile  string
	Dir      string
	Icons    int
	Capacity int

	Database      string
	DatabaseOpen  bool
	SchemaVersion int64
	PrefKeys      []string
}

// Status opens the profile's cache if needed and reports its state.
func (a *App) Status(ctx context.Context, profileID string) (*Status, error) {
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return nil, err
	}
	size, err := storage.Size(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Profile:  profileID,
		Dir:      a.ProfileDir(profileID),
		Icons:    size,
		Capacity: storage.Capacity(),
		Database: a.db.Path(),
	}

	// A failed index read leaves the database closed; the cache still serves
	// from memory.
	st.DatabaseOpen = a.db.IsInitialized()
	if !st.DatabaseOpen {
		return st, nil
	}
	if st.SchemaVersion, err = a.db.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	a.prefsMu.Lock()
	prefs := a.prefs[profileID]
	a.prefsMu.Unlock()
	if prefs != nil {
		if st.PrefKeys, err = prefs.Keys(ctx); err != nil {
			return nil, fmt.Errorf("list pref keys: %w", err)
		}
	}
	return st, nil
}

// Follow calls fn for every event of a kind in mask raised by the profile's
// cache, until stop is called.
func (a *App) Follow(ctx context.Context, profileID string, mask port.IconEventKind, fn port.IconEventFunc) (stop func(), err error) {
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return nil, err
	}
	listener := port.NewIconListener(mask, fn)
	if err := storage.AddObserver(listener); err != nil {
		return nil, err
	}
	return func() { _ = storage.RemoveObserver(listener) }, nil
}
