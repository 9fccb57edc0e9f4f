// Package profile owns one icon cache per browser profile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/logging"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = "default"

var (
	// ErrInvalidProfile is returned for profile IDs that are not safe as a
	// directory name.
	ErrInvalidProfile = errors.New("invalid profile id")

	// ErrRegistryClosed is returned by Get after Close.
	ErrRegistryClosed = errors.New("profile registry is closed")
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateID reports whether id can name a profile.
func ValidateID(id string) error {
	if !profileIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, id)
	}
	return nil
}

// Cache is a profile's icon storage plus whatever must be released with it.
type Cache struct {
	Storage *usecase.IconStorage

	// Release runs after Storage is closed, e.g. to flush its pref store.
	Release func(ctx context.Context) error
}

// Factory builds the cache for a profile.
type Factory func(ctx context.Context, profileID string) (*Cache, error)

type entry struct {
	ready chan struct{}
	cache *Cache
	err   error
}

// Registry maps profile IDs to their icon cache, built lazily on first use.
type Registry struct {
	factory Factory

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		entries: make(map[string]*entry),
	}
}

// Get returns the profile's icon storage, building it on first access.
// Concurrent first calls share one build. A failed build is not remembered.
func (r *Registry) Get(ctx context.Context, profileID string) (*usecase.IconStorage, error) {
	if err := ValidateID(profileID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	e, ok := r.entries[profileID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[profileID] = e
	}
	r.mu.Unlock()

	if !ok {
		r.build(ctx, profileID, e)
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.cache.Storage, nil
}

func (r *Registry) build(ctx context.Context, profileID string, e *entry) {
	log := logging.FromContext(ctx)
	start := time.Now()

	cache, err := r.factory(logging.WithProfile(ctx, profileID), profileID)
	if err == nil && (cache == nil || cache.Storage == nil) {
		err = errors.New("factory returned no storage")
	}
	if err != nil {
		e.err = fmt.Errorf("failed to open icon cache for profile %q: %w", profileID, err)
		r.mu.Lock()
		if r.entries[profileID] == e {
			delete(r.entries, profileID)
		}
		r.mu.Unlock()
		close(e.ready)
		log.Error().Err(err).Str("profile", profileID).Msg("icon cache creation failed")
		return
	}

	e.cache = cache
	close(e.ready)
	log.Debug().
		Str("profile", profileID).
		Dur("took", time.Since(start)).
		Msg("icon cache opened")
}

// Profiles returns the IDs of the open caches, sorted.
func (r *Registry) Profiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		select {
		case <-e.ready:
			if e.err == nil {
				ids = append(ids, id)
			}
		default:
		}
	}
	slices.Sort(ids)
	return ids
}

// Sizes returns the number of cached icons per open profile. Profiles that
// do not answer before ctx is done are left out.
func (r *Registry) Sizes(ctx context.Context) map[string]int {
	sizes := make(map[string]int)
	for _, id := range r.Profiles() {
		storage, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		n, err := storage.Size(ctx)
		if err != nil {
			continue
		}
		sizes[id] = n
	}
	return sizes
}

// Shutdown closes and forgets one profile's cache. It is a no-op for
// profiles that were never opened.
func (r *Registry) Shutdown(ctx context.Context, profileID string) error {
	r.mu.Lock()
	e, ok := r.entries[profileID]
	if ok {
		delete(r.entries, profileID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.release(ctx, profileID, e)
}

// Close shuts every profile down concurrently and rejects later Gets.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for id, e := range entries {
		g.Go(func() error {
			return r.release(gctx, id, e)
		})
	}
	return g.Wait()
}

func (r *Registry) release(ctx context.Context, profileID string, e *entry) error {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if e.err != nil {
		return nil
	}

	var errs []error
	if err := e.cache.Storage.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close icon storage: %w", err))
	}
	if e.cache.Release != nil {
		if err := e.cache.Release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("release profile resources: %w", err))
		}
	}

	logging.FromContext(ctx).Debug().Str("profile", profileID).Msg("icon cache shut down")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", profileID, err)
	}
	return nil
}
