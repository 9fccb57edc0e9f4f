// Package usecase contains application use cases that orchestrate domain logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/domain/entity"
	"github.com/bnema/touchicons/internal/domain/repository"
	domainurl "github.com/bnema/touchicons/internal/domain/url"
	"github.com/bnema/touchicons/internal/logging"
	"github.com/bnema/touchicons/internal/sequence"
)

const (
	DefaultCacheCapacity        = 100
	DefaultRefreshInterval      = 7 * 24 * time.Hour
	DefaultTouchIconSize        = 180
	DefaultMinFaviconSize       = 64
	DefaultMaxConcurrentFetches = 2
)

// IconStorageOptions tunes an IconStorage. Zero values use the defaults.
type IconStorageOptions struct {
	Capacity             int
	RefreshInterval      time.Duration
	TouchIconSize        int
	MinFaviconSize       int
	MaxConcurrentFetches int

	// Observers are registered before the index is loaded.
	Observers []port.IconObserver

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o IconStorageOptions) withDefaults() IconStorageOptions {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCacheCapacity
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.TouchIconSize <= 0 {
		o.TouchIconSize = DefaultTouchIconSize
	}
	if o.MinFaviconSize <= 0 {
		o.MinFaviconSize = DefaultMinFaviconSize
	}
	if o.MaxConcurrentFetches <= 0 {
		o.MaxConcurrentFetches = DefaultMaxConcurrentFetches
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// IconStorage is a bounded, disk-backed cache of one touch icon per origin.
//
// Every index mutation and observer call happens on the owner sequence.
// Blob I/O runs on a separate sequential worker and downloads run on a
// bounded pool; their results are posted back to the owner, which looks the
// origin up again before acting.
type IconStorage struct {
	prefs   repository.PrefRepository
	blobs   port.BlobStore
	fetcher port.IconFetcher
	codec   port.ImageCodec
	opts    IconStorageOptions
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	owner      *sequence.Runner
	disk       *sequence.Runner
	fetchSlots *semaphore.Weighted
	pending    *pendingOps
	disabled   atomic.Bool
	closeOnce  sync.Once

	// Owner sequence only.
	index     *iconIndex
	observers []port.IconObserver
	// unsaved is set when the persisted index could not be read; writing
	// the in-memory index would then drop every stored record.
	unsaved bool
}

// NewIconStorage creates the cache, loads the persisted index and starts
// creating the blob directory in the background. The logger carried by ctx is
// used for the lifetime of the cache.
func NewIconStorage(
	ctx context.Context,
	prefs repository.PrefRepository,
	blobs port.BlobStore,
	fetcher port.IconFetcher,
	codec port.ImageCodec,
	opts IconStorageOptions,
) (*IconStorage, error) {
	if prefs == nil || blobs == nil || fetcher == nil || codec == nil {
		return nil, errors.New("icon storage requires a pref store, blob store, fetcher and codec")
	}

	opts = opts.withDefaults()
	baseCtx, cancel := context.WithCancel(logging.WithComponent(context.WithoutCancel(ctx), "icon-storage"))

	s := &IconStorage{
		prefs:      prefs,
		blobs:      blobs,
		fetcher:    fetcher,
		codec:      codec,
		opts:       opts,
		now:        opts.Now,
		ctx:        baseCtx,
		cancel:     cancel,
		owner:      sequence.NewRunner("icon-storage"),
		disk:       sequence.NewRunner("icon-blobs"),
		fetchSlots: semaphore.NewWeighted(int64(opts.MaxConcurrentFetches)),
		pending:    newPendingOps(),
		index:      newIconIndex(),
		observers:  append([]port.IconObserver(nil), opts.Observers...),
	}

	if _, err := sequence.Call(ctx, s.owner, func() struct{} {
		s.loadFromStore()
		return struct{}{}
	}); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("failed to load icon index: %w", err)
	}

	s.pending.Add()
	sequence.PostTaskAndReply(s.disk, s.owner,
		func() error { return s.blobs.CreateDirectory() },
		func(err error) {
			defer s.pending.Done()
			if err != nil {
				s.disabled.Store(true)
				s.log().Error().Err(err).Str("dir", s.blobs.Dir()).Msg("icon directory unavailable, cache disabled")
			}
		})

	return s, nil
}

func (s *IconStorage) log() *zerolog.Logger {
	return logging.FromContext(s.ctx)
}

// Disabled reports whether the blob directory could not be created.
func (s *IconStorage) Disabled() bool {
	return s.disabled.Load()
}

// Dir returns the blob directory.
func (s *IconStorage) Dir() string {
	return s.blobs.Dir()
}

// AddObserver registers obs. Events that happen after the call are delivered.
func (s *IconStorage) AddObserver(obs port.IconObserver) error {
	if obs == nil {
		return nil
	}
	if !s.owner.Post(func() { s.observers = append(s.observers, obs) }) {
		return ErrClosed
	}
	return nil
}

// RemoveObserver unregisters obs.
func (s *IconStorage) RemoveObserver(obs port.IconObserver) error {
	if !s.owner.Post(func() {
		for i, o := range s.observers {
			if o == obs {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}) {
		return ErrClosed
	}
	return nil
}

// FetchIconIfNeeded reports an icon seen on a page of candidate.HostOrigin.
// It returns immediately; the fetch, if the candidate is worth it, completes
// in the background and is reported through OnIconStored.
func (s *IconStorage) FetchIconIfNeeded(ctx context.Context, candidate *entity.Candidate) error {
	if candidate == nil {
		return fmt.Errorf("%w: nil candidate", ErrInvalidOrigin)
	}

	origin, err := domainurl.Origin(candidate.HostOrigin)
	if err != nil {
		return err
	}
	if s.disabled.Load() {
		return ErrCacheDisabled
	}

	c := *candidate
	c.HostOrigin = origin

	logging.FromContext(ctx).Debug().
		Str("origin", origin).
		Str("url", c.IconURL).
		Str("type", c.IconType.String()).
		Msg("icon candidate received")

	if !s.owner.Post(func() { s.fetchIfNeeded(&c) }) {
		return ErrClosed
	}
	return nil
}

// GetIconForOrigin loads the icon cached for origin, resized to size when
// size > 0, and passes it to callback on the owner sequence. callback
// receives nil when there is no usable icon. Loading marks the icon as
// requested.
func (s *IconStorage) GetIconForOrigin(ctx context.Context, origin string, size int, callback func(image.Image)) error {
	if callback == nil {
		callback = func(image.Image) {}
	}

	canonical, err := domainurl.Origin(origin)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("origin", origin).Msg("icon requested for invalid origin")
		if !s.owner.Post(func() {
			s.notifyLoadComplete(origin, false)
			callback(nil)
		}) {
			return ErrClosed
		}
		return nil
	}

	if !s.owner.Post(func() { s.getIcon(canonical, size, callback) }) {
		return ErrClosed
	}
	return nil
}

// LoadIcon is the blocking form of GetIconForOrigin. A nil image with a nil
// error means no usable icon is cached.
func (s *IconStorage) LoadIcon(ctx context.Context, origin string, size int) (image.Image, error) {
	if s.disabled.Load() {
		return nil, ErrCacheDisabled
	}

	result := make(chan image.Image, 1)
	if err := s.GetIconForOrigin(ctx, origin, size, func(img image.Image) { result <- img }); err != nil {
		return nil, err
	}

	select {
	case img := <-result:
		return img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeleteIconForOrigin removes the icon stored under exactly origin, and its
// blob. Records of related hosts are left alone. It reports whether anything
// was cached.
func (s *IconStorage) DeleteIconForOrigin(ctx context.Context, origin string) (bool, error) {
	canonical, err := domainurl.Origin(origin)
	if err != nil {
		return false, nil
	}

	deleted, err := sequence.Call(ctx, s.owner, func() bool {
		rec := s.index.Get(canonical)
		if rec == nil {
			return false
		}
		s.index.Remove(rec.Origin)
		s.deleteBlob(rec.IconFile, rec.Origin)
		s.saveToStore()
		return true
	})
	if err != nil {
		return false, s.wrapRunnerErr(err)
	}

	if deleted {
		logging.FromContext(ctx).Info().Str("origin", canonical).Msg("cached icon deleted")
	}
	return deleted, nil
}

// SerializeCachedIcons returns copies of every cached record ordered by origin.
func (s *IconStorage) SerializeCachedIcons(ctx context.Context) ([]*entity.IconRecord, error) {
	records, err := sequence.Call(ctx, s.owner, func() []*entity.IconRecord {
		live := s.index.Records()
		out := make([]*entity.IconRecord, 0, len(live))
		for _, rec := range live {
			out = append(out, rec.Clone())
		}
		return out
	})
	if err != nil {
		return nil, s.wrapRunnerErr(err)
	}
	return records, nil
}

// Size returns the number of cached origins.
func (s *IconStorage) Size(ctx context.Context) (int, error) {
	n, err := sequence.Call(ctx, s.owner, func() int { return s.index.Size() })
	if err != nil {
		return 0, s.wrapRunnerErr(err)
	}
	return n, nil
}

// Capacity returns the configured maximum number of cached origins.
func (s *IconStorage) Capacity() int {
	return s.opts.Capacity
}

// Idle waits until no fetch, blob operation or owner task is outstanding.
func (s *IconStorage) Idle(ctx context.Context) error {
	for {
		if err := sequence.Flush(ctx, s.owner); err != nil {
			return s.wrapRunnerErr(err)
		}
		if s.pending.Count() == 0 {
			return nil
		}
		if err := s.pending.Wait(ctx); err != nil {
			return err
		}
	}
}

// Close waits for outstanding work until ctx is done, then stops the cache.
// Later calls return immediately.
func (s *IconStorage) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if idleErr := s.Idle(ctx); idleErr != nil {
			s.log().Warn().Err(idleErr).Msg("closing icon storage with work in flight")
			err = idleErr
		}
		s.shutdown()
		s.log().Debug().Msg("icon storage closed")
	})
	return err
}

func (s *IconStorage) shutdown() {
	s.cancel()
	s.disk.Close()
	s.owner.Close()
}

func (s *IconStorage) wrapRunnerErr(err error) error {
	if errors.Is(err, sequence.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (s *IconStorage) notifyStored(rec *entity.IconRecord) {
	for _, obs := range s.observers {
		obs.OnIconStored(rec.Clone(), rec.IconFile)
	}
}

func (s *IconStorage) notifyEvicted(origin, file string) {
	for _, obs := range s.observers {
		obs.OnIconEvicted(origin, file)
	}
}

func (s *IconStorage) notifyLoadComplete(origin string, success bool) {
	for _, obs := range s.observers {
		obs.OnIconLoadComplete(origin, success)
	}
}

// pendingOps counts in-flight pipelines and blob tasks.
type pendingOps struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newPendingOps() *pendingOps {
	idle := make(chan struct{})
	close(idle)
	return &pendingOps{idle: idle}
}

func (p *pendingOps) Add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		p.idle = make(chan struct{})
	}
	p.n++
}

func (p *pendingOps) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n--
	if p.n == 0 {
		close(p.idle)
	}
}

func (p *pendingOps) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *pendingOps) Wait(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
