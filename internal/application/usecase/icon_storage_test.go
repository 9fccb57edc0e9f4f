package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/touchicons/internal/application/port"
	portmocks "github.com/bnema/touchicons/internal/application/port/mocks"
	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/domain/entity"
	repomocks "github.com/bnema/touchicons/internal/domain/repository/mocks"
)

const (
	exampleOrigin = "https://example.com"
	exampleTouch  = "https://example.com/apple-touch-icon.png"
	day           = 24 * time.Hour
)

func TestIconStorage_FetchIconIfNeeded_StoresTouchIcon(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve("https://example.com/icon-180.png", 180)
	storage := f.open(t)

	err := storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://Example.com:443/some/page", "https://example.com/icon-180.png", entity.IconTypeTouch))
	require.NoError(t, err)
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, exampleOrigin, rec.Origin)
	assert.Equal(t, entity.IconTypeTouch, rec.IconType)
	assert.Equal(t, 180, rec.IconSize)
	assert.True(t, f.blobs.has(rec.IconFile))
	assert.True(t, rec.FetchTime.Equal(f.clock.Now()))
	assert.False(t, rec.WasRequested())

	stored := f.events.of(port.IconStored)
	require.Len(t, stored, 1)
	assert.Equal(t, rec.IconFile, stored[0].File)

	entries := f.prefs.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, exampleOrigin, entries[0]["host_origin"])
	assert.Equal(t, rec.IconFile, entries[0]["icon_file"])
	assert.EqualValues(t, entity.IconTypeTouch, entries[0]["icon_type"])
}

func TestIconStorage_FetchIconIfNeeded_SynthesizesDefaultTouchIconURL(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve(exampleTouch, 152)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://example.com/path?q=1", "", entity.IconTypeFavicon)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, exampleTouch, records[0].IconURL)
	assert.Equal(t, entity.IconTypeTouch, records[0].IconType)
	assert.Equal(t, 152, records[0].IconSize)
	assert.Equal(t, 1, f.server.callCount(exampleTouch))
}

func TestIconStorage_FetchIconIfNeeded_FreshCachedIconWins(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve(exampleTouch, 180)
	storage := f.open(t)

	candidate := entity.NewCandidate(exampleOrigin, exampleTouch, entity.IconTypeTouch)
	candidate.IconSize = 180

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, candidate))
	require.NoError(t, storage.Idle(f.ctx))

	f.clock.Advance(day)
	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, candidate))
	require.NoError(t, storage.Idle(f.ctx))

	assert.Equal(t, 1, f.server.callCount(exampleTouch))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].LastVisitTime.Equal(f.clock.Now()), "visit time refreshed")
	assert.True(t, records[0].FetchTime.Equal(f.clock.Now().Add(-day)), "fetch time unchanged")

	stored := f.events.of(port.IconStored)
	require.Len(t, stored, 2, "re-affirmed icon is reported again")
	assert.Equal(t, stored[0].File, stored[1].File)
}

func TestIconStorage_FetchIconIfNeeded_StaleCachedIconIsRefetched(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve(exampleTouch, 180)
	storage := f.open(t)

	candidate := entity.NewCandidate(exampleOrigin, exampleTouch, entity.IconTypeTouch)
	candidate.IconSize = 180

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, candidate))
	require.NoError(t, storage.Idle(f.ctx))
	first, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	f.clock.Advance(8 * day)
	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, candidate))
	require.NoError(t, storage.Idle(f.ctx))

	assert.Equal(t, 2, f.server.callCount(exampleTouch))

	second, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].IconFile, second[0].IconFile)
	assert.False(t, f.blobs.has(first[0].IconFile), "replaced blob is deleted")
	assert.True(t, f.blobs.has(second[0].IconFile))
	assert.Equal(t, 1, f.blobs.count())
	assert.Empty(t, f.events.of(port.IconEvicted), "replacement is not an eviction")
}

func TestIconStorage_FetchIconIfNeeded_TouchDisplacesFreshSmallFavicon(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	files := f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeFavicon, size: 32, fetch: now, visit: now})
	f.server.serve(exampleTouch, 180)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, exampleTouch, entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.IconTypeTouch, records[0].IconType)
	assert.False(t, f.blobs.has(files[0]))
}

func TestIconStorage_FetchIconIfNeeded_SmallFaviconIsDropped(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve("https://example.com/favicon.ico", 32)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "https://example.com/favicon.ico", entity.IconTypeFavicon)))
	require.NoError(t, storage.Idle(f.ctx))

	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, 1, f.server.callCount(exampleTouch), "default touch icon still requested")
	assert.Zero(t, f.blobs.count(), "dropped favicon leaves no file")
	assert.Empty(t, f.events.of(port.IconStored))
}

func TestIconStorage_FetchIconIfNeeded_SmallFaviconStillYieldsTouchIcon(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve("https://example.com/favicon.ico", 32)
	f.server.serve(exampleTouch, 120)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "https://example.com/favicon.ico", entity.IconTypeFavicon)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.IconTypeTouch, records[0].IconType)
	assert.Equal(t, 120, records[0].IconSize)
	assert.Equal(t, 1, f.blobs.count())
}

func TestIconStorage_FetchIconIfNeeded_LargeFaviconCommittedAndTouchRequested(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve("https://example.com/favicon.png", 96)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "https://example.com/favicon.png", entity.IconTypeFavicon)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.IconTypeFavicon, records[0].IconType)
	assert.Equal(t, 96, records[0].IconSize)
	assert.Equal(t, 1, f.server.callCount(exampleTouch))
}

func TestIconStorage_FetchIconIfNeeded_FailuresLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *storageFixture)
	}{
		{
			name:  "fetch error",
			setup: func(f *storageFixture) {},
		},
		{
			name: "empty body",
			setup: func(f *storageFixture) {
				f.server.serveRaw("https://example.com/new.png", []byte{})
			},
		},
		{
			name: "undecodable body",
			setup: func(f *storageFixture) {
				f.server.serveRaw("https://example.com/new.png", []byte("<html>not an image</html>"))
			},
		},
		{
			name: "write error",
			setup: func(f *storageFixture) {
				f.server.serve("https://example.com/new.png", 180)
				f.blobs.writeErr = errors.New("disk full")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStorageFixture(t)
			old := f.clock.Now().Add(-30 * day)
			files := f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 120, fetch: old, visit: old})
			tt.setup(f)
			storage := f.open(t)
			writesBefore := f.prefs.setCount()

			require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "https://example.com/new.png", entity.IconTypeTouch)))
			require.NoError(t, storage.Idle(f.ctx))

			records, err := storage.SerializeCachedIcons(f.ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, files[0], records[0].IconFile)
			assert.Equal(t, 120, records[0].IconSize)
			assert.True(t, f.blobs.has(files[0]))
			assert.Empty(t, f.events.of(port.IconStored))
			assert.Equal(t, writesBefore, f.prefs.setCount())
		})
	}
}

func TestIconStorage_FetchIconIfNeeded_InvalidOrigin(t *testing.T) {
	f := newStorageFixture(t)
	storage := f.open(t)

	for _, origin := range []string{"ftp://example.com", "file:///tmp/a.png", "chrome://newtab.page", "mailto:a@example.com"} {
		err := storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(origin, "", entity.IconTypeTouch))
		assert.ErrorIs(t, err, usecase.ErrInvalidOrigin, origin)
	}

	err := storage.FetchIconIfNeeded(f.ctx, nil)
	assert.ErrorIs(t, err, usecase.ErrInvalidOrigin)

	require.NoError(t, storage.Idle(f.ctx))
	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestIconStorage_UpperCaseSchemeFindsRecord(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
	storage := f.open(t)

	img, err := storage.LoadIcon(f.ctx, "HTTPS://Example.COM/page", 0)
	require.NoError(t, err)
	assert.NotNil(t, img)

	deleted, err := storage.DeleteIconForOrigin(f.ctx, "HTTPS://EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestIconStorage_InvalidOriginsNeverMatchRecords(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
	storage := f.open(t)

	for _, origin := range []string{"ftp://example.com", "chrome://example.com", "file:///example.com", "https://"} {
		img, err := storage.LoadIcon(f.ctx, origin, 0)
		require.NoError(t, err)
		assert.Nil(t, img, origin)

		deleted, err := storage.DeleteIconForOrigin(f.ctx, origin)
		require.NoError(t, err)
		assert.False(t, deleted, origin)
	}

	require.NoError(t, storage.Idle(f.ctx))
	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{exampleOrigin}, origins(records))
	assert.False(t, records[0].WasRequested())
}

func TestIconStorage_AtMostOneRecordPerOrigin(t *testing.T) {
	f := newStorageFixture(t)
	for i := 0; i < 8; i++ {
		f.server.serve(fmt.Sprintf("https://example.com/icon-%d.png", i), 100+i)
	}
	f.opts.MaxConcurrentFetches = 4
	storage := f.open(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			origin := exampleOrigin
			if i%2 == 1 {
				origin = "https://www.example.com"
			}
			_ = storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(origin, fmt.Sprintf("https://example.com/icon-%d.png", i), entity.IconTypeTouch))
		}(i)
	}
	wg.Wait()
	require.NoError(t, storage.Idle(f.ctx))

	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	assert.Equal(t, 1, f.blobs.count(), "superseded blobs are deleted")
}

func TestIconStorage_ApproximateOriginMatch(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
	storage := f.open(t)

	candidate := entity.NewCandidate("https://www.example.com", "https://www.example.com/apple-touch-icon.png", entity.IconTypeTouch)
	candidate.IconSize = 180
	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, candidate))
	require.NoError(t, storage.Idle(f.ctx))

	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	img, err := storage.LoadIcon(f.ctx, "https://www.example.com", 0)
	require.NoError(t, err)
	require.NotNil(t, img)
}

func TestIconStorage_ReplacingApproximateSlotRekeysIt(t *testing.T) {
	f := newStorageFixture(t)
	old := f.clock.Now().Add(-10 * day)
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeFavicon, size: 64, fetch: old, visit: old, request: old})
	f.server.serve("https://www.example.com/apple-touch-icon.png", 180)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://www.example.com", "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://www.example.com", records[0].Origin)
	assert.True(t, records[0].LastRequestTime.Equal(old), "request history carries over")
	assert.Empty(t, f.events.of(port.IconEvicted))
}

func TestIconStorage_Eviction_UnrequestedBeforeRequested(t *testing.T) {
	f := newStorageFixture(t)
	base := f.clock.Now().Add(-day)
	f.seed(t,
		seededIcon{origin: "https://a.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base.Add(1 * time.Minute)},
		seededIcon{origin: "https://b.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base.Add(2 * time.Minute)},
		seededIcon{origin: "https://c.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base, request: base.Add(time.Minute)},
	)
	f.server.serve("https://d.test/apple-touch-icon.png", 180)
	f.opts.Capacity = 2
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://d.test", "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.test", "https://d.test"}, origins(records))

	evicted := f.events.of(port.IconEvicted)
	require.Len(t, evicted, 2)
	assert.Equal(t, "https://a.test", evicted[0].Origin)
	assert.Equal(t, "https://b.test", evicted[1].Origin)
	assert.False(t, f.blobs.has(evicted[0].File))
	assert.False(t, f.blobs.has(evicted[1].File))
}

func TestIconStorage_Eviction_OldestVisitFirst(t *testing.T) {
	f := newStorageFixture(t)
	base := f.clock.Now().Add(-day)
	f.seed(t,
		seededIcon{origin: "https://a.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base.Add(3 * time.Minute)},
		seededIcon{origin: "https://b.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base.Add(1 * time.Minute)},
		seededIcon{origin: "https://c.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base.Add(2 * time.Minute)},
	)
	f.server.serve("https://d.test/apple-touch-icon.png", 180)
	f.opts.Capacity = 3
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://d.test", "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://c.test", "https://d.test"}, origins(records))

	evicted := f.events.of(port.IconEvicted)
	require.Len(t, evicted, 1)
	assert.Equal(t, "https://b.test", evicted[0].Origin)
}

func TestIconStorage_Eviction_LeastRecentlyRequestedWhenAllRequested(t *testing.T) {
	f := newStorageFixture(t)
	base := f.clock.Now().Add(-day)
	f.seed(t,
		seededIcon{origin: "https://a.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base, request: base.Add(3 * time.Minute)},
		seededIcon{origin: "https://b.test", iconType: entity.IconTypeTouch, size: 180, fetch: base, visit: base, request: base.Add(1 * time.Minute)},
	)
	f.server.serve("https://d.test/apple-touch-icon.png", 180)
	f.opts.Capacity = 2
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://d.test", "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://d.test"}, origins(records))
}

func TestIconStorage_Eviction_NotRunWhenReplacing(t *testing.T) {
	f := newStorageFixture(t)
	old := f.clock.Now().Add(-30 * day)
	f.seed(t,
		seededIcon{origin: "https://a.test", iconType: entity.IconTypeTouch, size: 180, fetch: old, visit: old},
		seededIcon{origin: "https://b.test", iconType: entity.IconTypeTouch, size: 180, fetch: old, visit: old},
	)
	f.server.serve("https://b.test/apple-touch-icon.png", 180)
	f.opts.Capacity = 2
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://b.test", "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.Empty(t, f.events.of(port.IconEvicted))
}

func TestIconStorage_GetIconForOrigin_ResizesAndMarksRequested(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
	storage := f.open(t)
	f.clock.Advance(time.Hour)

	done := make(chan image.Image, 1)
	require.NoError(t, storage.GetIconForOrigin(f.ctx, exampleOrigin, 85, func(img image.Image) { done <- img }))

	img := <-done
	require.NotNil(t, img)
	assert.Equal(t, 85, img.Bounds().Dx())
	assert.Equal(t, 85, img.Bounds().Dy())

	require.NoError(t, storage.Idle(f.ctx))
	loads := f.events.of(port.IconLoadComplete)
	require.Len(t, loads, 1)
	assert.True(t, loads[0].Success)
	assert.Equal(t, exampleOrigin, loads[0].Origin)

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].LastRequestTime.Equal(f.clock.Now()))

	entries := f.prefs.entries(t)
	require.Len(t, entries, 1)
	assert.EqualValues(t, f.clock.Now().UnixMicro(), entries[0]["last_request_time"])
}

func TestIconStorage_GetIconForOrigin_OriginalSizeWhenZero(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 152, fetch: now, visit: now})
	storage := f.open(t)

	img, err := storage.LoadIcon(f.ctx, exampleOrigin, 0)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, 152, img.Bounds().Dx())
}

func TestIconStorage_GetIconForOrigin_Absent(t *testing.T) {
	f := newStorageFixture(t)
	storage := f.open(t)

	img, err := storage.LoadIcon(f.ctx, "https://missing.test", 64)
	require.NoError(t, err)
	assert.Nil(t, img)

	require.NoError(t, storage.Idle(f.ctx))
	loads := f.events.of(port.IconLoadComplete)
	require.Len(t, loads, 1)
	assert.False(t, loads[0].Success)
	assert.Equal(t, "https://missing.test", loads[0].Origin)
}

func TestIconStorage_GetIconForOrigin_SelfHealsMissingBlob(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(f *storageFixture, file string)
	}{
		{name: "deleted externally", corrupt: func(f *storageFixture, file string) { f.blobs.remove(file) }},
		{name: "not an image", corrupt: func(f *storageFixture, file string) { f.blobs.put(file, []byte("garbage")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStorageFixture(t)
			now := f.clock.Now()
			files := f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
			storage := f.open(t)
			tt.corrupt(f, files[0])

			img, err := storage.LoadIcon(f.ctx, exampleOrigin, 64)
			require.NoError(t, err)
			assert.Nil(t, img)

			require.NoError(t, storage.Idle(f.ctx))

			size, err := storage.Size(f.ctx)
			require.NoError(t, err)
			assert.Zero(t, size)
			assert.False(t, f.blobs.has(files[0]))
			assert.Empty(t, f.prefs.entries(t))

			loads := f.events.of(port.IconLoadComplete)
			require.Len(t, loads, 1)
			assert.False(t, loads[0].Success)

			evicted := f.events.of(port.IconEvicted)
			require.Len(t, evicted, 1)
			assert.Equal(t, exampleOrigin, evicted[0].Origin)
			assert.Equal(t, files[0], evicted[0].File)
		})
	}
}

func TestIconStorage_DeleteIconForOrigin_Idempotent(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	files := f.seed(t,
		seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now},
		seededIcon{origin: "https://other.test", iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now},
	)
	storage := f.open(t)

	deleted, err := storage.DeleteIconForOrigin(f.ctx, exampleOrigin)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = storage.DeleteIconForOrigin(f.ctx, exampleOrigin)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, storage.Idle(f.ctx))

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://other.test"}, origins(records))
	assert.False(t, f.blobs.has(files[0]))
	assert.True(t, f.blobs.has(files[1]))
	assert.Len(t, f.prefs.entries(t), 1)
	assert.Len(t, f.events.of(port.IconEvicted), 1)
}

func TestIconStorage_DeleteIconForOrigin_ExactOriginOnly(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	files := f.seed(t,
		seededIcon{origin: "https://a.example.com", iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now},
		seededIcon{origin: "https://b.example.com", iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now},
		seededIcon{origin: "https://other.test", iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now},
	)
	storage := f.open(t)
	writesBefore := f.prefs.setCount()

	for _, origin := range []string{exampleOrigin, exampleOrigin, "https://test", "https://com"} {
		deleted, err := storage.DeleteIconForOrigin(f.ctx, origin)
		require.NoError(t, err)
		assert.False(t, deleted, origin)
	}

	deleted, err := storage.DeleteIconForOrigin(f.ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = storage.DeleteIconForOrigin(f.ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, storage.Idle(f.ctx))
	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example.com", "https://other.test"}, origins(records))
	assert.False(t, f.blobs.has(files[0]))
	assert.True(t, f.blobs.has(files[1]))
	assert.True(t, f.blobs.has(files[2]))
	assert.Equal(t, writesBefore+1, f.prefs.setCount())
	assert.Len(t, f.events.of(port.IconEvicted), 1)
}

func TestIconStorage_DeleteIconForOrigin_AbsentHasNoSideEffects(t *testing.T) {
	f := newStorageFixture(t)
	observer := portmocks.NewMockIconObserver(t)
	f.opts.Observers = nil
	storage := f.open(t)
	require.NoError(t, storage.AddObserver(observer))
	writesBefore := f.prefs.setCount()

	deleted, err := storage.DeleteIconForOrigin(f.ctx, "https://nothing.test")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = storage.DeleteIconForOrigin(f.ctx, "not a url")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, storage.Idle(f.ctx))
	assert.Equal(t, writesBefore, f.prefs.setCount())
}

func TestIconStorage_DeleteIconForOrigin_NotifiesObserver(t *testing.T) {
	f := newStorageFixture(t)
	now := f.clock.Now()
	files := f.seed(t, seededIcon{origin: exampleOrigin, iconType: entity.IconTypeTouch, size: 180, fetch: now, visit: now})
	f.opts.Observers = nil
	storage := f.open(t)

	observer := portmocks.NewMockIconObserver(t)
	observer.EXPECT().OnIconEvicted(exampleOrigin, files[0]).Return().Once()
	require.NoError(t, storage.AddObserver(observer))

	deleted, err := storage.DeleteIconForOrigin(f.ctx, exampleOrigin)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, storage.Idle(f.ctx))
}

func TestIconStorage_PersistenceRoundTrip(t *testing.T) {
	f := newStorageFixture(t)
	f.server.serve("https://a.test/apple-touch-icon.png", 180)
	f.server.serve("https://b.test/fluid.png", 96)
	storage := f.open(t)

	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://a.test", "", entity.IconTypeTouch)))
	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate("https://b.test", "https://b.test/fluid.png", entity.IconTypeFluid)))
	require.NoError(t, storage.Idle(f.ctx))
	_, err := storage.LoadIcon(f.ctx, "https://a.test", 0)
	require.NoError(t, err)
	require.NoError(t, storage.Idle(f.ctx))

	before, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.NoError(t, storage.Close(f.ctx))

	reopened := f.open(t)
	after, err := reopened.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Origin, after[i].Origin)
		assert.Equal(t, before[i].IconURL, after[i].IconURL)
		assert.Equal(t, before[i].IconFile, after[i].IconFile)
		assert.Equal(t, before[i].IconType, after[i].IconType)
		assert.Equal(t, before[i].IconSize, after[i].IconSize)
		assert.Equal(t, before[i].FetchTime.UnixMicro(), after[i].FetchTime.UnixMicro())
		assert.Equal(t, before[i].LastVisitTime.UnixMicro(), after[i].LastVisitTime.UnixMicro())
		assert.Equal(t, before[i].WasRequested(), after[i].WasRequested())
	}
}

func TestIconStorage_LoadSkipsIncompleteEntries(t *testing.T) {
	f := newStorageFixture(t)
	require.NoError(t, f.prefs.SetList(f.ctx, usecase.IconsPrefKey, []json.RawMessage{
		json.RawMessage(`{"host_origin":"https://ok.test","icon_url":"https://ok.test/i.png","icon_file":"/data/touchicons/icons/ok.png","icon_type":3}`),
		json.RawMessage(`{"icon_url":"https://a.test/i.png","icon_file":"/data/touchicons/icons/a.png"}`),
		json.RawMessage(`{"host_origin":"https://b.test","icon_file":"/data/touchicons/icons/b.png"}`),
		json.RawMessage(`{"host_origin":"https://c.test","icon_url":"https://c.test/i.png"}`),
		json.RawMessage(`"not an object"`),
	}))
	storage := f.open(t)

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://ok.test", records[0].Origin)
	assert.Equal(t, entity.IconTypeTouch, records[0].IconType)
	assert.Equal(t, entity.UnknownIconSize, records[0].IconSize)
	assert.False(t, records[0].WasRequested())
}

func TestIconStorage_LoadRebasesMovedStorageDirectory(t *testing.T) {
	f := newStorageFixture(t)
	require.NoError(t, f.prefs.SetList(f.ctx, usecase.IconsPrefKey, []json.RawMessage{
		json.RawMessage(`{"host_origin":"https://a.test","icon_url":"https://a.test/i.png","icon_file":"/old/app/root/icons/abc.png","icon_type":3,"icon_size":180}`),
	}))
	writesBefore := f.prefs.setCount()
	storage := f.open(t)

	records, err := storage.SerializeCachedIcons(f.ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/data/touchicons/icons/abc.png", records[0].IconFile)

	assert.Greater(t, f.prefs.setCount(), writesBefore, "index re-persisted")
	entries := f.prefs.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "/data/touchicons/icons/abc.png", entries[0]["icon_file"])
}

func TestIconStorage_LoadFailureDisablesPersistence(t *testing.T) {
	f := newStorageFixture(t)
	prefs := repomocks.NewMockPrefRepository(t)
	prefs.EXPECT().GetList(mock.Anything, usecase.IconsPrefKey).Return(nil, errors.New("database locked"))

	f.server.serve(exampleOrigin+"/apple-touch-icon.png", 180)

	storage, err := usecase.NewIconStorage(f.ctx, prefs, f.blobs, f.fetcher, pngCodec{}, f.opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(context.Background()) })

	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	// The unreadable stored list must not be overwritten by this session.
	require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "", entity.IconTypeTouch)))
	require.NoError(t, storage.Idle(f.ctx))

	size, err = storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "the cache keeps working in memory")
	prefs.AssertNotCalled(t, "SetList", mock.Anything, mock.Anything, mock.Anything)
}

func TestIconStorage_DirectoryFailureDisablesCache(t *testing.T) {
	f := newStorageFixture(t)
	f.blobs.createErr = errors.New("permission denied")
	storage := f.open(t)

	assert.True(t, storage.Disabled())

	err := storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "", entity.IconTypeTouch))
	assert.ErrorIs(t, err, usecase.ErrCacheDisabled)

	_, err = storage.LoadIcon(f.ctx, exampleOrigin, 0)
	assert.ErrorIs(t, err, usecase.ErrCacheDisabled)

	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestIconStorage_FetchPoolIsBounded(t *testing.T) {
	f := newStorageFixture(t)

	var inFlight, peak atomic.Int32
	fetcher := portmocks.NewMockIconFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, mock.Anything).RunAndReturn(func(ctx context.Context, rawURL string) ([]byte, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return pngBytes(t, 180), nil
	})
	f.fetcher = fetcher
	f.opts.MaxConcurrentFetches = 2
	storage := f.open(t)

	for i := 0; i < 6; i++ {
		require.NoError(t, storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(fmt.Sprintf("https://site%d.test", i), "", entity.IconTypeTouch)))
	}
	require.NoError(t, storage.Idle(f.ctx))

	assert.LessOrEqual(t, peak.Load(), int32(2))
	size, err := storage.Size(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, size)
}

func TestIconStorage_CloseRejectsFurtherCalls(t *testing.T) {
	f := newStorageFixture(t)
	storage := f.open(t)

	require.NoError(t, storage.Close(f.ctx))
	require.NoError(t, storage.Close(f.ctx))

	err := storage.FetchIconIfNeeded(f.ctx, entity.NewCandidate(exampleOrigin, "", entity.IconTypeTouch))
	assert.ErrorIs(t, err, usecase.ErrClosed)

	_, err = storage.SerializeCachedIcons(f.ctx)
	assert.ErrorIs(t, err, usecase.ErrClosed)

	_, err = storage.DeleteIconForOrigin(f.ctx, exampleOrigin)
	assert.ErrorIs(t, err, usecase.ErrClosed)
}
