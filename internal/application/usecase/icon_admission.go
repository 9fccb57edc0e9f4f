package usecase

import (
	"image"
	"time"

	"github.com/bnema/touchicons/internal/domain/entity"
	domainurl "github.com/bnema/touchicons/internal/domain/url"
	"github.com/bnema/touchicons/internal/sequence"
)

// fetchIfNeeded is the owner-side half of FetchIconIfNeeded.
func (s *IconStorage) fetchIfNeeded(candidate *entity.Candidate) {
	log := s.log().With().Str("origin", candidate.HostOrigin).Logger()
	visitTime := s.now()

	if s.disabled.Load() {
		log.Debug().Msg("icon cache disabled, ignoring candidate")
		return
	}

	if cached := s.index.Find(candidate.HostOrigin); cached != nil &&
		entity.ShouldPreferCached(cached, candidate, visitTime, s.opts.RefreshInterval) {
		cached.LastVisitTime = visitTime
		s.saveToStore()

		log.Debug().
			Str("cached_type", cached.IconType.String()).
			Str("candidate_type", candidate.IconType.String()).
			Msg("keeping cached icon")

		s.notifyStored(cached)
		return
	}

	if candidate.IconURL == "" {
		s.fetchDefaultTouchIcon(candidate.HostOrigin, visitTime)
		return
	}

	s.fetchIcon(candidate, visitTime)
}

// fetchDefaultTouchIcon starts a fetch of origin's /apple-touch-icon.png.
func (s *IconStorage) fetchDefaultTouchIcon(origin string, visitTime time.Time) {
	iconURL, err := domainurl.DefaultTouchIconURL(origin)
	if err != nil {
		s.log().Debug().Err(err).Str("origin", origin).Msg("cannot build default touch icon url")
		return
	}
	s.fetchIcon(entity.NewCandidate(origin, iconURL, entity.IconTypeTouch), visitTime)
}

// fetchIcon runs download, decode and encode on the fetch pool, writes the
// PNG on the blob worker, and commits the result on the owner sequence.
func (s *IconStorage) fetchIcon(candidate *entity.Candidate, visitTime time.Time) {
	s.pending.Add()

	go func() {
		if err := s.fetchSlots.Acquire(s.ctx, 1); err != nil {
			s.pending.Done()
			return
		}
		data, edge, ok := s.download(candidate)
		s.fetchSlots.Release(1)

		if !ok {
			s.pending.Done()
			return
		}

		posted := sequence.PostTaskAndReply(s.disk, s.owner,
			func() string {
				file, err := s.blobs.Write(data)
				if err != nil {
					s.log().Debug().Err(err).Str("origin", candidate.HostOrigin).Msg("failed to write icon blob")
					return ""
				}
				return file
			},
			func(file string) {
				defer s.pending.Done()
				s.onIconWritten(candidate, visitTime, edge, file)
			})
		if !posted {
			s.pending.Done()
		}
	}()
}

// download fetches and re-encodes the candidate. It reports the decoded edge
// length and false on any failure.
func (s *IconStorage) download(candidate *entity.Candidate) ([]byte, int, bool) {
	log := s.log().With().
		Str("origin", candidate.HostOrigin).
		Str("url", candidate.IconURL).
		Logger()

	raw, err := s.fetcher.Fetch(s.ctx, candidate.IconURL)
	if err != nil || len(raw) == 0 {
		log.Debug().Err(err).Msg("icon fetch failed")
		return nil, 0, false
	}

	img, err := s.codec.Decode(s.ctx, raw, s.opts.TouchIconSize)
	if err != nil || img == nil || img.Bounds().Empty() {
		log.Debug().Err(err).Msg("icon decode failed")
		return nil, 0, false
	}

	encoded, err := s.codec.EncodePNG(img)
	if err != nil || len(encoded) == 0 {
		log.Debug().Err(err).Msg("icon encode failed")
		return nil, 0, false
	}

	return encoded, img.Bounds().Dx(), true
}

// onIconWritten commits a written blob. An empty file means the write failed.
func (s *IconStorage) onIconWritten(candidate *entity.Candidate, visitTime time.Time, edge int, file string) {
	if file == "" {
		return
	}

	if candidate.IconType == entity.IconTypeFavicon {
		// A favicon always triggers the default touch icon lookup, which
		// usually yields a better icon.
		s.fetchDefaultTouchIcon(candidate.HostOrigin, visitTime)

		if edge < s.opts.MinFaviconSize {
			s.log().Debug().
				Str("origin", candidate.HostOrigin).
				Int("size", edge).
				Msg("favicon too small, discarding")
			s.deleteBlob(file, "")
			return
		}
	}

	rec := &entity.IconRecord{
		Origin:        candidate.HostOrigin,
		IconURL:       candidate.IconURL,
		IconFile:      file,
		IconType:      candidate.IconType,
		IconSize:      edge,
		FetchTime:     s.now(),
		LastVisitTime: visitTime,
	}

	old := s.index.Find(candidate.HostOrigin)
	if old == nil {
		s.runEvictionIfFull()
	} else {
		rec.LastRequestTime = old.LastRequestTime
		if old.Origin != rec.Origin {
			s.index.Remove(old.Origin)
		}
	}
	s.index.Upsert(rec)

	if old != nil && old.IconFile != file {
		s.deleteBlob(old.IconFile, "")
	}

	s.log().Debug().
		Str("origin", rec.Origin).
		Str("type", rec.IconType.String()).
		Int("size", rec.IconSize).
		Int("icons", s.index.Size()).
		Msg("icon stored")

	s.saveToStore()
	s.notifyStored(rec)
}

// loadResult carries a blob read back to the owner sequence.
type loadResult struct {
	img image.Image
}

// getIcon is the owner-side half of GetIconForOrigin.
func (s *IconStorage) getIcon(origin string, size int, callback func(image.Image)) {
	rec := s.index.Find(origin)
	if rec == nil || s.disabled.Load() {
		s.notifyLoadComplete(origin, false)
		callback(nil)
		return
	}

	rec.LastRequestTime = s.now()
	s.saveToStore()

	key, file := rec.Origin, rec.IconFile
	s.pending.Add()

	posted := sequence.PostTaskAndReply(s.disk, s.owner,
		func() loadResult {
			return loadResult{img: s.readIcon(file, size)}
		},
		func(res loadResult) {
			defer s.pending.Done()
			if res.img == nil {
				s.onIconReadFailed(key, file, callback)
				return
			}
			s.notifyLoadComplete(key, true)
			callback(res.img)
		})
	if !posted {
		s.pending.Done()
		callback(nil)
	}
}

// readIcon runs on the blob worker.
func (s *IconStorage) readIcon(file string, size int) image.Image {
	data := s.blobs.Read(file)
	if len(data) == 0 {
		return nil
	}

	img, err := s.codec.Decode(s.ctx, data, size)
	if err != nil || img == nil || img.Bounds().Empty() {
		s.log().Debug().Err(err).Str("file", file).Msg("cached icon decode failed")
		return nil
	}

	if size > 0 {
		img = s.codec.Resize(img, size)
	}
	return img
}

// onIconReadFailed drops a record whose blob is gone or corrupt. The record is
// re-checked since it may have been replaced while the read was in flight.
func (s *IconStorage) onIconReadFailed(origin, file string, callback func(image.Image)) {
	s.notifyLoadComplete(origin, false)
	callback(nil)

	rec := s.index.Get(origin)
	if rec == nil || rec.IconFile != file {
		return
	}

	s.log().Warn().Str("origin", origin).Str("file", file).Msg("cached icon unreadable, removing")
	s.index.Remove(origin)
	s.deleteBlob(file, origin)
	s.saveToStore()
}

// deleteBlob removes file on the blob worker. When evictedOrigin is set, the
// removal is reported to observers once the deletion attempt has completed.
func (s *IconStorage) deleteBlob(file, evictedOrigin string) {
	s.pending.Add()

	posted := sequence.PostTaskAndReply(s.disk, s.owner,
		func() string { return s.blobs.Delete(file) },
		func(deleted string) {
			defer s.pending.Done()
			if deleted == "" {
				s.log().Debug().Str("file", file).Msg("icon blob was not deleted")
			}
			if evictedOrigin != "" {
				s.notifyEvicted(evictedOrigin, file)
			}
		})
	if !posted {
		s.pending.Done()
	}
}
