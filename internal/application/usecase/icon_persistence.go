package usecase

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/bnema/touchicons/internal/domain/entity"
	domainurl "github.com/bnema/touchicons/internal/domain/url"
)

// IconsPrefKey is the preference key holding the serialized icon index.
const IconsPrefKey = "remote_ntp.icons"

// storedIcon is the persisted form of one record. Pointers distinguish
// missing fields from zero values. Times are unix microseconds, 0 for null.
type storedIcon struct {
	HostOrigin      *string `json:"host_origin,omitempty"`
	IconURL         *string `json:"icon_url,omitempty"`
	IconFile        *string `json:"icon_file,omitempty"`
	IconType        *int    `json:"icon_type,omitempty"`
	IconSize        *int    `json:"icon_size,omitempty"`
	FetchTime       *int64  `json:"icon_fetch_time,omitempty"`
	LastVisitTime   *int64  `json:"last_visit_time,omitempty"`
	LastRequestTime *int64  `json:"last_request_time,omitempty"`
}

func toStoredIcon(rec *entity.IconRecord) storedIcon {
	iconType := int(rec.IconType)
	fetch := timeToMicros(rec.FetchTime)
	visit := timeToMicros(rec.LastVisitTime)
	request := timeToMicros(rec.LastRequestTime)

	return storedIcon{
		HostOrigin:      &rec.Origin,
		IconURL:         &rec.IconURL,
		IconFile:        &rec.IconFile,
		IconType:        &iconType,
		IconSize:        &rec.IconSize,
		FetchTime:       &fetch,
		LastVisitTime:   &visit,
		LastRequestTime: &request,
	}
}

// toRecord converts a stored icon, reporting false when a required field
// (origin, icon URL, file) is missing.
func (s storedIcon) toRecord() (*entity.IconRecord, bool) {
	if s.HostOrigin == nil || s.IconURL == nil || s.IconFile == nil {
		return nil, false
	}
	if *s.HostOrigin == "" || *s.IconFile == "" {
		return nil, false
	}

	origin, err := domainurl.Origin(*s.HostOrigin)
	if err != nil {
		return nil, false
	}

	rec := &entity.IconRecord{
		Origin:   origin,
		IconURL:  *s.IconURL,
		IconFile: *s.IconFile,
		IconType: entity.IconTypeUnknown,
		IconSize: entity.UnknownIconSize,
	}
	if s.IconType != nil {
		rec.IconType = entity.IconTypeFromInt(*s.IconType)
	}
	if s.IconSize != nil {
		rec.IconSize = *s.IconSize
	}
	if s.FetchTime != nil {
		rec.FetchTime = microsToTime(*s.FetchTime)
	}
	if s.LastVisitTime != nil {
		rec.LastVisitTime = microsToTime(*s.LastVisitTime)
	}
	if s.LastRequestTime != nil {
		rec.LastRequestTime = microsToTime(*s.LastRequestTime)
	}
	return rec, true
}

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v)
}

// loadFromStore populates the index from the pref store. Invalid entries are
// skipped. Files stored outside the current blob directory (the storage root
// moved) are rebased onto it by base name, and the index is re-persisted.
func (s *IconStorage) loadFromStore() {
	log := s.log()

	values, err := s.prefs.GetList(s.ctx, IconsPrefKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read cached icon index, running without persistence")
		s.unsaved = true
		return
	}

	dir := filepath.Clean(s.blobs.Dir())
	rebased := 0
	skipped := 0

	for _, raw := range values {
		var stored storedIcon
		if err := json.Unmarshal(raw, &stored); err != nil {
			skipped++
			continue
		}

		rec, ok := stored.toRecord()
		if !ok {
			skipped++
			continue
		}

		if filepath.Dir(filepath.Clean(rec.IconFile)) != dir {
			rec.IconFile = filepath.Join(dir, filepath.Base(rec.IconFile))
			rebased++
		}

		if s.index.Get(rec.Origin) != nil {
			skipped++
			continue
		}
		s.index.Upsert(rec)
	}

	log.Debug().
		Int("icons", s.index.Size()).
		Int("skipped", skipped).
		Int("rebased", rebased).
		Msg("cached icon index loaded")

	if rebased > 0 {
		s.saveToStore()
	}
}

// saveToStore writes the whole index, in origin order, to the pref store.
func (s *IconStorage) saveToStore() {
	if s.unsaved {
		return
	}
	records := s.index.Records()
	values := make([]json.RawMessage, 0, len(records))

	for _, rec := range records {
		raw, err := json.Marshal(toStoredIcon(rec))
		if err != nil {
			s.log().Error().Err(err).Str("origin", rec.Origin).Msg("failed to encode cached icon")
			continue
		}
		values = append(values, raw)
	}

	if err := s.prefs.SetList(s.ctx, IconsPrefKey, values); err != nil {
		s.log().Error().Err(err).Msg("failed to persist cached icon index")
	}
}
