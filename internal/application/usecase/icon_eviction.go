package usecase

import "github.com/bnema/touchicons/internal/domain/entity"

// selectEvictionVictim picks the record to evict from an origin-ordered list.
//
// Icons never requested for display go first, least recently visited first.
// Only when every icon has been displayed does the least recently displayed
// one go. Ties keep the earliest record in list order.
func selectEvictionVictim(records []*entity.IconRecord) *entity.IconRecord {
	var victim *entity.IconRecord

	for _, rec := range records {
		if rec.WasRequested() {
			continue
		}
		if victim == nil || rec.LastVisitTime.Before(victim.LastVisitTime) {
			victim = rec
		}
	}
	if victim != nil {
		return victim
	}

	for _, rec := range records {
		if victim == nil || rec.LastRequestTime.Before(victim.LastRequestTime) {
			victim = rec
		}
	}
	return victim
}

// runEvictionIfFull removes icons until a new origin fits under the capacity.
// Each removal schedules blob deletion and reports the eviction once the
// deletion completes.
func (s *IconStorage) runEvictionIfFull() {
	for s.index.Size() > 0 && s.index.Size() >= s.opts.Capacity {
		victim := selectEvictionVictim(s.index.Records())
		s.index.Remove(victim.Origin)

		s.log().Debug().
			Str("origin", victim.Origin).
			Bool("requested", victim.WasRequested()).
			Int("size", s.index.Size()).
			Msg("evicting cached icon")

		s.deleteBlob(victim.IconFile, victim.Origin)
	}
}
