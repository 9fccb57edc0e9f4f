package usecase

import (
	"maps"
	"slices"

	"github.com/bnema/touchicons/internal/domain/entity"
	domainurl "github.com/bnema/touchicons/internal/domain/url"
)

// iconIndex maps origins to their one cached icon record.
// It is only touched from the storage's owner sequence.
type iconIndex struct {
	records map[string]*entity.IconRecord
}

func newIconIndex() *iconIndex {
	return &iconIndex{records: make(map[string]*entity.IconRecord)}
}

// Get returns the record stored under exactly origin.
func (ix *iconIndex) Get(origin string) *entity.IconRecord {
	return ix.records[origin]
}

// Find returns the record for origin's cache slot: the exact key if present,
// otherwise the first origin (in key order) whose host is a domain suffix of
// origin's host or the other way around. This is a linear scan; the index is
// bounded by the cache capacity.
func (ix *iconIndex) Find(origin string) *entity.IconRecord {
	if rec, ok := ix.records[origin]; ok {
		return rec
	}
	for _, key := range ix.keys() {
		if domainurl.SameSlot(origin, key) {
			return ix.records[key]
		}
	}
	return nil
}

// Upsert stores rec under rec.Origin and returns the record it replaced.
func (ix *iconIndex) Upsert(rec *entity.IconRecord) *entity.IconRecord {
	old := ix.records[rec.Origin]
	ix.records[rec.Origin] = rec
	return old
}

// Remove deletes the record stored under exactly origin and returns its file.
func (ix *iconIndex) Remove(origin string) (string, bool) {
	rec, ok := ix.records[origin]
	if !ok {
		return "", false
	}
	delete(ix.records, origin)
	return rec.IconFile, true
}

// Size returns the number of cached origins.
func (ix *iconIndex) Size() int {
	return len(ix.records)
}

// Records returns the live records ordered by origin.
func (ix *iconIndex) Records() []*entity.IconRecord {
	keys := ix.keys()
	out := make([]*entity.IconRecord, 0, len(keys))
	for _, key := range keys {
		out = append(out, ix.records[key])
	}
	return out
}

func (ix *iconIndex) keys() []string {
	return slices.Sorted(maps.Keys(ix.records))
}
