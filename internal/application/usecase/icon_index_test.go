package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/touchicons/internal/domain/entity"
)

func record(origin string) *entity.IconRecord {
	return &entity.IconRecord{Origin: origin, IconFile: "/icons/" + origin[len("https://"):] + ".png"}
}

func TestIconIndex_FindPrefersExactKey(t *testing.T) {
	ix := newIconIndex()
	ix.Upsert(record("https://example.com"))
	ix.Upsert(record("https://www.example.com"))

	rec := ix.Find("https://www.example.com")
	require.NotNil(t, rec)
	assert.Equal(t, "https://www.example.com", rec.Origin)
}

func TestIconIndex_FindApproximate(t *testing.T) {
	ix := newIconIndex()
	ix.Upsert(record("https://m.news.test"))
	ix.Upsert(record("https://news.test"))

	tests := []struct {
		query string
		want  string
	}{
		{query: "https://www.news.test", want: "https://news.test"},
		{query: "https://news.test:8443", want: "https://m.news.test"},
		{query: "http://news.test", want: "https://m.news.test"},
		{query: "https://fakenews.test", want: ""},
		{query: "https://other.test", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := ix.Find(tt.query)
			if tt.want == "" {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.want, rec.Origin)
		})
	}
}

func TestIconIndex_UpsertReturnsPrevious(t *testing.T) {
	ix := newIconIndex()
	first := record("https://a.test")
	assert.Nil(t, ix.Upsert(first))

	second := record("https://a.test")
	second.IconFile = "/icons/other.png"
	assert.Same(t, first, ix.Upsert(second))
	assert.Equal(t, 1, ix.Size())
}

func TestIconIndex_Remove(t *testing.T) {
	ix := newIconIndex()
	ix.Upsert(record("https://a.test"))

	file, ok := ix.Remove("https://a.test")
	assert.True(t, ok)
	assert.Equal(t, "/icons/a.test.png", file)

	_, ok = ix.Remove("https://a.test")
	assert.False(t, ok)
	assert.Zero(t, ix.Size())
}

func TestIconIndex_RecordsOrderedByOrigin(t *testing.T) {
	ix := newIconIndex()
	for _, origin := range []string{"https://c.test", "https://a.test", "https://b.test"} {
		ix.Upsert(record(origin))
	}

	var got []string
	for _, rec := range ix.Records() {
		got = append(got, rec.Origin)
	}
	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://c.test"}, got)
}

func TestSelectEvictionVictim(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	tests := []struct {
		name    string
		records []*entity.IconRecord
		want    string
	}{
		{
			name: "oldest visit among unrequested",
			records: []*entity.IconRecord{
				{Origin: "https://a.test", LastVisitTime: at(5)},
				{Origin: "https://b.test", LastVisitTime: at(2)},
				{Origin: "https://c.test", LastVisitTime: at(1), LastRequestTime: at(3)},
			},
			want: "https://b.test",
		},
		{
			name: "unrequested beats older requested",
			records: []*entity.IconRecord{
				{Origin: "https://a.test", LastVisitTime: at(0), LastRequestTime: at(0)},
				{Origin: "https://b.test", LastVisitTime: at(9)},
			},
			want: "https://b.test",
		},
		{
			name: "oldest request when all requested",
			records: []*entity.IconRecord{
				{Origin: "https://a.test", LastVisitTime: at(0), LastRequestTime: at(7)},
				{Origin: "https://b.test", LastVisitTime: at(0), LastRequestTime: at(4)},
				{Origin: "https://c.test", LastVisitTime: at(0), LastRequestTime: at(6)},
			},
			want: "https://b.test",
		},
		{
			name: "tie keeps first in order",
			records: []*entity.IconRecord{
				{Origin: "https://a.test", LastVisitTime: at(1)},
				{Origin: "https://b.test", LastVisitTime: at(1)},
			},
			want: "https://a.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			victim := selectEvictionVictim(tt.records)
			require.NotNil(t, victim)
			assert.Equal(t, tt.want, victim.Origin)
		})
	}

	assert.Nil(t, selectEvictionVictim(nil))
}

func TestStoredIcon_TimesUseMicrosecondsWithZeroAsNull(t *testing.T) {
	visit := time.UnixMicro(1_700_000_000_123_456)
	rec := &entity.IconRecord{
		Origin:        "https://a.test",
		IconURL:       "https://a.test/i.png",
		IconFile:      "/icons/a.png",
		IconType:      entity.IconTypeFluid,
		IconSize:      96,
		LastVisitTime: visit,
	}

	stored := toStoredIcon(rec)
	require.NotNil(t, stored.LastVisitTime)
	assert.Equal(t, int64(1_700_000_000_123_456), *stored.LastVisitTime)
	require.NotNil(t, stored.LastRequestTime)
	assert.Zero(t, *stored.LastRequestTime)

	back, ok := stored.toRecord()
	require.True(t, ok)
	assert.True(t, back.LastVisitTime.Equal(visit))
	assert.True(t, back.LastRequestTime.IsZero())
	assert.True(t, back.FetchTime.IsZero())
	assert.Equal(t, entity.IconTypeFluid, back.IconType)
}
