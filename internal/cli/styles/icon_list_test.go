package styles

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/touchicons/internal/domain/entity"
)

func newTestRenderer() *IconRenderer {
	r := NewIconRenderer(NewTheme(&bytes.Buffer{}))
	r.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRenderList(t *testing.T) {
	r := newTestRenderer()
	records := []*entity.IconRecord{
		{
			Origin:    "https://example.com",
			IconURL:   "https://example.com/apple-touch-icon.png",
			IconFile:  "/data/icons/0b9f.png",
			IconType:  entity.IconTypeTouch,
			IconSize:  180,
			FetchTime: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			Origin:          "https://news.test",
			IconFile:        "/data/icons/77aa.png",
			IconType:        entity.IconTypeFavicon,
			IconSize:        entity.UnknownIconSize,
			FetchTime:       time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC),
			LastRequestTime: time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC),
		},
	}

	out := r.RenderList("default", 100, records)

	assert.Contains(t, out, "2/100 icons")
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "0b9f.png")
	assert.Contains(t, out, "180px")
	assert.Contains(t, out, "3h ago")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "?")
	assert.Contains(t, out, "30m ago")
	assert.Contains(t, out, "10d ago")
}

func TestRenderList_Empty(t *testing.T) {
	out := newTestRenderer().RenderList("work", 100, nil)

	assert.Contains(t, out, "work")
	assert.Contains(t, out, "cache is empty")
}

func TestRenderMessages(t *testing.T) {
	r := newTestRenderer()

	assert.Contains(t, r.RenderDeleted("https://a.test", true), "deleted icon for")
	assert.Contains(t, r.RenderDeleted("https://a.test", false), "nothing cached for")
	assert.Contains(t, r.RenderStored(nil), "no icon admitted")
	assert.Contains(t, r.RenderStored(&entity.IconRecord{Origin: "https://a.test", IconType: entity.IconTypeTouch, IconSize: 120}), "120px")
	assert.Contains(t, r.RenderSaved("https://a.test", "/tmp/a.png", 64), "64px")
	assert.Contains(t, r.RenderError(errors.New("boom")), "boom")
	assert.Contains(t, r.RenderEvent("stored", "https://a.test", "/data/icons/0b9f.png"), "0b9f.png")
	assert.NotContains(t, r.RenderEvent("evicted", "https://a.test", "/data/icons/0b9f.png"), "/data/icons")
	assert.Contains(t, r.RenderDatabase("/tmp/t.sqlite", true, 1), "schema v1")
	assert.Contains(t, r.RenderDatabase("/tmp/t.sqlite", false, 0), "unavailable")
}
