package webui

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/domain/entity"
	"github.com/bnema/touchicons/internal/logging"
	"github.com/bnema/touchicons/internal/profile"
)

type handlers struct {
	provider       CacheProvider
	codec          port.ImageCodec
	defaultProfile string
}

// IconView is the JSON shape of one cached record.
type IconView struct {
	HostOrigin      string     `json:"host_origin"`
	IconURL         string     `json:"icon_url"`
	IconFile        string     `json:"icon_file"`
	IconType        string     `json:"icon_type"`
	IconSize        int        `json:"icon_size"`
	FetchTime       *time.Time `json:"icon_fetch_time,omitempty"`
	LastVisitTime   *time.Time `json:"last_visit_time,omitempty"`
	LastRequestTime *time.Time `json:"last_request_time,omitempty"`
}

// IconListResponse is returned by GET /icons.
type IconListResponse struct {
	Profile  string     `json:"profile"`
	Capacity int        `json:"capacity"`
	Icons    []IconView `json:"icons"`
}

// CandidateRequest is the body of POST /icons/candidates.
type CandidateRequest struct {
	HostOrigin string `json:"host_origin" binding:"required"`
	IconURL    string `json:"icon_url"`
	IconType   string `json:"icon_type"`
	IconSize   int    `json:"icon_size"`
}

// NewIconView converts a record for display.
func NewIconView(rec *entity.IconRecord) IconView {
	return IconView{
		HostOrigin:      rec.Origin,
		IconURL:         rec.IconURL,
		IconFile:        rec.IconFile,
		IconType:        rec.IconType.String(),
		IconSize:        rec.IconSize,
		FetchTime:       optionalTime(rec.FetchTime),
		LastVisitTime:   optionalTime(rec.LastVisitTime),
		LastRequestTime: optionalTime(rec.LastRequestTime),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) cache(c *gin.Context) (IconCache, string, bool) {
	profileID := c.DefaultQuery("profile", h.defaultProfile)
	cache, err := h.provider.Cache(c.Request.Context(), profileID)
	if err != nil {
		respondError(c, err)
		return nil, profileID, false
	}
	return cache, profileID, true
}

func (h *handlers) listIcons(c *gin.Context) {
	cache, profileID, ok := h.cache(c)
	if !ok {
		return
	}
	records, err := cache.SerializeCachedIcons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]IconView, 0, len(records))
	for _, rec := range records {
		views = append(views, NewIconView(rec))
	}
	c.JSON(http.StatusOK, IconListResponse{Profile: profileID, Capacity: cache.Capacity(), Icons: views})
}

func (h *handlers) iconImage(c *gin.Context) {
	origin, ok := requireOrigin(c)
	if !ok {
		return
	}
	size := DefaultPreviewSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a non-negative integer"})
			return
		}
		size = parsed
	}

	cache, _, ok := h.cache(c)
	if !ok {
		return
	}
	img, err := cache.LoadIcon(c.Request.Context(), origin, size)
	if err != nil {
		respondError(c, err)
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no icon cached for origin"})
		return
	}

	data, err := h.codec.EncodePNG(img)
	if err != nil {
		logging.FromContext(c.Request.Context()).Warn().Err(err).Str("origin", origin).Msg("failed to encode icon preview")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode icon"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

func (h *handlers) deleteIcon(c *gin.Context) {
	origin, ok := requireOrigin(c)
	if !ok {
		return
	}
	cache, _, ok := h.cache(c)
	if !ok {
		return
	}
	ctx := logging.WithOrigin(c.Request.Context(), origin)
	deleted, err := cache.DeleteIconForOrigin(ctx, origin)
	if err != nil {
		respondError(c, err)
		return
	}
	if deleted {
		logging.FromContext(ctx).Info().Msg("icon deleted from internals")
	}
	c.JSON(http.StatusOK, gin.H{"origin": origin, "deleted": deleted})
}

func (h *handlers) submitCandidate(c *gin.Context) {
	var req CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	iconType, err := entity.ParseIconType(req.IconType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cache, _, ok := h.cache(c)
	if !ok {
		return
	}
	candidate := entity.NewCandidate(req.HostOrigin, req.IconURL, iconType)
	if req.IconSize > 0 {
		candidate.IconSize = req.IconSize
	}
	if err := cache.FetchIconIfNeeded(c.Request.Context(), candidate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func requireOrigin(c *gin.Context) (string, bool) {
	origin := c.Query("origin")
	if origin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin query parameter is required"})
		return "", false
	}
	return origin, true
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrInvalidOrigin), errors.Is(err, profile.ErrInvalidProfile):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrCacheDisabled),
		errors.Is(err, usecase.ErrClosed),
		errors.Is(err, profile.ErrRegistryClosed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("internals request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
