// Package entity defines the icon cache domain entities.
package entity

import (
	"fmt"
	"strings"
	"time"
)

// IconType classifies where an icon reference came from.
// Higher values are preferred over lower ones.
type IconType int

const (
	IconTypeUnknown IconType = iota
	IconTypeFavicon
	IconTypeFluid
	IconTypeTouch
)

// UnknownIconSize marks an icon whose edge length is not known yet.
const UnknownIconSize = -1

// String returns the lowercase name of the icon type.
func (t IconType) String() string {
	switch t {
	case IconTypeFavicon:
		return "favicon"
	case IconTypeFluid:
		return "fluid"
	case IconTypeTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// ParseIconType parses a type name as produced by String.
func ParseIconType(s string) (IconType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return IconTypeUnknown, nil
	case "favicon":
		return IconTypeFavicon, nil
	case "fluid":
		return IconTypeFluid, nil
	case "touch":
		return IconTypeTouch, nil
	default:
		return IconTypeUnknown, fmt.Errorf("unknown icon type %q", s)
	}
}

// IconTypeFromInt converts a persisted integer, clamping unknown values.
func IconTypeFromInt(v int) IconType {
	if v < int(IconTypeUnknown) || v > int(IconTypeTouch) {
		return IconTypeUnknown
	}
	return IconType(v)
}

// IconRecord is the committed metadata for the one icon cached for an origin.
type IconRecord struct {
	Origin          string    // scheme://host[:port], the cache key
	IconURL         string    // where the icon was fetched from
	IconFile        string    // PNG blob on disk, owned by this record
	IconType        IconType  //
	IconSize        int       // decoded edge length, UnknownIconSize if unknown
	FetchTime       time.Time // when the blob was downloaded
	LastVisitTime   time.Time // last time a page on the origin reported icon metadata
	LastRequestTime time.Time // last time the icon was requested for display; zero if never
}

// WasRequested reports whether the icon was ever requested for display.
func (r *IconRecord) WasRequested() bool {
	return !r.LastRequestTime.IsZero()
}

// Clone returns a copy safe to hand outside the owning sequence.
func (r *IconRecord) Clone() *IconRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Candidate is an icon reference observed on a page but not admitted yet.
// An empty IconURL asks for the origin's default touch icon.
type Candidate struct {
	HostOrigin string
	IconURL    string
	IconType   IconType
	IconSize   int
}

// NewCandidate creates a candidate with an unknown size.
func NewCandidate(hostOrigin, iconURL string, iconType IconType) *Candidate {
	return &Candidate{
		HostOrigin: hostOrigin,
		IconURL:    iconURL,
		IconType:   iconType,
		IconSize:   UnknownIconSize,
	}
}

// ShouldPreferCached reports whether the cached record beats the candidate.
// The cached icon wins when it is of a better type, or of the same type and
// at least as large, and it is not older than refreshInterval.
func ShouldPreferCached(cached *IconRecord, candidate *Candidate, now time.Time, refreshInterval time.Duration) bool {
	if cached.IconType < candidate.IconType {
		return false
	}

	if cached.IconType == candidate.IconType && cached.IconSize < candidate.IconSize {
		return false
	}

	if now.Sub(cached.FetchTime) > refreshInterval {
		return false
	}

	return true
}
