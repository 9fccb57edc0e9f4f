package port

import (
	"context"
	"image"

	"github.com/bnema/touchicons/internal/domain/entity"
)

// IconFetcher downloads raw icon bytes.
// Implementations must not send cookies or credentials. An empty result with a
// nil error means the server answered without a usable body.
type IconFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// ImageCodec decodes, encodes and resamples icon bitmaps.
type ImageCodec interface {
	// Decode turns raw bytes of any supported format into a bitmap.
	// sizeHint is the preferred edge length; it never changes the result of
	// a successful decode of a reasonably sized image.
	Decode(ctx context.Context, data []byte, sizeHint int) (image.Image, error)

	// EncodePNG encodes a bitmap as PNG.
	EncodePNG(img image.Image) ([]byte, error)

	// Resize resamples a bitmap to an edge x edge square with the best
	// available quality.
	Resize(img image.Image, edge int) image.Image
}

// BlobStore stores icon PNG blobs. Every method may block on disk I/O, so the
// cache only calls it from its background sequence.
type BlobStore interface {
	// Dir returns the directory blobs are written to.
	Dir() string

	// CreateDirectory creates Dir if needed; calling it again is harmless.
	CreateDirectory() error

	// Write stores data under a new random name and returns the file path.
	Write(data []byte) (string, error)

	// Delete removes file and returns its path, or "" if nothing was removed.
	Delete(file string) string

	// Read returns the content of file, or nil if it is missing or unreadable.
	Read(file string) []byte
}

// IconObserver receives icon cache notifications on the cache's owner
// sequence. Implementations must not block.
type IconObserver interface {
	// OnIconStored is called when an icon was stored, updated, or
	// re-affirmed as the preferred icon for its origin.
	OnIconStored(record *entity.IconRecord, file string)

	// OnIconEvicted is called once an origin's icon has been removed and its
	// blob deletion has completed.
	OnIconEvicted(origin, file string)

	// OnIconLoadComplete is called when a display request finished.
	OnIconLoadComplete(origin string, success bool)
}

// IconEventKind identifies one observer notification.
type IconEventKind uint8

const (
	IconStored IconEventKind = 1 << iota
	IconEvicted
	IconLoadComplete

	AllIconEvents = IconStored | IconEvicted | IconLoadComplete
)

// String returns the event name.
func (k IconEventKind) String() string {
	switch k {
	case IconStored:
		return "stored"
	case IconEvicted:
		return "evicted"
	case IconLoadComplete:
		return "load_complete"
	default:
		return "mixed"
	}
}

// IconEvent is the flattened form of an observer notification.
type IconEvent struct {
	Kind    IconEventKind
	Origin  string
	File    string
	Record  *entity.IconRecord // IconStored only
	Success bool               // IconLoadComplete only
}

// IconEventFunc handles a subset of icon events selected by a mask.
type IconEventFunc func(IconEvent)

type iconListener struct {
	mask IconEventKind
	fn   IconEventFunc
}

// NewIconListener adapts fn into an IconObserver that only forwards events
// whose kind is set in mask.
func NewIconListener(mask IconEventKind, fn IconEventFunc) IconObserver {
	return &iconListener{mask: mask, fn: fn}
}

func (l *iconListener) OnIconStored(record *entity.IconRecord, file string) {
	if l.mask&IconStored == 0 {
		return
	}
	origin := ""
	if record != nil {
		origin = record.Origin
	}
	l.fn(IconEvent{Kind: IconStored, Origin: origin, File: file, Record: record})
}

func (l *iconListener) OnIconEvicted(origin, file string) {
	if l.mask&IconEvicted == 0 {
		return
	}
	l.fn(IconEvent{Kind: IconEvicted, Origin: origin, File: file})
}

func (l *iconListener) OnIconLoadComplete(origin string, success bool) {
	if l.mask&IconLoadComplete == 0 {
		return
	}
	l.fn(IconEvent{Kind: IconLoadComplete, Origin: origin, Success: success})
}
