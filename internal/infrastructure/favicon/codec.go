package favicon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	ico "github.com/sergeymakinen/go-ico"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/logging"
)

// maxNativeEdge is the largest edge kept as decoded. Larger images are
// scaled down toward the size hint.
const maxNativeEdge = 1024

// ErrUnsupportedFormat is returned for data that is not a known raster format.
var ErrUnsupportedFormat = errors.New("unsupported icon format")

// Codec decodes PNG, JPEG, GIF, BMP, WebP and ICO icons, detected from content
// rather than URL or headers.
type Codec struct{}

// NewCodec creates a codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode sniffs data and decodes it. ICO files yield their largest frame.
// sizeHint only matters for oversized images, which are scaled down so their
// longest edge equals the hint.
func (c *Codec) Decode(ctx context.Context, data []byte, sizeHint int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrUnsupportedFormat)
	}

	mime := mimetype.Detect(data)
	r := bytes.NewReader(data)

	var (
		img image.Image
		err error
	)
	switch {
	case mime.Is("image/png"):
		img, err = png.Decode(r)
	case mime.Is("image/jpeg"):
		img, err = jpeg.Decode(r)
	case mime.Is("image/gif"):
		img, err = gif.Decode(r)
	case mime.Is("image/bmp"):
		img, err = bmp.Decode(r)
	case mime.Is("image/webp"):
		img, err = webp.Decode(r)
	case mime.Is("image/x-icon"), mime.Is("image/vnd.microsoft.icon"):
		img, err = ico.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime.String())
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mime.String(), err)
	}

	bounds := img.Bounds()
	if sizeHint > 0 && max(bounds.Dx(), bounds.Dy()) > maxNativeEdge {
		logging.FromContext(ctx).Debug().
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Int("hint", sizeHint).
			Msg("downscaling oversized icon")
		img = scaleToFit(img, sizeHint)
	}

	return img, nil
}

// EncodePNG encodes img as PNG.
func (c *Codec) EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("encode png: nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Resize center-crops img to a square and scales it to edge x edge with
// CatmullRom interpolation.
func (c *Codec) Resize(img image.Image, edge int) image.Image {
	if img == nil || edge <= 0 {
		return img
	}

	cropped := cropImage(img, squareCrop(img.Bounds()))

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)
	return dst
}

// scaleToFit scales img so its longest edge equals edge, keeping the aspect
// ratio.
func scaleToFit(img image.Image, edge int) image.Image {
	b := img.Bounds()
	w, h := edge, edge
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*edge/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*edge/b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// squareCrop returns the centered square region of bounds.
func squareCrop(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	switch {
	case w > h:
		// Wider than tall - crop sides
		offset := (w - h) / 2
		return image.Rect(bounds.Min.X+offset, bounds.Min.Y, bounds.Min.X+offset+h, bounds.Max.Y)
	case h > w:
		// Taller than wide - crop top/bottom
		offset := (h - w) / 2
		return image.Rect(bounds.Min.X, bounds.Min.Y+offset, bounds.Max.X, bounds.Min.Y+offset+w)
	default:
		return bounds
	}
}

// cropImage returns a cropped portion of the source image.
func cropImage(src image.Image, rect image.Rectangle) image.Image {
	if subImager, ok := src.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return subImager.SubImage(rect)
	}

	// Otherwise, copy pixels manually
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.Set(x, y, src.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return dst
}

var _ port.ImageCodec = (*Codec)(nil)
