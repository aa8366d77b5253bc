// Package imaging downsizes and re-encodes uploaded avatars.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"strings"

	"golang.org/x/image/draw"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"

	DefaultMaxWidth = 800
	DefaultQuality  = 70
	DefaultMaxBytes = 500_000
)

// Compressor scales avatars down to a maximum width and re-encodes them in
// their original format. It holds no per-call state and is safe for
// concurrent use.
type Compressor struct {
	maxWidth int
	quality  int
	maxBytes int
	log      logger.Logger
}

// New creates a Compressor with the default bounds.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		maxWidth: DefaultMaxWidth,
		quality:  DefaultQuality,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("imaging")
	}
	return c
}

// MaxBytes returns the configured size ceiling.
func (c *Compressor) MaxBytes() int { return c.maxBytes }

// Compress returns a copy of in, scaled so its width is at most the
// configured maximum and re-encoded in the same format.
func (c *Compressor) Compress(ctx context.Context, in model.Avatar) (model.Avatar, error) {
	out, err := c.compress(ctx, in)
	switch {
	case err == nil:
		metrics.RecordAvatarCompression("ok")
		metrics.RecordAvatarBytes(len(out.Data))
	case errors.Is(err, ErrUnsupportedImageType):
		metrics.RecordAvatarCompression("unsupported")
	case errors.Is(err, ErrImageTooLarge):
		metrics.RecordAvatarCompression("too_large")
	default:
		metrics.RecordAvatarCompression("error")
	}
	if err != nil {
		c.log.Debug(ctx, "avatar rejected",
			logger.String("name", in.Name),
			logger.String("content_type", in.ContentType),
			logger.Int("bytes", len(in.Data)),
			logger.Error(err),
		)
	}
	return out, err
}

func (c *Compressor) compress(ctx context.Context, in model.Avatar) (model.Avatar, error) {
	kind := ContentType(in)
	if kind != TypeJPEG && kind != TypePNG {
		return model.Avatar{}, fmt.Errorf("%w: %q", ErrUnsupportedImageType, kind)
	}
	if err := ctx.Err(); err != nil {
		return model.Avatar{}, err
	}

	src, format, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return model.Avatar{}, fmt.Errorf("%w: decode: %v", ErrUnsupportedImageType, err)
	}
	switch "image/" + format {
	case TypeJPEG, TypePNG:
		// The declared type gates acceptance; the decoded format picks the encoder.
		kind = "image/" + format
	default:
		return model.Avatar{}, fmt.Errorf("%w: decoded as %s", ErrUnsupportedImageType, format)
	}

	img := c.scale(src)
	if err := ctx.Err(); err != nil {
		return model.Avatar{}, err
	}

	var buf bytes.Buffer
	switch kind {
	case TypeJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality})
	default:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	}
	if err != nil {
		return model.Avatar{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	if buf.Len() > c.maxBytes {
		return model.Avatar{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, buf.Len(), c.maxBytes)
	}

	b := img.Bounds()
	return model.Avatar{
		Name:        in.Name,
		ContentType: kind,
		Data:        buf.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// scale returns src unchanged when it already fits.
func (c *Compressor) scale(src image.Image) image.Image {
	w, h := TargetSize(src.Bounds().Dx(), src.Bounds().Dy(), c.maxWidth)
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// TargetSize computes the output dimensions for a w x h image.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth || w <= 0 {
		return w, h
	}
	ratio := float64(maxWidth) / float64(w)
	nh := int(math.Round(float64(h) * ratio))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// ContentType returns the declared type of a, sniffing the bytes when the
// declaration is missing.
func ContentType(a model.Avatar) string {
	ct := strings.ToLower(strings.TrimSpace(a.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" || ct == "image/pjpeg" {
		ct = TypeJPEG
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(a.Data)
	}
	return ct
}
