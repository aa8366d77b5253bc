package imaging_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/okian/conftix/internal/domain/imaging"
	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/validate"
	"github.com/okian/conftix/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func jpegAvatar(w, h int) model.Avatar {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return model.Avatar{Name: "me.jpg", ContentType: "image/jpeg", Data: buf.Bytes()}
}

func pngAvatar(w, h int) model.Avatar {
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		panic(err)
	}
	return model.Avatar{Name: "me.png", ContentType: "image/png", Data: buf.Bytes()}
}

func decodedSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	So(err, ShouldBeNil)
	return cfg.Width, cfg.Height
}

func TestCompress(t *testing.T) {
	Convey("Given a compressor with default bounds", t, func() {
		c := imaging.New()
		ctx := context.Background()

		Convey("When compressing a 1600x1200 JPEG", func() {
			out, err := c.Compress(ctx, jpegAvatar(1600, 1200))

			Convey("Then it is scaled to 800x600 and stays JPEG", func() {
				So(err, ShouldBeNil)
				So(out.ContentType, ShouldEqual, imaging.TypeJPEG)
				So(out.Width, ShouldEqual, 800)
				So(out.Height, ShouldEqual, 600)
				w, h := decodedSize(out.Data)
				So(w, ShouldEqual, 800)
				So(h, ShouldEqual, 600)
				So(len(out.Data), ShouldBeLessThanOrEqualTo, imaging.DefaultMaxBytes)
			})
		})

		Convey("When compressing a 640x480 PNG", func() {
			out, err := c.Compress(ctx, pngAvatar(640, 480))

			Convey("Then dimensions are unchanged and it stays PNG", func() {
				So(err, ShouldBeNil)
				So(out.ContentType, ShouldEqual, imaging.TypePNG)
				w, h := decodedSize(out.Data)
				So(w, ShouldEqual, 640)
				So(h, ShouldEqual, 480)
			})
		})

		Convey("When the declared type is not an image we accept", func() {
			in := jpegAvatar(10, 10)
			in.ContentType = "image/gif"
			_, err := c.Compress(ctx, in)
			So(errors.Is(err, imaging.ErrUnsupportedImageType), ShouldBeTrue)
		})

		Convey("When the bytes cannot be decoded", func() {
			_, err := c.Compress(ctx, model.Avatar{ContentType: "image/png", Data: []byte("not a png")})
			So(errors.Is(err, imaging.ErrUnsupportedImageType), ShouldBeTrue)
		})

		Convey("When the type is missing it is sniffed", func() {
			in := pngAvatar(20, 10)
			in.ContentType = ""
			out, err := c.Compress(ctx, in)
			So(err, ShouldBeNil)
			So(out.ContentType, ShouldEqual, imaging.TypePNG)
		})

		Convey("When the declared type disagrees with the bytes", func() {
			in := jpegAvatar(20, 10)
			in.ContentType = imaging.TypePNG
			out, err := c.Compress(ctx, in)

			Convey("Then the file is accepted and re-encoded in its decoded format", func() {
				So(err, ShouldBeNil)
				So(out.ContentType, ShouldEqual, imaging.TypeJPEG)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Compress(cctx, jpegAvatar(10, 10))
			So(err, ShouldEqual, context.Canceled)
		})
	})

	Convey("Given a compressor with a tiny ceiling", t, func() {
		c := imaging.New(imaging.WithMaxBytes(64))

		Convey("Then the result is rejected as too large", func() {
			_, err := c.Compress(context.Background(), jpegAvatar(200, 200))
			So(errors.Is(err, imaging.ErrImageTooLarge), ShouldBeTrue)
		})
	})
}

func TestTargetSize(t *testing.T) {
	Convey("Given source dimensions", t, func() {
		w, h := imaging.TargetSize(1600, 1200, 800)
		So([]int{w, h}, ShouldResemble, []int{800, 600})

		w, h = imaging.TargetSize(800, 333, 800)
		So([]int{w, h}, ShouldResemble, []int{800, 333})

		w, h = imaging.TargetSize(1001, 333, 800)
		So([]int{w, h}, ShouldResemble, []int{800, 266})

		w, h = imaging.TargetSize(10000, 1, 800)
		So([]int{w, h}, ShouldResemble, []int{800, 1})
	})
}

func TestFieldMessage(t *testing.T) {
	Convey("Compression errors map to avatar field messages", t, func() {
		So(imaging.FieldMessage(nil), ShouldBeEmpty)
		So(imaging.FieldMessage(fmt.Errorf("wrap: %w", imaging.ErrUnsupportedImageType)), ShouldEqual, validate.MsgAvatarType)
		So(imaging.FieldMessage(imaging.ErrImageTooLarge), ShouldEqual, validate.MsgAvatarTooLarge)
		So(imaging.FieldMessage(errors.New("boom")), ShouldEqual, imaging.MsgAvatarFailed)
	})
}
