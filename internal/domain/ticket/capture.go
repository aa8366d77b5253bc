package ticket

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/logger"
)

const dataURLPrefix = "data:image/png;base64,"

// Capturer rasterises ticket nodes into PNG data URLs.
type Capturer struct {
	face font.Face
	log  logger.Logger
}

// NewCapturer creates a Capturer drawing text with face.
func NewCapturer(face font.Face, log logger.Logger) *Capturer {
	if log == nil {
		log = logger.Get().Named("capture")
	}
	return &Capturer{face: face, log: log}
}

// Capture waits for every image element of n to settle, then draws the node
// and encodes it. There is no timeout besides ctx: an element that never
// settles blocks the capture until ctx is done.
func (c *Capturer) Capture(ctx context.Context, n *Node) (model.CapturedTicketImage, error) {
	if n == nil {
		return model.CapturedTicketImage{}, ErrEmptyNode
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range n.Elements {
		g.Go(func() error { return e.Wait(gctx) })
	}
	if err := g.Wait(); err != nil {
		return model.CapturedTicketImage{}, fmt.Errorf("wait for ticket images: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return model.CapturedTicketImage{}, err
	}

	img, err := c.Rasterise(ctx, n)
	if err != nil {
		return model.CapturedTicketImage{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.CapturedTicketImage{}, fmt.Errorf("encode ticket: %w", err)
	}
	return model.CapturedTicketImage{
		DataURL: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   n.Width,
		Height:  n.Height,
	}, nil
}

// Rasterise draws a settled node. Elements that failed to load are left out.
func (c *Capturer) Rasterise(ctx context.Context, n *Node) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, n.Width, n.Height))
	if n.Fill != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(n.Fill), image.Point{}, draw.Src)
	}

	for _, e := range n.Elements {
		if !e.Settled() {
			return nil, fmt.Errorf("element %s not loaded", e.Name)
		}
		if e.err != nil {
			c.log.Warn(ctx, "ticket image skipped",
				logger.String("element", e.Name),
				logger.String("source", e.source.String()),
				logger.Error(e.err),
			)
			continue
		}
		if e.source.Tainted() {
			return nil, fmt.Errorf("%w: %s from %s", ErrTaintedSurface, e.Name, e.source.String())
		}
		drawElement(dst, e)
	}

	for _, t := range n.Texts {
		c.drawText(dst, t)
	}
	return dst, nil
}

func drawElement(dst *image.RGBA, e *Element) {
	b := e.Bounds
	scaled := image.NewRGBA(b)
	draw.ApproxBiLinear.Scale(scaled, b, e.img, e.img.Bounds(), draw.Src, nil)
	if e.Round {
		draw.DrawMask(dst, b, scaled, b.Min, circle{r: b}, b.Min, draw.Over)
		return
	}
	draw.Draw(dst, b, scaled, b.Min, draw.Over)
}

// drawText renders t at native size and scales it up with nearest neighbour
// so the bitmap font stays crisp.
func (c *Capturer) drawText(dst *image.RGBA, t Text) {
	if t.Value == "" {
		return
	}
	scale := max(t.Scale, 1)
	m := c.face.Metrics()
	w := font.MeasureString(c.face, t.Value).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	if w == 0 || h == 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(t.Color),
		Face: c.face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	d.DrawString(t.Value)

	top := t.Y - m.Ascent.Ceil()*scale
	r := image.Rect(t.X, top, t.X+w*scale, top+h*scale)
	draw.NearestNeighbor.Scale(dst, r, glyphs, glyphs.Bounds(), draw.Over, nil)
}

// circle is an alpha mask of the disc inscribed in r.
type circle struct {
	r image.Rectangle
}

func (c circle) ColorModel() color.Model { return color.AlphaModel }
func (c circle) Bounds() image.Rectangle { return c.r }

func (c circle) At(x, y int) color.Color {
	rad := min(c.r.Dx(), c.r.Dy()) / 2
	cx, cy := c.r.Min.X+c.r.Dx()/2, c.r.Min.Y+c.r.Dy()/2
	if inCircle(x, y, cx, cy, rad) {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
