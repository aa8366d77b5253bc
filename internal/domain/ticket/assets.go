package ticket

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // avatar and remote backgrounds
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// maxRemoteBytes bounds a remote asset download.
const maxRemoteBytes = 8 << 20

// Source produces the pixels of an image element.
type Source interface {
	Load(ctx context.Context) (image.Image, error)
	// Tainted reports whether drawing this source makes the surface unexportable.
	Tainted() bool
	String() string
}

type bytesSource struct {
	name string
	data []byte
}

// FromBytes decodes an in-memory JPEG or PNG.
func FromBytes(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (s bytesSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(s.data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return img, nil
}

func (bytesSource) Tainted() bool    { return false }
func (s bytesSource) String() string { return "bytes:" + s.name }

type builtinSource struct {
	name string
	draw func() image.Image
}

// Built-in artwork.
var (
	Background  Source = builtinSource{name: "background", draw: backgroundArt}
	Placeholder Source = builtinSource{name: "placeholder", draw: placeholderArt}
	Logo        Source = builtinSource{name: "logo", draw: logoArt}
	HandleIcon  Source = builtinSource{name: "handle-icon", draw: handleIconArt}
)

func (s builtinSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.draw(), nil
}

func (builtinSource) Tainted() bool    { return false }
func (s builtinSource) String() string { return "builtin:" + s.name }

type remoteSource struct {
	url     string
	client  *http.Client
	tainted bool
}

// FromURL fetches an image over HTTP. Images from hosts outside trusted load
// normally but taint the surface they are drawn on.
func FromURL(client *http.Client, rawURL string, trusted []string) Source {
	if client == nil {
		client = http.DefaultClient
	}
	return remoteSource{url: rawURL, client: client, tainted: !TrustedURL(rawURL, trusted)}
}

func (s remoteSource) Load(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch %s: status %d", s.url, resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.url, err)
	}
	return img, nil
}

func (s remoteSource) Tainted() bool  { return s.tainted }
func (s remoteSource) String() string { return "url:" + s.url }

// TrustedURL reports whether rawURL's host is one of hosts (case-insensitive,
// port ignored).
func TrustedURL(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return slices.ContainsFunc(hosts, func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), host)
	})
}

var (
	ink       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	inkMuted  = color.RGBA{R: 0xd1, G: 0xd0, B: 0xd5, A: 0xff}
	accent    = color.RGBA{R: 0xf5, G: 0x7a, B: 0x61, A: 0xff}
	navy      = color.RGBA{R: 0x0d, G: 0x08, B: 0x2d, A: 0xff}
	violet    = color.RGBA{R: 0x4b, G: 0x16, B: 0x69, A: 0xff}
	neutral   = color.RGBA{R: 0x8a, G: 0x86, B: 0x9a, A: 0xff}
	neutralHi = color.RGBA{R: 0xc4, G: 0xc1, B: 0xcf, A: 0xff}
)

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// backgroundArt is a diagonal navy to violet gradient with faint stripes.
func backgroundArt() image.Image {
	const w, h = 600, 280
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := lerp(navy, violet, float64(x+y)/float64(w+h))
			if (x+y)%24 < 2 {
				c = lerp(c, ink, 0.06)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// placeholderArt is a neutral head and shoulders silhouette.
func placeholderArt() image.Image {
	const s = 96
	img := image.NewRGBA(image.Rect(0, 0, s, s))
	for y := 0; y < s; y++ {
		for x := 0; x < s; x++ {
			c := neutral
			if inCircle(x, y, s/2, s*3/8, s/5) || inCircle(x, y, s/2, s+s/8, s/2) {
				c = neutralHi
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// logoArt is a pair of angle brackets on a transparent square.
func logoArt() image.Image {
	const s = 32
	img := image.NewRGBA(image.Rect(0, 0, s, s))
	for y := 0; y < s; y++ {
		d := y - s/2
		if d < 0 {
			d = -d
		}
		for t := 0; t < 3; t++ {
			img.SetRGBA(4+d+t, y, accent)
			img.SetRGBA(s-5-d-t, y, accent)
		}
	}
	return img
}

// handleIconArt is a ring glyph shown before the handle.
func handleIconArt() image.Image {
	const s = 16
	img := image.NewRGBA(image.Rect(0, 0, s, s))
	for y := 0; y < s; y++ {
		for x := 0; x < s; x++ {
			if inCircle(x, y, s/2, s/2, s/2) && !inCircle(x, y, s/2, s/2, s/4) {
				img.SetRGBA(x, y, ink)
			}
		}
	}
	return img
}

func inCircle(x, y, cx, cy, r int) bool {
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}
