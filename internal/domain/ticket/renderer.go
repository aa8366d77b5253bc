// Package ticket composes and rasterises the shareable conference ticket.
package ticket

import (
	"context"
	"image"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/logger"
)

// Ticket geometry in pixels.
const (
	Width  = 600
	Height = 280

	nameScale    = 3
	nameMaxWidth = Width - 140 - 32
	ellipsis     = "..."
)

// Element names.
const (
	ElemBackground = "background"
	ElemLogo       = "logo"
	ElemAvatar     = "avatar"
	ElemHandleIcon = "handle-icon"
)

// Text names.
const (
	TextTitle  = "title"
	TextEvent  = "event"
	TextName   = "name"
	TextHandle = "handle"
	TextNumber = "number"
)

// Renderer builds ticket nodes from submission records.
type Renderer struct {
	eventDate     string
	eventLocation string
	backgroundURL string
	trustedHosts  []string
	client        *http.Client
	face          font.Face
	log           logger.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		client: http.DefaultClient,
		face:   basicfont.Face7x13,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("ticket")
	}
	return r
}

// Face returns the font face used for text.
func (r *Renderer) Face() font.Face { return r.face }

// Render composes the ticket for rec. Image elements begin loading right
// away and keep loading under ctx whether or not the node is ever captured.
func (r *Renderer) Render(ctx context.Context, rec model.SubmissionRecord) *Node {
	bg := Background
	if r.backgroundURL != "" {
		bg = FromURL(r.client, r.backgroundURL, r.trustedHosts)
	}

	avatar := Placeholder
	switch {
	case !rec.Avatar.Empty():
		avatar = FromBytes(rec.Avatar.Name, rec.Avatar.Data)
	case rec.AvatarURL != "":
		avatar = FromURL(r.client, rec.AvatarURL, r.trustedHosts)
	}

	n := &Node{
		Width:  Width,
		Height: Height,
		Fill:   navy,
		Elements: []*Element{
			newElement(ElemBackground, image.Rect(0, 0, Width, Height), bg),
			newElement(ElemLogo, image.Rect(32, 28, 64, 60), Logo),
			newElement(ElemAvatar, image.Rect(32, 152, 120, 240), avatar),
			newElement(ElemHandleIcon, image.Rect(140, 214, 156, 230), HandleIcon),
		},
		Texts: []Text{
			{Name: TextTitle, Value: "Coding Conf", X: 76, Y: 52, Scale: 2, Color: ink},
			{Name: TextEvent, Value: eventLine(r.eventDate, r.eventLocation), X: 76, Y: 76, Scale: 1, Color: inkMuted},
			{Name: TextName, Value: Truncate(r.face, rec.FullName, nameScale, nameMaxWidth), X: 140, Y: 196, Scale: nameScale, Color: ink},
			{Name: TextHandle, Value: rec.GitHub, X: 162, Y: 227, Scale: 1, Color: inkMuted},
			{Name: TextNumber, Value: "No. " + ShortID(rec.RequestID), X: Width - 120, Y: Height - 20, Scale: 1, Color: accent},
		},
	}
	n.Element(ElemAvatar).Round = true

	for _, e := range n.Elements {
		e.mount(ctx)
	}
	r.log.Debug(ctx, "ticket rendered",
		logger.String("requestID", rec.RequestID),
		logger.String("avatar", avatar.String()),
		logger.String("background", bg.String()),
	)
	return n
}

func eventLine(date, location string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{date, location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

// ShortID is the ticket number printed on the ticket: the random part of
// the request id, upper-cased.
func ShortID(id string) string {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		id = id[i+1:]
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// TextWidth is the drawn width of s in pixels at the given scale.
func TextWidth(face font.Face, s string, scale int) int {
	if scale < 1 {
		scale = 1
	}
	return font.MeasureString(face, s).Ceil() * scale
}

// Truncate shortens s with a trailing ellipsis until it fits maxWidth pixels.
func Truncate(face font.Face, s string, scale, maxWidth int) string {
	if TextWidth(face, s, scale) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		cut := strings.TrimRightFunc(string(runes[:n]), unicode.IsSpace) + ellipsis
		if TextWidth(face, cut, scale) <= maxWidth {
			return cut
		}
	}
	return ellipsis
}
