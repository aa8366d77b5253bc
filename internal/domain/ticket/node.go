package ticket

import (
	"context"
	"image"
	"image/color"
)

// Element is an image slot of a ticket. Its source starts loading as soon as
// the element is mounted; Wait blocks until the load has settled.
type Element struct {
	Name   string
	Bounds image.Rectangle
	Round  bool

	source Source
	done   chan struct{}
	img    image.Image
	err    error
}

func newElement(name string, bounds image.Rectangle, src Source) *Element {
	return &Element{Name: name, Bounds: bounds, source: src, done: make(chan struct{})}
}

func (e *Element) mount(ctx context.Context) {
	go func() {
		defer close(e.done)
		e.img, e.err = e.source.Load(ctx)
	}()
}

// Wait blocks until the element has loaded or failed, or ctx is done.
func (e *Element) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settled reports whether loading has finished.
func (e *Element) Settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Err returns the load error. Only meaningful once settled.
func (e *Element) Err() error {
	if !e.Settled() {
		return nil
	}
	return e.err
}

// Source returns where the element's pixels come from.
func (e *Element) Source() Source { return e.source }

// Text is a line of text drawn at baseline (X, Y) with an integer pixel scale.
type Text struct {
	Name  string
	Value string
	X, Y  int
	Scale int
	Color color.Color
}

// Node is an offscreen ticket composition. Elements are drawn in order,
// followed by the text lines.
type Node struct {
	Width    int
	Height   int
	Fill     color.Color
	Elements []*Element
	Texts    []Text
}

// Element returns the element called name, or nil.
func (n *Node) Element(name string) *Element {
	for _, e := range n.Elements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Text returns the text line called name.
func (n *Node) Text(name string) (Text, bool) {
	for _, t := range n.Texts {
		if t.Name == name {
			return t, true
		}
	}
	return Text{}, false
}
