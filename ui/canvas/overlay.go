package canvas

import (
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sketchcalc/internal/annotation"
	"sketchcalc/pkg/geometry"
)

var (
	badgeText = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	badgeFill = color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xc0}
)

// badge is one draggable annotation label. Dragging moves it through the
// editor; a secondary tap removes it.
type badge struct {
	widget.BaseWidget
	canvas *SketchCanvas
	id     string
	text   *fynecanvas.Text
	bg     *fynecanvas.Rectangle

	dragging bool
	pointer  geometry.Point2D
}

func newBadge(c *SketchCanvas, it annotation.Item) *badge {
	b := &badge{
		canvas: c,
		id:     it.ID,
		text:   fynecanvas.NewText(annotation.PlainText(it.Content), badgeText),
		bg:     fynecanvas.NewRectangle(badgeFill),
	}
	b.text.TextSize = 16
	b.bg.CornerRadius = 4
	b.ExtendBaseWidget(b)
	return b
}

func (b *badge) setContent(content string) {
	if t := annotation.PlainText(content); t != b.text.Text {
		b.text.Text = t
		b.Refresh()
	}
}

// canvasPointer converts an absolute drag position to buffer pixels.
func (b *badge) canvasPointer(ev *fyne.DragEvent) geometry.Point2D {
	origin := fyne.CurrentApp().Driver().AbsolutePositionForObject(b.canvas)
	return b.canvas.toCanvas(ev.AbsolutePosition.Subtract(origin))
}

// Dragged implements fyne.Draggable.
func (b *badge) Dragged(ev *fyne.DragEvent) {
	p := b.canvasPointer(ev)
	if !b.dragging {
		// The event is already displaced by ev.Dragged from the press point.
		start := p.Sub(geometry.NewPoint2D(float64(ev.Dragged.DX), float64(ev.Dragged.DY)))
		if !b.canvas.editor.BeginAnnotationDrag(b.id, start) {
			return
		}
		b.dragging = true
	}
	b.pointer = p
	if pos, ok := b.canvas.editor.DragAnnotation(p); ok {
		b.Move(b.canvas.toWidget(pos))
	}
}

// DragEnd implements fyne.Draggable.
func (b *badge) DragEnd() {
	if !b.dragging {
		return
	}
	b.dragging = false
	b.canvas.editor.EndAnnotationDrag(b.pointer)
}

// TappedSecondary implements fyne.SecondaryTappable.
func (b *badge) TappedSecondary(*fyne.PointEvent) {
	b.canvas.editor.RemoveAnnotation(b.id)
}

// MouseDown and MouseUp keep presses on a badge away from the drawing
// surface underneath.
func (b *badge) MouseDown(*desktop.MouseEvent) {}

func (b *badge) MouseUp(*desktop.MouseEvent) {}

func (b *badge) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(b.bg, container.NewPadded(b.text)))
}

// syncBadges mirrors the editor's annotations: new ids get a badge, known ids
// are moved and relabelled, vanished ids are dropped.
func (c *SketchCanvas) syncBadges() {
	items := c.editor.Annotations()

	c.mu.Lock()
	seen := make(map[string]bool, len(items))
	objects := make([]fyne.CanvasObject, 0, len(items))
	for _, it := range items {
		seen[it.ID] = true
		b, ok := c.badges[it.ID]
		if !ok {
			b = newBadge(c, it)
			c.badges[it.ID] = b
		}
		objects = append(objects, b)
	}
	for id := range c.badges {
		if !seen[id] {
			delete(c.badges, id)
		}
	}
	c.mu.Unlock()

	for i, it := range items {
		b := objects[i].(*badge)
		b.setContent(it.Content)
		b.Resize(b.MinSize())
		if !b.dragging {
			b.Move(c.toWidget(it.Position))
		}
	}
	c.layer.Objects = objects
	c.layer.Refresh()
}
