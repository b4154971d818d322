// Package canvas provides the drawing surface widget.
package canvas

import (
	"image"
	"image/color"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sketchcalc/internal/editor"
	"sketchcalc/pkg/geometry"
)

// SketchCanvas shows the editor's pixels and forwards pointer input to it.
// The editor buffer follows the widget size in device pixels.
type SketchCanvas struct {
	widget.BaseWidget

	editor *editor.Editor
	raster *fynecanvas.Raster
	layer  *fyne.Container // annotation badges, positioned in widget units

	mu      sync.Mutex
	scale   float32 // device pixels per widget unit
	pressed bool
	last    fyne.Position
	badges  map[string]*badge
}

// NewSketchCanvas creates a canvas bound to the editor.
func NewSketchCanvas(e *editor.Editor) *SketchCanvas {
	c := &SketchCanvas{
		editor: e,
		scale:  1,
		badges: make(map[string]*badge),
	}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.raster.SetMinSize(fyne.NewSize(320, 240))
	c.layer = container.NewWithoutLayout()

	e.On(editor.EventCanvasChanged, func(any) { c.raster.Refresh() })
	e.On(editor.EventStateChanged, func(any) { c.raster.Refresh() })
	e.On(editor.EventAnnotationsChanged, func(any) { c.syncBadges() })

	c.ExtendBaseWidget(c)
	return c
}

// draw renders the editor buffer, resizing it to the raster first.
func (c *SketchCanvas) draw(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	if size := c.Size(); size.Width > 0 {
		c.mu.Lock()
		changed := c.scale != float32(w)/size.Width
		c.scale = float32(w) / size.Width
		c.mu.Unlock()
		if changed {
			defer c.syncBadges()
		}
	}

	if cw, ch := c.editor.Size(); cw != w || ch != h {
		if err := c.editor.Resize(w, h); err != nil {
			log.Printf("canvas resize %dx%d: %v", w, h, err)
		}
	}

	img := c.editor.Image()
	if img == nil {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if pos, ok := c.editor.PendingText(); ok {
		drawCaret(img, pos.Round(), editor.ClampWidth(c.editor.Tool().Width)*5)
	}
	return img
}

// drawCaret marks the pending text baseline position with a bar of the
// glyph height, inverted against the pixels beneath it.
func drawCaret(img *image.RGBA, at geometry.PointInt, height int) {
	b := img.Bounds()
	for y := at.Y - height; y <= at.Y; y++ {
		for x := at.X; x < at.X+2; x++ {
			if !(image.Point{X: x, Y: y}).In(b) {
				continue
			}
			c := img.RGBAAt(x, y)
			img.SetRGBA(x, y, color.RGBA{R: ^c.R, G: ^c.G, B: ^c.B, A: 0xff})
		}
	}
}

// toCanvas converts a widget position to buffer pixels.
func (c *SketchCanvas) toCanvas(p fyne.Position) geometry.Point2D {
	c.mu.Lock()
	s := c.scale
	c.mu.Unlock()
	return geometry.NewPoint2D(float64(p.X*s), float64(p.Y*s))
}

// toWidget converts buffer pixels to a widget position.
func (c *SketchCanvas) toWidget(p geometry.Point2D) fyne.Position {
	c.mu.Lock()
	s := c.scale
	c.mu.Unlock()
	return fyne.NewPos(float32(p.X)/s, float32(p.Y)/s)
}

// MouseDown implements desktop.Mouseable.
func (c *SketchCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.mu.Lock()
	c.pressed = true
	c.last = ev.Position
	c.mu.Unlock()
	c.editor.PointerDown(c.toCanvas(ev.Position))
	c.raster.Refresh()
}

// MouseUp implements desktop.Mouseable.
func (c *SketchCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.mu.Lock()
	c.pressed = false
	c.mu.Unlock()
	c.editor.PointerUp(c.toCanvas(ev.Position))
}

// MouseIn implements desktop.Hoverable.
func (c *SketchCanvas) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (c *SketchCanvas) MouseMoved(ev *desktop.MouseEvent) {
	c.mu.Lock()
	c.last = ev.Position
	pressed := c.pressed
	c.mu.Unlock()
	if pressed {
		c.editor.PointerMove(c.toCanvas(ev.Position))
	}
}

// MouseOut implements desktop.Hoverable. Leaving the widget ends a stroke
// at the last position seen inside it.
func (c *SketchCanvas) MouseOut() {
	c.mu.Lock()
	pressed, last := c.pressed, c.last
	c.pressed = false
	c.mu.Unlock()
	if pressed {
		c.editor.PointerOut(c.toCanvas(last))
	}
}

// CreateRenderer implements fyne.Widget.
func (c *SketchCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &sketchCanvasRenderer{canvas: c}
}

type sketchCanvasRenderer struct {
	canvas *SketchCanvas
}

func (r *sketchCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.layer.Resize(size)
}

func (r *sketchCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.raster.MinSize()
}

func (r *sketchCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
	r.canvas.layer.Refresh()
}

func (r *sketchCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster, r.canvas.layer}
}

func (r *sketchCanvasRenderer) Destroy() {}
