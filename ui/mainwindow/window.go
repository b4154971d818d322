// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"sketchcalc/internal/editor"
	"sketchcalc/internal/recognize"
	"sketchcalc/internal/version"
	"sketchcalc/pkg/colorutil"
	"sketchcalc/ui/canvas"
	"sketchcalc/ui/prefs"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	editor *editor.Editor
	prefs  *prefs.Prefs
	canvas *canvas.SketchCanvas

	modeSelect  *widget.Select
	eraserCheck *widget.Check
	widthSlider *widget.Slider
	widthLabel  *widget.Label
	undoBtn     *widget.Button
	redoBtn     *widget.Button
	calcBtn     *widget.Button
	statusBar   *widget.Label

	syncing    bool // widget callbacks fired by syncTool are ignored
	textDialog bool
}

// New creates a new main window.
func New(fyneApp fyne.App, e *editor.Editor, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Sketch Calculator")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		editor: e,
		prefs:  p,
	}

	mw.restoreTool()
	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.syncTool(e.Tool())
	mw.syncHistory()

	win.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowW, 1280)),
		float32(p.FloatWithFallback(prefs.KeyWindowH, 800))))
	win.SetOnClosed(mw.SavePreferences)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewSketchCanvas(mw.editor)
	mw.statusBar = widget.NewLabel("Ready")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
}

// createToolbar creates the tool, palette and action controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	modes := make([]string, 0, len(editor.Modes()))
	for _, m := range editor.Modes() {
		modes = append(modes, m.String())
	}
	mw.modeSelect = widget.NewSelect(modes, func(s string) {
		if mw.syncing {
			return
		}
		if m, err := editor.ParseToolMode(s); err == nil {
			mw.editor.SetMode(m)
		}
	})

	swatches := container.NewHBox()
	for _, sw := range colorutil.Palette() {
		swatches.Add(newSwatchButton(sw, func(c color.RGBA) { mw.editor.SetColor(c) }))
	}

	mw.eraserCheck = widget.NewCheck("Eraser", func(on bool) {
		if mw.syncing {
			return
		}
		mw.editor.SetEraser(on)
	})

	mw.widthLabel = widget.NewLabel("")
	mw.widthSlider = widget.NewSlider(editor.MinWidth, editor.MaxWidth)
	mw.widthSlider.Step = 1
	mw.widthSlider.OnChanged = func(v float64) {
		mw.widthLabel.SetText(fmt.Sprintf("%2d px", int(v)))
		if mw.syncing {
			return
		}
		mw.editor.SetWidth(int(v))
	}

	mw.undoBtn = widget.NewButton("Undo", mw.onUndo)
	mw.redoBtn = widget.NewButton("Redo", mw.onRedo)
	mw.calcBtn = widget.NewButton("Calculate", mw.onCalculate)
	mw.calcBtn.Importance = widget.HighImportance

	return container.NewBorder(nil, nil,
		container.NewHBox(
			widget.NewButton("Reset", mw.onReset),
			mw.modeSelect,
			swatches,
			mw.eraserCheck,
		),
		container.NewHBox(mw.undoBtn, mw.redoBtn, mw.calcBtn),
		container.NewBorder(nil, nil, nil, mw.widthLabel, mw.widthSlider),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Export PNG...", mw.onExportPNG),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Toggle Eraser", mw.editor.ToggleEraser),
		fyne.NewMenuItem("Reset Canvas", mw.onReset),
	)
	toolsMenu := fyne.NewMenu("Tools",
		fyne.NewMenuItem("Calculate", mw.onCalculate),
		fyne.NewMenuItem("Variables...", mw.onShowVars),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, toolsMenu, helpMenu))
}

// setupShortcuts binds the usual editing keys.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.onUndo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		func(fyne.Shortcut) { mw.onRedo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.onCalculate() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { mw.editor.ToggleEraser() })
}

// setupEventHandlers registers for editor events.
func (mw *MainWindow) setupEventHandlers() {
	mw.editor.On(editor.EventToolChanged, func(data any) {
		if t, ok := data.(editor.Tool); ok {
			mw.syncTool(t)
			mw.storeTool(t)
		}
	})

	mw.editor.On(editor.EventHistoryChanged, func(any) {
		mw.syncHistory()
	})

	mw.editor.On(editor.EventStateChanged, func(data any) {
		if s, ok := data.(editor.State); ok && s == editor.StateAwaitingTextInput {
			mw.showTextDialog()
		}
	})

	mw.editor.On(editor.EventVarsChanged, func(data any) {
		if vars, ok := data.(recognize.Vars); ok && len(vars) > 0 {
			mw.updateStatus("Variables: " + formatVars(vars))
		}
	})

	mw.editor.On(editor.EventRecognitionFailed, func(data any) {
		mw.calcBtn.Enable()
		mw.updateStatus(fmt.Sprintf("Recognition failed: %v", data))
	})

	mw.editor.On(editor.EventAnnotationsChanged, func(any) {
		if mw.editor.PendingResults() == 0 {
			mw.calcBtn.Enable()
		}
	})

	mw.editor.On(editor.EventReset, func(any) {
		mw.calcBtn.Enable()
		mw.updateStatus("Canvas cleared")
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// syncTool reflects the editor's tool in the toolbar widgets.
func (mw *MainWindow) syncTool(t editor.Tool) {
	mw.syncing = true
	defer func() { mw.syncing = false }()
	mw.modeSelect.SetSelected(t.Mode.String())
	mw.eraserCheck.SetChecked(t.Eraser)
	mw.widthSlider.SetValue(float64(t.Width))
}

func (mw *MainWindow) syncHistory() {
	if mw.editor.CanUndo() {
		mw.undoBtn.Enable()
	} else {
		mw.undoBtn.Disable()
	}
	if mw.editor.CanRedo() {
		mw.redoBtn.Enable()
	} else {
		mw.redoBtn.Disable()
	}
}

// restoreTool applies the tool saved in preferences, if any.
func (mw *MainWindow) restoreTool() {
	if s := mw.prefs.String(prefs.KeyMode); s != "" {
		if m, err := editor.ParseToolMode(s); err == nil {
			mw.editor.SetMode(m)
		}
	}
	if s := mw.prefs.String(prefs.KeyColor); s != "" {
		if c, err := colorutil.ParseHex(s); err == nil {
			mw.editor.SetColor(c)
		}
	}
	if w := mw.prefs.Int(prefs.KeyWidth, 0); w > 0 {
		mw.editor.SetWidth(w)
	}
}

func (mw *MainWindow) storeTool(t editor.Tool) {
	mw.prefs.SetString(prefs.KeyMode, t.Mode.String())
	mw.prefs.SetString(prefs.KeyColor, colorutil.Hex(t.Color))
	mw.prefs.SetInt(prefs.KeyWidth, t.Width)
}

// SavePreferences stores the window size and writes preferences to disk.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefs.KeyWindowW, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowH, float64(size.Height))
	}
	if err := mw.prefs.SaveIfChanged(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

// showTextDialog asks for the text to stamp at the captured position.
func (mw *MainWindow) showTextDialog() {
	if mw.textDialog {
		return
	}
	mw.textDialog = true

	entry := widget.NewEntry()
	entry.SetPlaceHolder("2 + 2 =")
	items := []*widget.FormItem{widget.NewFormItem("Text", entry)}
	d := dialog.NewForm("Add Text", "Draw", "Cancel", items, func(ok bool) {
		mw.textDialog = false
		if !ok {
			mw.editor.CancelText()
			return
		}
		err := mw.editor.SubmitText(entry.Text)
		switch {
		case errors.Is(err, editor.ErrEmptyText):
			mw.showTextDialog()
		case err != nil:
			mw.updateStatus(err.Error())
		}
	}, mw.Window)
	d.Resize(fyne.NewSize(360, 160))
	d.Show()
	mw.Canvas().Focus(entry)
}

// Action handlers

func (mw *MainWindow) onUndo() {
	mw.editor.Undo()
}

func (mw *MainWindow) onRedo() {
	mw.editor.Redo()
}

func (mw *MainWindow) onReset() {
	mw.editor.Reset()
}

func (mw *MainWindow) onCalculate() {
	done := mw.editor.Calculate(context.Background())
	mw.calcBtn.Disable()
	mw.updateStatus("Recognizing...")
	go func() {
		err := <-done
		switch {
		case errors.Is(err, editor.ErrNoRecognizer):
			mw.calcBtn.Enable()
			mw.updateStatus("No recognition backend configured")
		case err != nil:
			mw.calcBtn.Enable()
			mw.updateStatus(err.Error())
		case mw.editor.PendingResults() == 0:
			mw.calcBtn.Enable()
			mw.updateStatus("Nothing recognized")
		default:
			mw.updateStatus(fmt.Sprintf("%d result(s) incoming", mw.editor.PendingResults()))
		}
	}()
}

func (mw *MainWindow) onShowVars() {
	vars := mw.editor.Vars()
	text := "No variables assigned yet."
	if len(vars) > 0 {
		text = strings.ReplaceAll(formatVars(vars), ", ", "\n")
	}
	dialog.ShowInformation("Variables", text, mw.Window)
}

func (mw *MainWindow) onExportPNG() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if err := mw.editor.EncodePNG(writer); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("sketch.png")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	if wd, err := os.Getwd(); err == nil {
		if loc, err := storage.ListerForURI(storage.NewFileURI(wd)); err == nil {
			fd.SetLocation(loc)
		}
	}
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Sketch Calculator",
		fmt.Sprintf("Sketch Calculator v%s\n\n"+
			"Draw expressions by hand and let the recognizer solve them.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// formatVars lists variables sorted by name.
func formatVars(vars recognize.Vars) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " = " + vars[name]
	}
	return strings.Join(parts, ", ")
}

// swatchButton is a tappable color chip.
type swatchButton struct {
	widget.BaseWidget
	swatch colorutil.Swatch
	onTap  func(color.RGBA)
}

func newSwatchButton(sw colorutil.Swatch, onTap func(color.RGBA)) *swatchButton {
	b := &swatchButton{swatch: sw, onTap: onTap}
	b.ExtendBaseWidget(b)
	return b
}

func (b *swatchButton) Tapped(*fyne.PointEvent) {
	b.onTap(b.swatch.Color)
}

func (b *swatchButton) MinSize() fyne.Size {
	return fyne.NewSize(22, 22)
}

func (b *swatchButton) CreateRenderer() fyne.WidgetRenderer {
	r := fynecanvas.NewRectangle(b.swatch.Color)
	r.CornerRadius = 11
	r.StrokeColor = color.Gray{Y: 0x60}
	r.StrokeWidth = 1
	return widget.NewSimpleRenderer(r)
}
