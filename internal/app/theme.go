package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CalculatorTheme is the dark theme of the drawing window.
type CalculatorTheme struct{}

var _ fyne.Theme = (*CalculatorTheme)(nil)

func (t *CalculatorTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x25, G: 0x63, B: 0xEB, A: 0xFF} // active tool
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xFF}
	case theme.ColorNameButton:
		return color.NRGBA{R: 0x4B, G: 0x55, B: 0x63, A: 0xFF}
	case theme.ColorNameOverlayBackground:
		return color.NRGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *CalculatorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CalculatorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CalculatorTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 4
	default:
		return theme.DefaultTheme().Size(name)
	}
}
