package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// palette holds the light and dark variant of a themed colour.
type palette struct {
	light, dark color.Color
}

var smoothPalette = map[fyne.ThemeColorName]palette{
	theme.ColorNameBackground: {
		light: color.RGBA{R: 250, G: 249, B: 245, A: 255},
		dark:  color.RGBA{R: 28, G: 29, B: 31, A: 255},
	},
	theme.ColorNameButton: {
		light: color.RGBA{R: 238, G: 236, B: 230, A: 255},
		dark:  color.RGBA{R: 58, G: 60, B: 64, A: 255},
	},
	theme.ColorNamePrimary: {
		light: color.RGBA{R: 46, G: 125, B: 120, A: 255},
		dark:  color.RGBA{R: 96, G: 190, B: 180, A: 255},
	},
	theme.ColorNameHover: {
		light: color.RGBA{A: 25},
		dark:  color.RGBA{R: 255, G: 255, B: 255, A: 25},
	},
}

// Theme is the viewer theme: a muted background that keeps image colours
// easy to judge, with default fonts, icons and sizes.
type Theme struct{}

func NewTheme() fyne.Theme {
	return &Theme{}
}

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if name == theme.ColorNameFocus {
		name = theme.ColorNamePrimary
	}

	if p, ok := smoothPalette[name]; ok {
		if variant == theme.VariantDark {
			return p.dark
		}
		return p.light
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
