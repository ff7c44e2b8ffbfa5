package gui

import (
	"testing"

	"fyne.io/fyne/v2/theme"
	"github.com/stretchr/testify/assert"
)

func TestThemeColors(t *testing.T) {
	th := NewTheme()

	assert.Equal(t, smoothPalette[theme.ColorNameBackground].light, th.Color(theme.ColorNameBackground, theme.VariantLight))
	assert.Equal(t, smoothPalette[theme.ColorNameBackground].dark, th.Color(theme.ColorNameBackground, theme.VariantDark))
	assert.Equal(t, th.Color(theme.ColorNamePrimary, theme.VariantDark), th.Color(theme.ColorNameFocus, theme.VariantDark))
	assert.Equal(t,
		theme.DefaultTheme().Color(theme.ColorNameError, theme.VariantLight),
		th.Color(theme.ColorNameError, theme.VariantLight))
}
