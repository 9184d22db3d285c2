package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want []string
	}{
		{"success", FormatSuccess("created"), []string{IconSuccess, "created"}},
		{"error", FormatError("failed"), []string{IconError, "failed"}},
		{"warning", FormatWarning("careful"), []string{IconWarning, "careful"}},
		{"info", FormatInfo("note"), []string{IconInfo, "note"}},
		{"step", FormatStep(2, 5, "Redirecting"), []string{"[2/5]", "Redirecting"}},
		{"key value", FormatKeyValue("Redirects", "3"), []string{"Redirects:", "3"}},
		{"link", FormatLink("goog", "https://google.com"), []string{"goog", IconArrow, "https://google.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range tt.want {
				assert.Contains(t, tt.got, w)
			}
		})
	}
}

func TestFormatStep_MultiDigit(t *testing.T) {
	assert.Contains(t, FormatStep(10, 12, "x"), "[10/12]")
}

func TestDisableColors(t *testing.T) {
	original := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(original) })

	DisableColors()

	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
	assert.Equal(t, "plain", ErrorStyle.Render("plain"))
}

func TestBoxStyles(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Box.Render("content")
		_ = BoxHighlight.Render("content")
		_ = BoxError.Render("content")
		_ = Code.Render("content")
	})
}
