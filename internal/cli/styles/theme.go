// Package styles provides lipgloss styling for touchicons CLI output.
package styles

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the base colors of a theme.
type Palette struct {
	Background string
	Surface    string
	Text       string
	Muted      string
	Accent     string
	Border     string
}

// Theme holds lipgloss colors and styles.
type Theme struct {
	Background lipgloss.Color
	Surface    lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color

	// Additional semantic colors
	Error   lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color

	renderer *lipgloss.Renderer

	Title        lipgloss.Style
	Normal       lipgloss.Style
	Subtle       lipgloss.Style
	Highlight    lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	SuccessStyle lipgloss.Style

	Badge      lipgloss.Style
	BadgeMuted lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
}

// DefaultDarkPalette returns hardcoded dark theme colors.
func DefaultDarkPalette() Palette {
	return Palette{
		Background: "#0a0a0b",
		Surface:    "#1a1a1b",
		Text:       "#ffffff",
		Muted:      "#909090",
		Accent:     "#4ade80",
		Border:     "#333333",
	}
}

// NewTheme creates the dark theme rendering to out. Color is dropped
// automatically when out is not a terminal.
func NewTheme(out io.Writer) *Theme {
	return NewThemeFromPalette(lipgloss.NewRenderer(out), DefaultDarkPalette())
}

// NewThemeFromPalette creates a Theme from a Palette.
func NewThemeFromPalette(r *lipgloss.Renderer, p Palette) *Theme {
	t := &Theme{
		Background: lipgloss.Color(p.Background),
		Surface:    lipgloss.Color(p.Surface),
		Text:       lipgloss.Color(p.Text),
		Muted:      lipgloss.Color(p.Muted),
		Accent:     lipgloss.Color(p.Accent),
		Border:     lipgloss.Color(p.Border),

		Error:   lipgloss.Color("#ef4444"),
		Warning: lipgloss.Color("#f59e0b"),
		Success: lipgloss.Color(p.Accent),

		renderer: r,
	}

	t.buildStyles()
	return t
}

func (t *Theme) buildStyles() {
	r := t.renderer

	t.Title = r.NewStyle().
		Foreground(t.Text).
		Bold(true)

	t.Normal = r.NewStyle().
		Foreground(t.Text)

	t.Subtle = r.NewStyle().
		Foreground(t.Muted)

	t.Highlight = r.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	t.ErrorStyle = r.NewStyle().
		Foreground(t.Error)

	t.WarningStyle = r.NewStyle().
		Foreground(t.Warning)

	t.SuccessStyle = r.NewStyle().
		Foreground(t.Success)

	t.Badge = r.NewStyle().
		Foreground(t.Background).
		Background(t.Accent).
		Padding(0, 1)

	t.BadgeMuted = r.NewStyle().
		Foreground(t.Text).
		Background(t.Surface).
		Padding(0, 1)

	t.TableHeader = r.NewStyle().
		Foreground(t.Accent).
		Bold(true).
		Padding(0, 1)

	t.TableCell = r.NewStyle().
		Foreground(t.Text).
		Padding(0, 1)
}

// Renderer returns the lipgloss renderer bound to the theme's output.
func (t *Theme) Renderer() *lipgloss.Renderer {
	if t == nil || t.renderer == nil {
		return lipgloss.DefaultRenderer()
	}
	return t.renderer
}
