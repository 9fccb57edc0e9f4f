package styles

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bnema/touchicons/internal/domain/entity"
)

// IconRenderer renders icon cache output with styled text.
type IconRenderer struct {
	theme *Theme
	now   func() time.Time
}

// NewIconRenderer creates a new icon renderer with the given theme.
func NewIconRenderer(theme *Theme) *IconRenderer {
	return &IconRenderer{theme: theme, now: time.Now}
}

// RenderList renders the cached records of one profile as a table.
func (r *IconRenderer) RenderList(profile string, capacity int, records []*entity.IconRecord) string {
	header := fmt.Sprintf("\n  %s %s %s\n",
		r.theme.Highlight.Render(IconImage),
		r.theme.Title.Render(profile),
		r.theme.Subtle.Render(fmt.Sprintf("%d/%d icons", len(records), capacity)),
	)
	if len(records) == 0 {
		return header + "  " + r.theme.Subtle.Render("cache is empty") + "\n"
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Origin,
			rec.IconType.String(),
			sizeLabel(rec.IconSize),
			r.age(rec.FetchTime),
			r.age(rec.LastRequestTime),
			filepath.Base(rec.IconFile),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.theme.Renderer().NewStyle().Foreground(r.theme.Border)).
		Headers("ORIGIN", "TYPE", "SIZE", "FETCHED", "REQUESTED", "FILE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.theme.TableHeader
			}
			return r.theme.TableCell
		})

	return header + t.Render() + "\n"
}

// RenderStored renders the outcome of an admission request.
func (r *IconRenderer) RenderStored(rec *entity.IconRecord) string {
	if rec == nil {
		return fmt.Sprintf("  %s %s\n",
			r.theme.WarningStyle.Render(IconWarning),
			r.theme.Normal.Render("no icon admitted (fetch failed or candidate rejected)"))
	}
	return fmt.Sprintf("  %s %s %s %s\n",
		r.theme.SuccessStyle.Render(IconCheck),
		r.theme.Highlight.Render(rec.Origin),
		r.theme.Badge.Render(rec.IconType.String()),
		r.theme.Subtle.Render(sizeLabel(rec.IconSize)+" "+rec.IconURL),
	)
}

// RenderDeleted renders the outcome of a delete.
func (r *IconRenderer) RenderDeleted(origin string, deleted bool) string {
	if !deleted {
		return fmt.Sprintf("  %s %s %s\n",
			r.theme.Subtle.Render(IconInfo),
			r.theme.Normal.Render("nothing cached for"),
			r.theme.Highlight.Render(origin))
	}
	return fmt.Sprintf("  %s %s %s\n",
		r.theme.SuccessStyle.Render(IconTrash),
		r.theme.Normal.Render("deleted icon for"),
		r.theme.Highlight.Render(origin))
}

// RenderSaved renders the path an icon was written to.
func (r *IconRenderer) RenderSaved(origin, path string, edge int) string {
	return fmt.Sprintf("  %s %s %s %s\n",
		r.theme.SuccessStyle.Render(IconCheck),
		r.theme.Highlight.Render(origin),
		r.theme.BadgeMuted.Render(fmt.Sprintf("%dpx", edge)),
		r.theme.Subtle.Render(path))
}

// RenderError renders an error line.
func (r *IconRenderer) RenderError(err error) string {
	return fmt.Sprintf("  %s %s\n",
		r.theme.ErrorStyle.Render(IconX),
		r.theme.ErrorStyle.Render(err.Error()))
}

// RenderPath renders a labelled filesystem path.
func (r *IconRenderer) RenderPath(label, path string) string {
	return fmt.Sprintf("  %s %s %s\n",
		r.theme.Highlight.Render(IconFolder),
		r.theme.Normal.Render(label),
		r.theme.Subtle.Render(path))
}

// RenderEvent renders one live cache event.
func (r *IconRenderer) RenderEvent(kind, origin, file string) string {
	icon := r.theme.SuccessStyle.Render(IconGlobe)
	if kind == "evicted" {
		icon = r.theme.WarningStyle.Render(IconTrash)
	}
	return fmt.Sprintf("  %s %s %s %s\n",
		icon,
		r.theme.BadgeMuted.Render(kind),
		r.theme.Highlight.Render(origin),
		r.theme.Subtle.Render(filepath.Base(file)))
}

// RenderDatabase renders the database line of a status report.
func (r *IconRenderer) RenderDatabase(path string, open bool, schemaVersion int64) string {
	state := r.theme.WarningStyle.Render("unavailable")
	if open {
		state = r.theme.SuccessStyle.Render(fmt.Sprintf("schema v%d", schemaVersion))
	}
	return fmt.Sprintf("  %s %s %s %s\n",
		r.theme.Highlight.Render(IconServer),
		r.theme.Normal.Render("database"),
		state,
		r.theme.Subtle.Render(path))
}

func (r *IconRenderer) age(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := r.now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func sizeLabel(size int) string {
	if size == entity.UnknownIconSize {
		return "?"
	}
	return strconv.Itoa(size) + "px"
}
