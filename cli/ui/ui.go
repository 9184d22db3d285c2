// Package ui provides rendering components for the shortener CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vsavik/url-shortener/cli/styles"
)

// Table renders a bordered table.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		widths:  widths,
	}
}

// AddRow adds a row to the table. Missing cells are blank and extra
// values are dropped.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := 0; i < len(t.headers) && i < len(values); i++ {
		row[i] = values[i]
		if w := lipgloss.Width(values[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) rule(borderStyle lipgloss.Style, left, mid, right string) string {
	var sb strings.Builder
	sb.WriteString(borderStyle.Render(left))
	for i, w := range t.widths {
		sb.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
		if i < len(t.widths)-1 {
			sb.WriteString(borderStyle.Render(mid))
		}
	}
	sb.WriteString(borderStyle.Render(right))
	return sb.String()
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().
		Foreground(styles.Border)

	line := func(cells []string, style lipgloss.Style) string {
		var sb strings.Builder
		sb.WriteString(borderStyle.Render("│"))
		for i, c := range cells {
			sb.WriteString(style.Width(t.widths[i] + 2).Render(c))
			sb.WriteString(borderStyle.Render("│"))
		}
		return sb.String()
	}

	lines := []string{
		t.rule(borderStyle, "┌", "┬", "┐"),
		line(t.headers, headerStyle),
		t.rule(borderStyle, "├", "┼", "┤"),
	}
	for _, row := range t.rows {
		lines = append(lines, line(row, cellStyle))
	}
	lines = append(lines, t.rule(borderStyle, "└", "┴", "┘"))

	return strings.Join(lines, "\n")
}

// StatusBadge returns a styled status badge.
func StatusBadge(status string) string {
	badge := lipgloss.NewStyle().Padding(0, 1)

	switch strings.ToLower(status) {
	case "ok", "success", "created", "redirected":
		badge = badge.Background(styles.Success).Foreground(lipgloss.Color("#000000"))
	case "rejected", "not found", "in use":
		badge = badge.Background(styles.Warning).Foreground(lipgloss.Color("#000000"))
	case "error", "failed":
		badge = badge.Background(styles.Error).Foreground(lipgloss.Color("#FFFFFF"))
	default:
		badge = badge.Background(styles.Surface).Foreground(styles.Text)
	}

	return badge.Render(status)
}

// Banner renders the CLI banner.
func Banner() string {
	return styles.BoxHighlight.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			styles.Title.MarginBottom(0).Render(styles.IconLink+" shortener"),
			styles.Muted.Render("event-sourced short links"),
		),
	)
}

// SimpleBanner returns a one-line banner.
func SimpleBanner() string {
	return styles.IconLink + " " + lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Render("shortener") +
		" " +
		styles.Muted.Render("- event-sourced short links")
}

// Divider returns a horizontal divider line.
func Divider(width int) string {
	return styles.Dim.Render(strings.Repeat("─", width))
}

// ListItems formats a list of items with bullets.
func ListItems(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(styles.ListItemBullet.Render(styles.IconDot))
		sb.WriteString(styles.Normal.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}

// NumberedList formats a numbered list.
func NumberedList(items []string) string {
	var sb strings.Builder
	numStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Width(4)
	for i, item := range items {
		sb.WriteString(numStyle.Render(fmt.Sprintf("%d.", i+1)))
		sb.WriteString(styles.Normal.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}
