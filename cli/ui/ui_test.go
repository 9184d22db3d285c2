package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_AddRow(t *testing.T) {
	table := NewTable("Slug", "URL")

	table.AddRow("goog", "https://google.com")
	table.AddRow("short")
	table.AddRow("a", "b", "dropped")

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"short", ""}, table.rows[1])
	assert.Equal(t, []string{"a", "b"}, table.rows[2])
	assert.Equal(t, []int{5, len("https://google.com")}, table.widths)
}

func TestTable_Render(t *testing.T) {
	table := NewTable("Slug", "Redirects")
	table.AddRow("goog", "2")
	table.AddRow("bing", "0")

	out := table.Render()
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], "┌")
	assert.Contains(t, lines[1], "Redirects")
	assert.Contains(t, lines[3], "goog")
	assert.Contains(t, lines[4], "bing")
	assert.Contains(t, lines[5], "┘")
}

func TestTable_RenderEmpty(t *testing.T) {
	assert.Equal(t, "", NewTable().Render())
}

func TestStatusBadge(t *testing.T) {
	for _, status := range []string{"created", "rejected", "error", "other"} {
		t.Run(status, func(t *testing.T) {
			assert.Contains(t, StatusBadge(status), status)
		})
	}
}

func TestBanners(t *testing.T) {
	assert.Contains(t, Banner(), "shortener")
	assert.Contains(t, SimpleBanner(), "shortener")
}

func TestDivider(t *testing.T) {
	assert.Contains(t, Divider(5), "─────")
}

func TestListItems(t *testing.T) {
	out := ListItems([]string{"create", "redirect"})

	assert.Contains(t, out, "create")
	assert.Contains(t, out, "redirect")
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Empty(t, ListItems(nil))
}

func TestNumberedList(t *testing.T) {
	out := NumberedList([]string{"first", "second"})

	assert.Contains(t, out, "1.")
	assert.Contains(t, out, "2.")
	assert.Contains(t, out, "second")
	assert.Empty(t, NumberedList(nil))
}
