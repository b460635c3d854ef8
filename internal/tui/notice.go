package tui

import (
	"fmt"
	"strings"

	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/charmbracelet/lipgloss"
)

// StatusColor returns the palette color for s.
func StatusColor(s result.Status) lipgloss.Color {
	switch s {
	case result.StatusSuccess:
		return ColorSuccess
	case result.StatusWarning:
		return ColorWarn
	default:
		return ColorError
	}
}

// RenderNotice renders a notice as a colored status badge followed by its
// message.
func RenderNotice(n result.Notice) string {
	badge := badgeStyle.Foreground(lipgloss.Color("#2E3440")).Background(StatusColor(n.Status)).
		Render(strings.ToUpper(string(n.Status)))
	return badge + " " + labelStyle.Render(n.Message)
}

// RenderQueue renders the queue as a table of file, format and quality, with
// the batch override applied the way dispatch applies it.
func RenderQueue(entries []queue.Entry, o queue.BatchOverride) string {
	header := []string{"", "File", "Format", "Quality"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		f, q := o.Resolve(e)
		mark := " "
		if e.Selected {
			mark = "x"
		}
		rows = append(rows, []string{"[" + mark + "]", e.DisplayName, f.String(), fmt.Sprintf("%d", q)})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	total := len(widths) - 1
	for _, w := range widths {
		total += w + 2
	}
	hline := strings.Repeat("-", total)

	lines := []string{hline, renderRow(header, widths, titleStyle), hline}
	for _, r := range rows {
		lines = append(lines, renderRow(r, widths, labelStyle))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = " " + style.Render(padRight(c, widths[i])) + " "
	}
	return strings.Join(parts, "|")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
