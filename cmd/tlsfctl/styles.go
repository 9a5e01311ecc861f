package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	usedColor    = lipgloss.Color("#FF4B4B")
	freeColor    = lipgloss.Color("#04B575")
	mixedColor   = lipgloss.Color("#FFA500")
	mutedColor   = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	usedStyle  = lipgloss.NewStyle().Foreground(usedColor)
	freeStyle  = lipgloss.NewStyle().Foreground(freeColor)
	mixedStyle = lipgloss.NewStyle().Foreground(mixedColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

const (
	usedCell  = "█"
	freeCell  = "░"
	mixedCell = "▒"
)

// render applies style unless color output is disabled.
func render(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

// usageBar draws a width-cell bar split between used and free bytes.
func usageBar(used, total, width int) string {
	if width <= 0 {
		return ""
	}
	usedCells := 0
	if total > 0 {
		usedCells = min(width, used*width/total)
	}
	return render(usedStyle, strings.Repeat(usedCell, usedCells)) +
		render(freeStyle, strings.Repeat(freeCell, width-usedCells))
}

// poolMap renders blocks (in address order, covering poolBytes) as rows of
// width cells. Each cell stands for an equal slice of the pool and is drawn
// used, free, or mixed when it straddles both.
func poolMap(blocks []tlsf.BlockInfo, poolBytes, width int) []string {
	if width <= 0 || poolBytes <= 0 {
		return nil
	}
	cells := width * max(1, min(16, len(blocks)/width+1))
	perCell := max(1, poolBytes/cells)

	used := make([]int, cells)
	free := make([]int, cells)
	pos := 0
	for _, bi := range blocks {
		span := bi.Size + tlsf.AllocOverhead
		for span > 0 {
			cell := min(cells-1, pos/perCell)
			take := min(span, (cell+1)*perCell-pos)
			if take <= 0 {
				take = span
			}
			if bi.Used {
				used[cell] += take
			} else {
				free[cell] += take
			}
			pos += take
			span -= take
		}
	}

	var rows []string
	var row strings.Builder
	for i := 0; i < cells; i++ {
		switch {
		case used[i] > 0 && free[i] > 0:
			row.WriteString(render(mixedStyle, mixedCell))
		case free[i] > 0:
			row.WriteString(render(freeStyle, freeCell))
		case used[i] > 0:
			row.WriteString(render(usedStyle, usedCell))
		default:
			row.WriteString(render(mutedStyle, " "))
		}
		if (i+1)%width == 0 {
			rows = append(rows, row.String())
			row.Reset()
		}
	}
	return rows
}
