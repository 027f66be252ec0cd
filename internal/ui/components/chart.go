package components

import (
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/ui/styles"
)

// HistorySeries splits snapshots into Claude and Gemini series. Forbidden
// snapshots count as 0; families that were not reported repeat the
// previous value so the lines stay continuous.
func HistorySeries(snapshots []models.QuotaSnapshot) (claude, gemini []float64) {
	lastC, lastG := -1.0, -1.0
	for _, s := range snapshots {
		c, g := float64(s.Claude), float64(s.Gemini)
		if s.Forbidden {
			c, g = 0, 0
		}
		if c < 0 {
			c = lastC
		}
		if g < 0 {
			g = lastG
		}
		lastC, lastG = c, g
		if c >= 0 {
			claude = append(claude, c)
		}
		if g >= 0 {
			gemini = append(gemini, g)
		}
	}
	return claude, gemini
}

// RenderQuotaHistory plots remaining Claude and Gemini quota over time.
func RenderQuotaHistory(snapshots []models.QuotaSnapshot, width, height int, caption string) string {
	claude, gemini := HistorySeries(snapshots)
	if len(claude) < 2 && len(gemini) < 2 {
		return styles.HelpStyle.Render("Not enough history yet")
	}

	width = max(width, 20)
	height = max(height, 3)

	var series [][]float64
	var colors []asciigraph.AnsiColor
	if len(claude) > 0 {
		series = append(series, claude)
		colors = append(colors, asciigraph.DarkOrange)
	}
	if len(gemini) > 0 {
		series = append(series, gemini)
		colors = append(colors, asciigraph.DodgerBlue)
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}
