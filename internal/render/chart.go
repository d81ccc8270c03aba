package render

import (
	"fmt"
	"strings"
)

const barWidth = 20

// BarChart renders horizontal text bar charts for vote tallies.
type BarChart struct{}

// RenderBarChart draws one bar per value, scaled to the largest value.
func (BarChart) RenderBarChart(values []float64, labels []string) string {
	if len(values) == 0 || len(values) != len(labels) {
		return ""
	}

	max := values[0]
	labelWidth := len(labels[0])
	for i := range values {
		if values[i] > max {
			max = values[i]
		}
		if len(labels[i]) > labelWidth {
			labelWidth = len(labels[i])
		}
	}

	var b strings.Builder
	for i := range values {
		bar := 0
		if max > 0 {
			bar = int(values[i] / max * barWidth)
		}
		if values[i] > 0 && bar == 0 {
			bar = 1
		}
		fmt.Fprintf(&b, "%-*s %-*s %.2f\n", labelWidth, labels[i], barWidth, strings.Repeat("█", bar), values[i])
	}
	return b.String()
}
