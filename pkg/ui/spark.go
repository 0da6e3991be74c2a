package ui

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a fixed-width block-character chart, scaled to
// the observed maximum. Short histories are left-padded so the line keeps a
// stable width between refreshes.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	out := make([]rune, 0, width)
	for i := len(values); i < width; i++ {
		out = append(out, ' ')
	}
	for _, v := range values {
		if max <= 0 || v <= 0 {
			out = append(out, sparkLevels[0])
			continue
		}
		idx := int(v / max * float64(len(sparkLevels)-1))
		if idx >= len(sparkLevels) {
			idx = len(sparkLevels) - 1
		}
		out = append(out, sparkLevels[idx])
	}
	return string(out)
}
