package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/source"
)

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) RenderAnswer(resp *chat.Response) {
	width := 72
	fmt.Fprintln(r.w)

	title := TitleStyle.Render("asklens")
	box := AnswerBoxStyle.Width(width).Render(title + "\n\n" + resp.Text)
	fmt.Fprintln(r.w, box)

	if resp.Chart != nil {
		r.renderChart(resp.Chart, width)
	}

	if len(resp.Meta.Suggestions) > 0 {
		var lines []string
		lines = append(lines, TitleStyle.Render("You could also ask"))
		for _, s := range resp.Meta.Suggestions {
			lines = append(lines, "• "+s)
		}
		fmt.Fprintln(r.w, BoxStyle.Width(width).Render(strings.Join(lines, "\n")))
	}

	var meta []string
	if len(resp.Meta.Tables) > 0 {
		meta = append(meta, fmt.Sprintf("tables: %s", strings.Join(resp.Meta.Tables, ", ")))
	}
	if resp.Meta.Rows > 0 {
		meta = append(meta, fmt.Sprintf("rows: %d", resp.Meta.Rows))
	}
	if resp.Meta.Limited {
		meta = append(meta, "row cap reached")
	}
	if len(meta) > 0 {
		fmt.Fprintln(r.w, MutedText.Render(strings.Join(meta, " · ")))
	}
	fmt.Fprintln(r.w)
}

// renderChart draws a horizontal unicode bar chart; lines and areas degrade
// to the same bars in a terminal.
func (r *TextRenderer) renderChart(c *chat.Chart, width int) {
	maxVal := 0.0
	for _, p := range c.Data {
		if v, ok := asFloat(p["y"]); ok && v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return
	}

	var lines []string
	lines = append(lines, TitleStyle.Render(fmt.Sprintf("%s %s by %s", IconChart, c.Y, c.X)))
	shown := c.Data
	if len(shown) > 12 {
		shown = shown[:12]
	}
	barWidth := 30
	for _, p := range shown {
		v, ok := asFloat(p["y"])
		if !ok {
			continue
		}
		n := int(v / maxVal * float64(barWidth))
		if n < 1 && v > 0 {
			n = 1
		}
		label := fmt.Sprintf("%v", p["x"])
		if len(label) > 16 {
			label = label[:15] + "…"
		}
		lines = append(lines, fmt.Sprintf("%-16s %s %s",
			label, ActiveText.Render(strings.Repeat("█", n)), formatValue(v)))
	}
	if len(c.Data) > len(shown) {
		lines = append(lines, MutedText.Render(fmt.Sprintf("(%d more points)", len(c.Data)-len(shown))))
	}
	fmt.Fprintln(r.w, BoxStyle.Width(width).Render(strings.Join(lines, "\n")))
}

func (r *TextRenderer) RenderSources(descs []source.Descriptor) {
	width := 72
	fmt.Fprintln(r.w)

	var lines []string
	lines = append(lines, TitleStyle.Render("asklens — Data Sources"))
	if len(descs) == 0 {
		lines = append(lines, MutedText.Render("No sources configured."))
	}
	for _, d := range descs {
		status := ActiveText.Render(IconActive + " active")
		if d.Status != source.StatusActive {
			status = WarningText.Render(IconWarning + " " + string(d.Status))
		}
		lines = append(lines, "")
		lines = append(lines, r.labelValue("Name:", d.Name))
		lines = append(lines, r.labelValue("Kind:", string(d.Kind)))
		lines = append(lines, r.labelValue("Status:", status))
		if !d.Live() {
			lines = append(lines, r.labelValue("Rows:", fmt.Sprintf("%d", d.RowCount)))
			lines = append(lines, r.labelValue("Columns:", strings.Join(d.Schema.Names, ", ")))
		}
	}
	fmt.Fprintln(r.w, BoxStyle.Width(width).Render(strings.Join(lines, "\n")))
	fmt.Fprintln(r.w)
}

// helpers

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return formatNumber(int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var result strings.Builder
	if neg {
		result.WriteRune('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
