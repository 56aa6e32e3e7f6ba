package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/source"
)

// MarkdownRenderer produces markdown output for documentation/tickets.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderAnswer(resp *chat.Response) {
	fmt.Fprintf(r.w, "# asklens\n\n")
	fmt.Fprintf(r.w, "%s\n\n", resp.Text)

	if resp.Chart != nil {
		fmt.Fprintf(r.w, "## %s Chart (%s)\n\n", IconChart, resp.Chart.Type)
		fmt.Fprintf(r.w, "| %s | %s |\n|---|---|\n", resp.Chart.X, resp.Chart.Y)
		for _, p := range resp.Chart.Data {
			fmt.Fprintf(r.w, "| %v | %v |\n", p["x"], p["y"])
		}
		fmt.Fprintln(r.w)
	}

	if len(resp.Meta.Suggestions) > 0 {
		fmt.Fprintf(r.w, "## Follow-ups\n\n")
		for _, s := range resp.Meta.Suggestions {
			fmt.Fprintf(r.w, "- %s\n", s)
		}
		fmt.Fprintln(r.w)
	}

	if len(resp.Meta.Tables) > 0 {
		fmt.Fprintf(r.w, "---\n\n*Tables: %s · %d rows*\n", strings.Join(resp.Meta.Tables, ", "), resp.Meta.Rows)
	}
}

func (r *MarkdownRenderer) RenderSources(descs []source.Descriptor) {
	fmt.Fprintf(r.w, "# asklens — Data Sources\n\n")
	if len(descs) == 0 {
		fmt.Fprintf(r.w, "No sources configured.\n")
		return
	}
	fmt.Fprintf(r.w, "| Name | Kind | Status | Rows |\n|---|---|---|---|\n")
	for _, d := range descs {
		rows := "—"
		if !d.Live() {
			rows = fmt.Sprintf("%d", d.RowCount)
		}
		fmt.Fprintf(r.w, "| %s | %s | %s | %s |\n", d.Name, d.Kind, d.Status, rows)
	}
}
