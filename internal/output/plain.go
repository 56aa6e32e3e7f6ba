package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/source"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderAnswer(resp *chat.Response) {
	fmt.Fprintf(r.w, "%s\n", resp.Text)

	if resp.Chart != nil {
		fmt.Fprintf(r.w, "\n--- Chart (%s) ---\n", resp.Chart.Type)
		for _, p := range resp.Chart.Data {
			fmt.Fprintf(r.w, "%v\t%v\n", p["x"], p["y"])
		}
	}

	if len(resp.Meta.Suggestions) > 0 {
		fmt.Fprintf(r.w, "\n--- Follow-ups ---\n")
		for _, s := range resp.Meta.Suggestions {
			fmt.Fprintf(r.w, "- %s\n", s)
		}
	}

	if len(resp.Meta.Tables) > 0 {
		fmt.Fprintf(r.w, "\nTables:  %s\n", strings.Join(resp.Meta.Tables, ", "))
		fmt.Fprintf(r.w, "Rows:    %d\n", resp.Meta.Rows)
		if resp.Meta.Limited {
			fmt.Fprintf(r.w, "Note:    row cap reached\n")
		}
	}
}

func (r *PlainRenderer) RenderSources(descs []source.Descriptor) {
	fmt.Fprintf(r.w, "=== asklens — Data Sources ===\n\n")
	if len(descs) == 0 {
		fmt.Fprintf(r.w, "No sources configured.\n")
		return
	}
	for _, d := range descs {
		fmt.Fprintf(r.w, "Name:     %s\n", d.Name)
		fmt.Fprintf(r.w, "Kind:     %s\n", d.Kind)
		fmt.Fprintf(r.w, "Status:   %s\n", d.Status)
		if !d.Live() {
			fmt.Fprintf(r.w, "Rows:     %d\n", d.RowCount)
			fmt.Fprintf(r.w, "Columns:  %s\n", strings.Join(d.Schema.Names, ", "))
		}
		fmt.Fprintln(r.w)
	}
}
