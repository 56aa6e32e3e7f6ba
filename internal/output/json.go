package output

import (
	"encoding/json"
	"io"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/source"
)

// JSONRenderer produces machine-readable JSON output.
type JSONRenderer struct {
	w io.Writer
}

func (r *JSONRenderer) RenderAnswer(resp *chat.Response) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(resp)
}

type jsonSource struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Status   string   `json:"status"`
	RowCount int      `json:"row_count,omitempty"`
	Columns  []string `json:"columns,omitempty"`
}

func (r *JSONRenderer) RenderSources(descs []source.Descriptor) {
	out := make([]jsonSource, 0, len(descs))
	for _, d := range descs {
		js := jsonSource{
			ID:     d.ID,
			Name:   d.Name,
			Kind:   string(d.Kind),
			Status: string(d.Status),
		}
		if !d.Live() {
			js.RowCount = d.RowCount
			js.Columns = d.Schema.Names
		}
		out = append(out, js)
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
