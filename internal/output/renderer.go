package output

import (
	"io"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/source"
)

// Renderer defines the output interface.
type Renderer interface {
	RenderAnswer(resp *chat.Response)
	RenderSources(descs []source.Descriptor)
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format string, w io.Writer) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{w: w}
	case "markdown":
		return &MarkdownRenderer{w: w}
	case "plain":
		return &PlainRenderer{w: w}
	default:
		return &TextRenderer{w: w}
	}
}
