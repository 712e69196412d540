// Package report renders validation reports for the console, for machines
// and for publishing.
package report

import (
	"io"
	"strings"

	"markupcheck/internal/application/dto"
	"markupcheck/internal/config"
	"markupcheck/internal/domain/errors/checkerr"
)

// Renderer writes a report in one output format.
type Renderer interface {
	Render(w io.Writer, report *dto.Report) error
}

// Options tunes the renderers that support it.
type Options struct {
	// Pretty indents JSON output.
	Pretty bool
}

// New returns the renderer for a format name.
func New(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case config.FormatText:
		return NewTextRenderer(), nil
	case config.FormatJSON:
		return JSONRenderer{Indent: opts.Pretty}, nil
	case config.FormatMarkdown:
		return MarkdownRenderer{}, nil
	case config.FormatHTML:
		return NewHTMLRenderer(), nil
	}
	return nil, checkerr.NewConfigError("unknown report format: "+format).
		WithDetails("available", config.Formats).
		WithSuggestion("Use one of: " + strings.Join(config.Formats, ", "))
}

func verdictMark(v dto.Verdict) string {
	switch v {
	case dto.VerdictPass:
		return "✅"
	case dto.VerdictFail:
		return "❌"
	}
	return "⚠️"
}

func foundMark(found bool) string {
	if found {
		return "✅"
	}
	return "❌"
}
