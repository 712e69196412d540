package report

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"markupcheck/internal/application/dto"
	"markupcheck/internal/version"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#222}
table{border-collapse:collapse;margin:.5rem 0}
th,td{border:1px solid #ccc;padding:.25rem .5rem}
th{background:#f4f4f4}
code{background:#f4f4f4;padding:0 .2rem}`

// HTMLRenderer converts the Markdown report into a standalone page.
type HTMLRenderer struct {
	md goldmark.Markdown
}

// NewHTMLRenderer creates a renderer with GitHub flavored tables.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(w io.Writer, report *dto.Report) error {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown(report)), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	title := html.EscapeString(fmt.Sprintf("%s report %s", version.ApplicationName, report.RunID))
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s
</style>
</head>
<body>
%s</body>
</html>
`, title, pageStyle, body.String())
	return err
}
