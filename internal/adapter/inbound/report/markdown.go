package report

import (
	"fmt"
	"io"
	"strings"

	"markupcheck/internal/application/dto"
	"markupcheck/internal/domain/balance"
	"markupcheck/internal/version"
)

// MarkdownRenderer writes the report as GitHub flavored Markdown.
type MarkdownRenderer struct{}

// Render implements Renderer.
func (MarkdownRenderer) Render(w io.Writer, report *dto.Report) error {
	_, err := io.WriteString(w, markdown(report))
	return err
}

// markdown builds the whole document. Text from the checked files is escaped
// so tag names never turn into raw HTML.
func markdown(report *dto.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s report\n\n", version.ApplicationName)
	fmt.Fprintf(&b, "- Profile: `%s`\n", report.Profile)
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	t := report.Totals
	fmt.Fprintf(&b, "- Files: %d (%d passed, %d failed, %d fatal)\n", t.Files, t.Passed, t.Failed, t.Fatal)

	for i := range report.Files {
		markdownFile(&b, &report.Files[i])
	}
	return b.String()
}

func markdownFile(b *strings.Builder, f *dto.FileReport) {
	s := f.Summary
	fmt.Fprintf(b, "\n## %s %s\n\n", verdictMark(s.Verdict), escape(f.Path))
	fmt.Fprintf(b, "**Verdict:** %s. %d diagnostic(s), %d script diagnostic(s), %d syntax issue(s), %d warning(s).\n",
		strings.ToUpper(string(s.Verdict)), s.Diagnostics, s.ScriptDiagnostics, s.SyntaxIssues, s.Warnings)

	if f.Error != nil {
		fmt.Fprintf(b, "\n> ⚠️ **Fatal:** %s\n", escape(f.Error.Error()))
	}

	if f.Error == nil || f.Markup.Fatal != nil {
		b.WriteString("\n### Structure\n\n")
		markdownDiagnostics(b, f.Markup.Diagnostics, "Markup is well-formed.")
	}

	if len(f.Scripts) > 0 {
		b.WriteString("\n### Scripts\n\n")
		b.WriteString("| Script | Line | Lines | Brackets | Syntax issues |\n")
		b.WriteString("|---|---:|---:|---|---:|\n")
		for _, sc := range f.Scripts {
			fmt.Fprintf(b, "| %d | %d | %d | %s %d | %d |\n",
				sc.Index, sc.Line, sc.Lines, foundMark(sc.Brackets.WellFormed),
				len(sc.Brackets.Diagnostics), len(sc.SyntaxIssues))
		}
		for _, sc := range f.Scripts {
			if len(sc.Brackets.Diagnostics) > 0 {
				fmt.Fprintf(b, "\nScript %d brackets:\n\n", sc.Index)
				markdownDiagnostics(b, sc.Brackets.Diagnostics, "")
			}
			if len(sc.SyntaxIssues) > 0 {
				fmt.Fprintf(b, "\nScript %d syntax:\n\n", sc.Index)
				for _, is := range sc.SyntaxIssues {
					fmt.Fprintf(b, "- line %d:%d %s\n", is.Line, is.Column, escape(is.Message))
				}
			}
		}
	}

	if inv := f.Inventory; inv != nil {
		fmt.Fprintf(b, "\n### Features (%s)\n\n", escape(inv.Profile))
		b.WriteString("| Category | Found | Total | Percent |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for _, c := range inv.Categories {
			fmt.Fprintf(b, "| %s | %d | %d | %.1f%% |\n", escape(c.Name), c.Found, c.Total, c.Percent)
		}
		fmt.Fprintf(b, "| **Overall** %s | %d | %d | %.1f%% |\n", foundMark(inv.Passed), inv.Found, inv.Total, inv.Percent)

		var missing []string
		for _, c := range inv.Categories {
			for _, it := range c.Items {
				if !it.Found {
					missing = append(missing, escape(it.Label()))
				}
			}
		}
		if len(missing) > 0 {
			b.WriteString("\nMissing:\n\n")
			for _, m := range missing {
				fmt.Fprintf(b, "- %s\n", m)
			}
		}

		for _, c := range inv.Categories {
			for _, it := range c.Items {
				if len(it.Groups) == 0 {
					continue
				}
				parts := make([]string, 0, len(it.Groups))
				for _, name := range it.GroupNames() {
					parts = append(parts, fmt.Sprintf("%s: %d", escape(name), it.Groups[name]))
				}
				fmt.Fprintf(b, "\n**%s** (%d): %s\n", escape(it.Label()), it.Count, strings.Join(parts, ", "))
			}
		}

		if len(inv.Issues) > 0 {
			b.WriteString("\n### Potential issues\n\n")
			for _, is := range inv.Issues {
				fmt.Fprintf(b, "- ⚠️ %s\n", escape(is.Message))
			}
		}
	}

	if len(f.Warnings) > 0 {
		b.WriteString("\n### Warnings\n\n")
		for _, wn := range f.Warnings {
			if wn.Line > 0 {
				fmt.Fprintf(b, "- line %d: %s\n", wn.Line, escape(wn.Message))
			} else {
				fmt.Fprintf(b, "- %s\n", escape(wn.Message))
			}
		}
	}

	if f.Stats.Lines > 0 {
		b.WriteString("\n### File info\n\n")
		fmt.Fprintf(b, "- Lines: %d (limit %d) %s\n", f.Stats.Lines, f.Stats.MaxLines, foundMark(f.Stats.WithinLimit))
		fmt.Fprintf(b, "- Size: %d bytes (%.1f KB)\n", f.Stats.Bytes, f.Stats.KB)
	}
}

func markdownDiagnostics(b *strings.Builder, diags []balance.Diagnostic, clean string) {
	if len(diags) == 0 {
		if clean != "" {
			fmt.Fprintf(b, "✅ %s\n", clean)
		}
		return
	}
	b.WriteString("| Line | Kind | Message |\n")
	b.WriteString("|---:|---|---|\n")
	for _, d := range diags {
		fmt.Fprintf(b, "| %d | %s | %s |\n", d.Line, escape(string(d.Kind)), escape(d.Message))
	}
}

//nolint:gochecknoglobals // fixed replacer
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"<", `\<`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
