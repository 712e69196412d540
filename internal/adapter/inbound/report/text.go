package report

import (
	"io"
	"sort"
	"strings"

	"markupcheck/internal/application/dto"
	"markupcheck/internal/domain/balance"
	"markupcheck/internal/version"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rule = "============================================================"

// TextRenderer writes the console report.
type TextRenderer struct {
	lang language.Tag
}

// NewTextRenderer creates a renderer that groups numbers the English way.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{lang: language.English}
}

// printer remembers the first write error so callers check once.
type printer struct {
	p   *message.Printer
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = p.p.Fprintf(p.w, format, args...)
}

// Render implements Renderer.
func (r *TextRenderer) Render(w io.Writer, report *dto.Report) error {
	p := &printer{p: message.NewPrinter(r.lang), w: w}

	p.printf("%s\n", rule)
	p.printf("%s report (profile %s, run %s)\n", version.ApplicationName, report.Profile, report.RunID)
	p.printf("%s\n", rule)

	for i := range report.Files {
		r.renderFile(p, &report.Files[i])
	}

	t := report.Totals
	p.printf("\nChecked %d file(s): %d passed, %d failed, %d fatal\n", t.Files, t.Passed, t.Failed, t.Fatal)
	return p.err
}

func (r *TextRenderer) renderFile(p *printer, f *dto.FileReport) {
	p.printf("\n== %s ==\n", f.Path)

	if f.Error != nil {
		p.printf("\n⚠️ FATAL: %s\n", f.Error.Error())
		for _, s := range f.Error.Suggestions {
			p.printf("   hint: %s\n", s)
		}
	}

	if f.Error == nil || f.Markup.Fatal != nil {
		renderStructure(p, f.Markup)
	}

	if len(f.Scripts) > 0 {
		p.printf("\nScripts (%s)\n", f.SyntaxChecker)
		for _, sc := range f.Scripts {
			renderScript(p, sc)
		}
	}

	if f.Inventory != nil {
		renderInventory(p, f)
	}

	if len(f.Warnings) > 0 {
		p.printf("\nWarnings\n")
		for _, wn := range f.Warnings {
			if wn.Line > 0 {
				p.printf("  ⚠️ line %d: %s\n", wn.Line, wn.Message)
			} else {
				p.printf("  ⚠️ %s\n", wn.Message)
			}
		}
	}

	if f.Stats.Bytes > 0 || f.Stats.Lines > 0 {
		p.printf("\nFile info\n")
		p.printf("  %s Lines: %d (limit %d)\n", foundMark(f.Stats.WithinLimit), f.Stats.Lines, f.Stats.MaxLines)
		p.printf("  Size: %d bytes (%.1f KB)\n", f.Stats.Bytes, f.Stats.KB)
	}

	s := f.Summary
	p.printf("\nSummary: %s %s  %d diagnostic(s), %d script diagnostic(s), %d syntax issue(s), %d warning(s)",
		verdictMark(s.Verdict), strings.ToUpper(string(s.Verdict)),
		s.Diagnostics, s.ScriptDiagnostics, s.SyntaxIssues, s.Warnings)
	if f.Inventory != nil {
		p.printf(", features %.1f%%", s.FeaturePercent)
	}
	p.printf("\n")
}

func renderStructure(p *printer, res balance.Result) {
	p.printf("\nStructure\n")
	if res.WellFormed {
		p.printf("  ✅ markup is well-formed (%d tags opened, max depth %d)\n", res.Stats.Openers, res.Stats.MaxDepth)
	}
	for _, d := range res.Diagnostics {
		p.printf("  ❌ line %d: %s\n", d.Line, d.Message)
	}
	for _, name := range unbalanced(res.Stats.Counts) {
		c := res.Stats.Counts[name]
		p.printf("  ⚠️ <%s>: %d opened vs %d closed\n", name, c.Open, c.Close)
	}
}

func renderScript(p *printer, sc dto.ScriptReport) {
	if sc.Brackets.WellFormed {
		p.printf("  ✅ script %d (line %d, %d lines): brackets balanced\n", sc.Index, sc.Line, sc.Lines)
	} else {
		p.printf("  ❌ script %d (line %d, %d lines): %d bracket diagnostic(s)\n",
			sc.Index, sc.Line, sc.Lines, len(sc.Brackets.Diagnostics))
		for _, d := range sc.Brackets.Diagnostics {
			p.printf("      line %d: %s\n", d.Line, d.Message)
		}
		for _, name := range unbalanced(sc.Brackets.Stats.Counts) {
			c := sc.Brackets.Stats.Counts[name]
			p.printf("      %s: %d vs %d\n", name, c.Open, c.Close)
		}
	}
	for _, is := range sc.SyntaxIssues {
		p.printf("  ⚠️ line %d:%d syntax: %s\n", is.Line, is.Column, is.Message)
	}
}

func renderInventory(p *printer, f *dto.FileReport) {
	inv := f.Inventory
	p.printf("\nFeatures (profile %s, threshold %.0f%%)\n", inv.Profile, inv.Threshold*100)
	for _, c := range inv.Categories {
		p.printf("  %s: %d/%d (%.1f%%)\n", c.Name, c.Found, c.Total, c.Percent)
		for _, it := range c.Items {
			label := it.Label()
			if it.Groups != nil {
				p.printf("    %s %s: %d\n", foundMark(it.Found), label, it.Count)
				for _, name := range it.GroupNames() {
					p.printf("        %s: %d\n", name, it.Groups[name])
				}
				continue
			}
			if it.Min > 0 {
				p.printf("    %s %s: %d (need %d)\n", foundMark(it.Found), label, it.Count, it.Min)
				continue
			}
			if it.Required && !it.Found {
				label += " (required)"
			}
			p.printf("    %s %s\n", foundMark(it.Found), label)
		}
	}
	p.printf("  %s Overall: %d/%d (%.1f%%)\n", foundMark(inv.Passed), inv.Found, inv.Total, inv.Percent)
	if len(inv.MissingRequired) > 0 {
		p.printf("  ❌ Missing required: %s\n", strings.Join(inv.MissingRequired, ", "))
	}

	if len(inv.Issues) > 0 {
		p.printf("\nPotential issues\n")
		for _, is := range inv.Issues {
			p.printf("  ⚠️ %s\n", is.Message)
		}
	}
}

// unbalanced lists the openers whose open and close counts differ.
func unbalanced(counts map[string]balance.Count) []string {
	var names []string
	for name, c := range counts {
		if !c.Balanced() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
