// Package dto holds the report types produced by a validation run and
// consumed by the renderers.
package dto

import (
	"time"

	"markupcheck/internal/adapter/outbound/htmlscan"
	"markupcheck/internal/domain/balance"
	"markupcheck/internal/domain/errors/checkerr"
	"markupcheck/internal/domain/feature"
	"markupcheck/internal/port/outbound"
)

// Verdict is the overall outcome of a document.
type Verdict string

const (
	// VerdictPass means no structural or bracket diagnostics and no fatal error.
	VerdictPass Verdict = "pass"
	// VerdictFail means at least one structural or bracket diagnostic.
	VerdictFail Verdict = "fail"
	// VerdictFatal means the document could not be read or tokenized.
	VerdictFatal Verdict = "fatal"
)

// Warning codes.
const (
	WarningDuplicateID    = "duplicate_id"
	WarningBOM            = "bom_stripped"
	WarningMissingDoctype = "missing_doctype"
	WarningMissingElement = "missing_element"
	WarningMissingCharset = "missing_charset"
	WarningLineLimit      = "line_limit"
	WarningEmptyDocument  = "empty_document"
	WarningExternalScript = "external_script"
)

// Warning is a non-structural observation about a document.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// FileStats describes the size of a document.
type FileStats struct {
	Lines       int     `json:"lines"`
	Bytes       int64   `json:"bytes"`
	KB          float64 `json:"kb"`
	MaxLines    int     `json:"max_lines"`
	WithinLimit bool    `json:"within_limit"`
}

// ScriptReport is the outcome of one inline script block.
type ScriptReport struct {
	Index        int                    `json:"index"`
	Line         int                    `json:"line"`
	Lines        int                    `json:"lines"`
	Brackets     balance.Result         `json:"brackets"`
	SyntaxIssues []outbound.SyntaxIssue `json:"syntax_issues,omitempty"`
}

// Summary condenses a file report.
type Summary struct {
	WellFormed        bool    `json:"well_formed"`
	Diagnostics       int     `json:"diagnostics"`
	ScriptDiagnostics int     `json:"script_diagnostics"`
	SyntaxIssues      int     `json:"syntax_issues"`
	Warnings          int     `json:"warnings"`
	FeaturePercent    float64 `json:"feature_percent"`
	FeaturesPassed    bool    `json:"features_passed"`
	Verdict           Verdict `json:"verdict"`
}

// FileReport is everything learned about one document.
type FileReport struct {
	Path          string               `json:"path"`
	Stats         FileStats            `json:"stats"`
	Outline       htmlscan.Outline     `json:"outline"`
	Markup        balance.Result       `json:"markup"`
	Scripts       []ScriptReport       `json:"scripts"`
	SyntaxChecker string               `json:"syntax_checker"`
	Inventory     *feature.Inventory   `json:"inventory,omitempty"`
	Warnings      []Warning            `json:"warnings,omitempty"`
	Error         *checkerr.CheckError `json:"error,omitempty"`
	Summary       Summary              `json:"summary"`
	Duration      time.Duration        `json:"duration_ns"`
}

// Fatal reports whether the document could not be fully checked.
func (r *FileReport) Fatal() bool {
	return r.Summary.Verdict == VerdictFatal
}

// HasDiagnostics reports whether any structural or bracket diagnostic exists.
func (r *FileReport) HasDiagnostics() bool {
	return r.Summary.Diagnostics > 0 || r.Summary.ScriptDiagnostics > 0
}

// Summarize computes the summary from the rest of the report.
func (r *FileReport) Summarize() {
	s := Summary{
		Diagnostics: len(r.Markup.Diagnostics),
		Warnings:    len(r.Warnings),
	}
	for _, sc := range r.Scripts {
		s.ScriptDiagnostics += len(sc.Brackets.Diagnostics)
		s.SyntaxIssues += len(sc.SyntaxIssues)
	}
	if r.Inventory != nil {
		s.FeaturePercent = r.Inventory.Percent
		s.FeaturesPassed = r.Inventory.Passed
	}
	s.WellFormed = s.Diagnostics == 0 && s.ScriptDiagnostics == 0 && r.Error == nil

	switch {
	case r.Error != nil || r.Markup.Fatal != nil:
		s.Verdict = VerdictFatal
		s.WellFormed = false
	case s.WellFormed:
		s.Verdict = VerdictPass
	default:
		s.Verdict = VerdictFail
	}
	r.Summary = s
}

// Report is the result of one invocation over any number of documents.
type Report struct {
	RunID       string       `json:"run_id"`
	Profile     string       `json:"profile"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Files       []FileReport `json:"files"`
	Totals      ReportTotals `json:"totals"`
}

// ReportTotals counts verdicts across files.
type ReportTotals struct {
	Files  int `json:"files"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Fatal  int `json:"fatal"`
}

// Tally recomputes the totals from the file reports.
func (r *Report) Tally() {
	t := ReportTotals{Files: len(r.Files)}
	for i := range r.Files {
		switch r.Files[i].Summary.Verdict {
		case VerdictPass:
			t.Passed++
		case VerdictFail:
			t.Failed++
		case VerdictFatal:
			t.Fatal++
		}
	}
	r.Totals = t
}

// AnyFatal reports whether any file could not be checked.
func (r *Report) AnyFatal() bool {
	return r.Totals.Fatal > 0
}

// AnyDiagnostics reports whether any file has structural diagnostics.
func (r *Report) AnyDiagnostics() bool {
	for i := range r.Files {
		if r.Files[i].HasDiagnostics() {
			return true
		}
	}
	return false
}
