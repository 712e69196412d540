package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"markupcheck/internal/adapter/outbound/htmlscan"
	"markupcheck/internal/application/common/metrics"
	"markupcheck/internal/application/common/slogger"
	"markupcheck/internal/application/dto"
	"markupcheck/internal/domain/balance"
	"markupcheck/internal/domain/errors/checkerr"
	"markupcheck/internal/domain/feature"
	"markupcheck/internal/port/outbound"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxLines is the line budget a single-file game is expected to fit in.
const DefaultMaxLines = 2000

// ValidationOptions tunes a ValidationService.
type ValidationOptions struct {
	// StripComments removes line and single-line block comments from scripts
	// before bracket scanning.
	StripComments bool
	// MaxTokenBytes bounds a single HTML token. Zero means unbounded.
	MaxTokenBytes int
	// MaxLines is the line limit reported in file stats.
	MaxLines int
	// Concurrency bounds ValidateAll.
	Concurrency int
}

// ValidationService checks documents for balanced markup, balanced script
// brackets, JavaScript syntax errors and feature coverage.
type ValidationService struct {
	reader  outbound.SourceReader
	syntax  outbound.SyntaxChecker
	profile *feature.Profile
	metrics *metrics.CheckMetrics
	opts    ValidationOptions
}

// NewValidationService creates a ValidationService. A nil profile skips the
// feature inventory; nil metrics record nothing.
func NewValidationService(
	reader outbound.SourceReader,
	syntax outbound.SyntaxChecker,
	profile *feature.Profile,
	m *metrics.CheckMetrics,
	opts ValidationOptions,
) *ValidationService {
	if reader == nil {
		panic("reader cannot be nil")
	}
	if syntax == nil {
		panic("syntax checker cannot be nil")
	}
	if m == nil {
		m = metrics.NewNoopCheckMetrics()
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &ValidationService{
		reader:  reader,
		syntax:  syntax,
		profile: profile,
		metrics: m,
		opts:    opts,
	}
}

// Validate checks one document.
//
// Read and source validation failures return a *checkerr.CheckError and no
// report. A tokenization failure returns the partial report together with a
// parse error.
func (s *ValidationService) Validate(ctx context.Context, path string) (*dto.FileReport, error) {
	start := time.Now()
	fields := slogger.Fields{"path": path}

	if err := checkerr.TimeoutFromContext(ctx, "validate"); err != nil {
		return nil, err.WithPath(path)
	}

	src, err := s.reader.Read(ctx, path)
	if err != nil {
		s.metrics.RecordDocument(ctx, string(dto.VerdictFatal), time.Since(start))
		slogger.ErrorWithError(ctx, err, "Failed to read document", fields)
		return nil, err
	}

	report := &dto.FileReport{
		Path:          path,
		SyntaxChecker: s.syntax.Name(),
		Scripts:       []dto.ScriptReport{},
	}
	if src.BOMStripped {
		report.Warnings = append(report.Warnings, dto.Warning{
			Code:    dto.WarningBOM,
			Message: "UTF-8 byte order mark removed before checking",
			Line:    1,
		})
	}

	doc := htmlscan.Scan(src.Content, htmlscan.Options{MaxTokenBytes: s.opts.MaxTokenBytes})
	report.Stats = s.fileStats(src, doc.Lines)
	report.Outline = doc.Outline
	report.Markup = doc.Balance()

	if src.Empty() {
		report.Warnings = append(report.Warnings, dto.Warning{
			Code:    dto.WarningEmptyDocument,
			Message: "document is empty",
		})
		return s.finish(ctx, report, start), nil
	}

	if line, ferr := doc.Failure(); ferr != nil {
		report.Error = checkerr.NewParseError("HTML tokenization failed", line).
			WithPath(path).
			WithCause(ferr)
		s.finish(ctx, report, start)
		return report, report.Error
	}

	if err := checkerr.TimeoutFromContext(ctx, "validate"); err != nil {
		return nil, err.WithPath(path)
	}

	scriptText, err := s.checkScripts(ctx, report, doc)
	if err != nil {
		return nil, err
	}

	if s.profile != nil {
		inv := feature.Evaluate(s.profile, feature.Sources{
			Document: string(src.Content),
			Script:   scriptText,
		})
		report.Inventory = &inv
		s.metrics.RecordFeatureChecks(ctx, inv.Profile, inv.Found, inv.Total)
	}

	report.Warnings = append(report.Warnings, outlineWarnings(doc.Outline)...)
	if !report.Stats.WithinLimit {
		report.Warnings = append(report.Warnings, dto.Warning{
			Code:    dto.WarningLineLimit,
			Message: fmt.Sprintf("document has %d lines, limit is %d", report.Stats.Lines, report.Stats.MaxLines),
		})
	}

	return s.finish(ctx, report, start), nil
}

// checkScripts runs the bracket matcher and the syntax checker over every
// inline script and returns the scripts joined for feature matching.
func (s *ValidationService) checkScripts(ctx context.Context, report *dto.FileReport, doc *htmlscan.Document) (string, error) {
	var joined strings.Builder

	for _, sc := range doc.Scripts {
		if !sc.Inline() {
			// An empty <script></script> has nothing to check either way.
			if sc.Src != "" {
				report.Warnings = append(report.Warnings, dto.Warning{
					Code:    dto.WarningExternalScript,
					Message: fmt.Sprintf("external script %q is not checked", sc.Src),
					Line:    sc.Line,
				})
			}
			continue
		}
		if !sc.IsJavaScript() {
			continue
		}

		sr := dto.ScriptReport{
			Index: sc.Index,
			Line:  sc.Line,
			Lines: strings.Count(sc.Body, "\n") + 1,
			Brackets: balance.CheckBrackets(sc.Body, balance.ScanOptions{
				StartLine:     sc.Line,
				StripComments: s.opts.StripComments,
			}),
		}

		issues, err := s.syntax.CheckJavaScript(ctx, sc.Body, sc.Line)
		switch {
		case err == nil:
			sr.SyntaxIssues = issues
		case ctx.Err() != nil:
			return "", checkerr.TimeoutFromContext(ctx, "javascript syntax check").WithPath(report.Path)
		default:
			slogger.Warn(ctx, "JavaScript syntax check failed", slogger.Fields{
				"path":    report.Path,
				"script":  sc.Index,
				"checker": s.syntax.Name(),
				"error":   err.Error(),
			})
		}

		report.Scripts = append(report.Scripts, sr)
		joined.WriteString(sc.Body)
		joined.WriteByte('\n')
	}

	return joined.String(), nil
}

func (s *ValidationService) fileStats(src *outbound.Source, lines int) dto.FileStats {
	return dto.FileStats{
		Lines:       lines,
		Bytes:       src.Size,
		KB:          float64(src.Size) / 1024,
		MaxLines:    s.opts.MaxLines,
		WithinLimit: lines <= s.opts.MaxLines,
	}
}

// outlineWarnings reports what a complete page is expected to carry.
func outlineWarnings(o htmlscan.Outline) []dto.Warning {
	var out []dto.Warning
	for _, d := range o.DuplicateIDs {
		out = append(out, dto.Warning{
			Code:    dto.WarningDuplicateID,
			Message: fmt.Sprintf("duplicate id %q (first defined on line %d)", d.ID, d.FirstLine),
			Line:    d.Line,
		})
	}
	if !o.HasDoctype() {
		out = append(out, dto.Warning{Code: dto.WarningMissingDoctype, Message: "missing <!DOCTYPE html> declaration"})
	}
	for _, tag := range []string{"head", "body", "title"} {
		if !o.Has(tag) {
			out = append(out, dto.Warning{
				Code:    dto.WarningMissingElement,
				Message: fmt.Sprintf("missing <%s> element", tag),
			})
		}
	}
	if !o.HasCharset {
		out = append(out, dto.Warning{Code: dto.WarningMissingCharset, Message: "missing <meta charset> declaration"})
	}
	return out
}

func (s *ValidationService) finish(ctx context.Context, report *dto.FileReport, start time.Time) *dto.FileReport {
	report.Summarize()
	report.Duration = time.Since(start)

	for kind, n := range countKinds(report.Markup.Diagnostics) {
		s.metrics.RecordDiagnostics(ctx, "markup", string(kind), n)
	}
	for _, sc := range report.Scripts {
		for kind, n := range countKinds(sc.Brackets.Diagnostics) {
			s.metrics.RecordDiagnostics(ctx, "script", string(kind), n)
		}
	}
	s.metrics.RecordSyntaxIssues(ctx, report.Summary.SyntaxIssues)
	s.metrics.RecordDocument(ctx, string(report.Summary.Verdict), report.Duration)

	slogger.Info(ctx, "Document checked", slogger.Fields{
		"path":               report.Path,
		"verdict":            report.Summary.Verdict,
		"diagnostics":        report.Summary.Diagnostics,
		"script_diagnostics": report.Summary.ScriptDiagnostics,
		"syntax_issues":      report.Summary.SyntaxIssues,
		"duration_ms":        report.Duration.Milliseconds(),
	})
	slogger.Performance(ctx, "check document", report.Duration, slogger.Field("path", report.Path))
	return report
}

func countKinds(diags []balance.Diagnostic) map[balance.DiagnosticKind]int {
	counts := make(map[balance.DiagnosticKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

// ValidateAll checks every path concurrently and returns the reports in input
// order. A failure on one path is recorded on its report and never stops the
// others.
func (s *ValidationService) ValidateAll(ctx context.Context, paths []string) *dto.Report {
	report := &dto.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Files:     make([]dto.FileReport, len(paths)),
	}
	if s.profile != nil {
		report.Profile = s.profile.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			fr, err := s.Validate(gctx, path)
			if fr == nil {
				fr = &dto.FileReport{Path: path, Scripts: []dto.ScriptReport{}}
			}
			if err != nil && fr.Error == nil {
				fr.Error = asCheckError(err, path)
				fr.Summarize()
			}
			report.Files[i] = *fr
			return nil
		})
	}
	_ = g.Wait()

	report.CompletedAt = time.Now()
	report.Tally()

	slogger.Info(ctx, "Validation run completed", slogger.Fields{
		"run_id": report.RunID,
		"files":  report.Totals.Files,
		"passed": report.Totals.Passed,
		"failed": report.Totals.Failed,
		"fatal":  report.Totals.Fatal,
	})
	return report
}

func asCheckError(err error, path string) *checkerr.CheckError {
	var ce *checkerr.CheckError
	if errors.As(err, &ce) {
		return ce
	}
	return checkerr.NewIOError(path, err)
}
