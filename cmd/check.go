package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"markupcheck/internal/adapter/inbound/report"
	"markupcheck/internal/adapter/outbound/filefilter"
	"markupcheck/internal/adapter/outbound/source"
	"markupcheck/internal/adapter/outbound/treesitter"
	"markupcheck/internal/application/common/logging"
	"markupcheck/internal/application/common/metrics"
	"markupcheck/internal/application/common/slogger"
	"markupcheck/internal/application/dto"
	"markupcheck/internal/application/service"
	"markupcheck/internal/config"
	"markupcheck/internal/domain/errors/checkerr"
	"markupcheck/internal/domain/feature"
	"markupcheck/internal/port/outbound"
	"markupcheck/internal/version"

	"github.com/spf13/cobra"
)

// checkCmd implements: markupcheck check [targets...] [--file path] [--profile p] [--format f].
func newCheckCmd(c *cli) *cobra.Command {
	var files []string
	var noJSSyntax bool

	cmd := &cobra.Command{
		Use:   "check [files or directories...]",
		Short: "Check HTML documents and print a report",
		Long: `Check one or more HTML documents for balanced tags, balanced script
brackets, JavaScript syntax errors and feature coverage.

A directory target is expanded into the documents below it (check.extensions),
skipping hidden directories, --exclude patterns and the patterns listed in
its .markupcheckignore file.

The exit status is 0 when every document was checked, 2 when a document
could not be read or tokenized, and 1 when --fail-on-diagnostics is set and
a structural diagnostic was found.`,
		Example: `  markupcheck check pacman.html --profile pacman
  markupcheck check --file a.html --file b.html --format json --out report.json
  markupcheck check games/ --exclude 'drafts/' --fail-on-diagnostics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noJSSyntax {
				c.cfg.Check.JavaScriptSyntax = false
			}
			return runCheck(cmd.Context(), c.cfg, append(files, args...), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&files, "file", "f", nil, "Path to an HTML document (repeatable)")
	flags.StringP("profile", "p", feature.DefaultProfile, "Feature profile (see 'markupcheck profiles')")
	flags.StringP("format", "o", config.FormatText, "Report format (text, json, markdown, html)")
	flags.String("out", "", "Write the report to this file instead of stdout")
	flags.Bool("pretty", false, "Indent JSON reports")
	flags.Bool("fail-on-diagnostics", false, "Exit with status 1 when any structural diagnostic is found")
	flags.Bool("strip-comments", false, "Remove // and single-line /* */ comments before bracket scanning")
	flags.BoolVar(&noJSSyntax, "no-js-syntax", false, "Skip the tree-sitter JavaScript syntax check")
	flags.Int("concurrency", 4, "Documents checked in parallel")
	flags.Duration("timeout", 0, "Time limit for the whole run (default from config: 30s)")
	flags.Int("max-lines", 2000, "Line limit reported for each document")
	flags.StringSlice("exclude", nil, "Gitignore-style pattern skipped when expanding directories (repeatable)")

	bindFlags(c.v, flags, map[string]string{
		"check.profile":             "profile",
		"report.format":             "format",
		"report.output":             "out",
		"report.pretty":             "pretty",
		"check.fail_on_diagnostics": "fail-on-diagnostics",
		"check.strip_comments":      "strip-comments",
		"check.concurrency":         "concurrency",
		"check.timeout":             "timeout",
		"report.max_lines":          "max-lines",
		"check.exclude":             "exclude",
	})

	return cmd
}

// runCheck performs: load profile -> validate documents -> render -> exit status.
func runCheck(ctx context.Context, cfg *config.Config, targets []string, stdout, stderr io.Writer) error {
	paths, err := expandTargets(ctx, cfg.Check, targets)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return checkerr.NewConfigError("no documents to check").
			WithSuggestion("Pass documents as arguments or with --file")
	}

	profile, err := loadProfile(cfg.Check)
	if err != nil {
		return err
	}

	if cfg.Report.Pretty && cfg.Report.Format != config.FormatJSON {
		slogger.WarnNoCtx("Pretty printing only applies to JSON reports", slogger.Field("format", cfg.Report.Format))
	}
	renderer, err := report.New(cfg.Report.Format, report.Options{Pretty: cfg.Report.Pretty})
	if err != nil {
		return err
	}

	syntax, err := newSyntaxChecker(cfg.Check)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Check.Timeout)
	defer cancel()
	ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())

	checkMetrics, collector, err := newMetrics(ctx, cfg.Metrics)
	if err != nil {
		return err
	}
	if collector != nil {
		defer func() { _ = collector.Shutdown(context.Background()) }()
	}

	svc := service.NewValidationService(
		source.NewFileReader(source.Limits{MaxFileSize: cfg.Source.MaxFileSize}),
		syntax,
		profile,
		checkMetrics,
		service.ValidationOptions{
			StripComments: cfg.Check.StripComments,
			MaxTokenBytes: cfg.Source.MaxTokenBytes,
			MaxLines:      cfg.Report.MaxLines,
			Concurrency:   cfg.Check.Concurrency,
		},
	)

	result := svc.ValidateAll(ctx, paths)

	if err := writeReport(renderer, result, cfg.Report.Output, stdout); err != nil {
		return err
	}

	if collector != nil {
		writeMetricTotals(context.WithoutCancel(ctx), collector, stderr)
	}

	return exitStatus(result, cfg.Check.FailOnDiagnostics)
}

func expandTargets(ctx context.Context, cfg config.CheckConfig, targets []string) ([]string, error) {
	discoverer, err := filefilter.NewDiscoverer(filefilter.Options{
		Extensions: cfg.Extensions,
		Exclude:    cfg.Exclude,
		IgnoreFile: cfg.IgnoreFile,
	})
	if err != nil {
		return nil, err
	}
	return discoverer.Expand(ctx, targets)
}

func loadProfile(cfg config.CheckConfig) (*feature.Profile, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Get(cfg.Profile)
}

func newSyntaxChecker(cfg config.CheckConfig) (outbound.SyntaxChecker, error) {
	if !cfg.JavaScriptSyntax {
		return treesitter.NopSyntaxChecker{}, nil
	}
	checker, err := treesitter.NewJavaScriptSyntaxChecker(cfg.MaxSyntaxErrors)
	if err != nil {
		return nil, fmt.Errorf("create JavaScript syntax checker: %w", err)
	}
	return checker, nil
}

func newMetrics(ctx context.Context, cfg config.MetricsConfig) (*metrics.CheckMetrics, *metrics.Collector, error) {
	if !cfg.Enabled {
		return metrics.NewNoopCheckMetrics(), nil, nil
	}
	collector, err := metrics.NewCollector(ctx, version.ApplicationName, version.Get().Version)
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics collector: %w", err)
	}
	m, err := metrics.NewCheckMetricsWithProvider(collector.Provider())
	if err != nil {
		_ = collector.Shutdown(ctx)
		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}
	return m, collector, nil
}

func writeReport(renderer report.Renderer, result *dto.Report, outPath string, stdout io.Writer) error {
	if outPath == "" {
		return renderer.Render(stdout, result)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return checkerr.NewIOError(outPath, err).WithOperation("write report")
	}
	if err := renderer.Render(f, result); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slogger.InfoNoCtx("Wrote report", slogger.Fields{"path": outPath})
	return nil
}

// writeMetricTotals prints the collected totals to w and logs them.
func writeMetricTotals(ctx context.Context, collector *metrics.Collector, w io.Writer) {
	totals, err := collector.Totals(ctx)
	if err != nil {
		slogger.ErrorWithError(ctx, err, "Failed to collect metrics", nil)
		return
	}
	fields := slogger.Fields{}
	fmt.Fprintln(w, "Metrics:")
	for _, t := range totals {
		fields[t.Name] = t.Value
		fmt.Fprintf(w, "  %s %g\n", t.Name, t.Value)
	}
	slogger.Info(ctx, "Validation metrics", fields)
}

func exitStatus(result *dto.Report, failOnDiagnostics bool) error {
	if result.AnyFatal() {
		return &ExitError{
			Code: ExitFatal,
			Err:  fmt.Errorf("%d of %d document(s) could not be checked", result.Totals.Fatal, result.Totals.Files),
		}
	}
	if failOnDiagnostics && result.AnyDiagnostics() {
		return &ExitError{
			Code: ExitFailure,
			Err:  fmt.Errorf("%d of %d document(s) have structural diagnostics", result.Totals.Failed, result.Totals.Files),
		}
	}
	return nil
}
