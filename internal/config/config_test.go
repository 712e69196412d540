package config

import (
	"bytes"
	"testing"
	"time"

	"markupcheck/internal/domain/errors/checkerr"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewReader([]byte(yaml))))
	}
	return v
}

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(newViper(t, ""))
	require.NoError(t, err)

	assert.Empty(t, cfg.Check.Exclude)
	cfg.Check.Exclude = nil
	assert.Equal(t, CheckConfig{
		Profile:          "generic",
		Concurrency:      4,
		Timeout:          30 * time.Second,
		JavaScriptSyntax: true,
		MaxSyntaxErrors:  20,
		Extensions:       []string{".html", ".htm"},
		IgnoreFile:       ".markupcheckignore",
	}, cfg.Check)
	assert.Equal(t, SourceConfig{MaxFileSize: 10 * 1024 * 1024, MaxTokenBytes: 1024 * 1024}, cfg.Source)
	assert.Equal(t, ReportConfig{Format: FormatText, MaxLines: 2000}, cfg.Report)
	assert.Equal(t, LogConfig{Level: "warn", Format: "text", Output: "stderr"}, cfg.Log)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestNew_YAMLOverrides(t *testing.T) {
	cfg, err := New(newViper(t, `
check:
  profile: pacman
  rules_file: rules.yaml
  fail_on_diagnostics: true
  concurrency: 8
  timeout: 5s
  strip_comments: true
  javascript_syntax: false
  extensions: [.html]
  exclude: [vendor/, "*.min.html"]
source:
  max_file_size: 2048
report:
  format: markdown
  output: report.md
  max_lines: 500
  pretty: true
log:
  level: debug
  format: json
metrics:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, "pacman", cfg.Check.Profile)
	assert.Equal(t, "rules.yaml", cfg.Check.RulesFile)
	assert.True(t, cfg.Check.FailOnDiagnostics)
	assert.Equal(t, 8, cfg.Check.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Check.Timeout)
	assert.True(t, cfg.Check.StripComments)
	assert.False(t, cfg.Check.JavaScriptSyntax)
	assert.Equal(t, []string{".html"}, cfg.Check.Extensions)
	assert.Equal(t, []string{"vendor/", "*.min.html"}, cfg.Check.Exclude)
	assert.Equal(t, int64(2048), cfg.Source.MaxFileSize)
	assert.Equal(t, FormatMarkdown, cfg.Report.Format)
	assert.Equal(t, "report.md", cfg.Report.Output)
	assert.Equal(t, 500, cfg.Report.MaxLines)
	assert.True(t, cfg.Report.Pretty)
	assert.Equal(t, "DEBUG", cfg.Log.Logging().Level)
	assert.Equal(t, "json", cfg.Log.Logging().Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MARKUPCHECK_CHECK_PROFILE", "fishing")
	t.Setenv("MARKUPCHECK_REPORT_FORMAT", "json")

	v := newViper(t, "")
	BindEnv(v)

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Equal(t, "fishing", cfg.Check.Profile)
	assert.Equal(t, FormatJSON, cfg.Report.Format)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
		want string
	}{
		{name: "empty profile", key: "check.profile", val: " ", want: "check.profile"},
		{name: "zero concurrency", key: "check.concurrency", val: 0, want: "check.concurrency"},
		{name: "zero timeout", key: "check.timeout", val: "0s", want: "check.timeout"},
		{name: "zero syntax errors", key: "check.max_syntax_errors", val: 0, want: "check.max_syntax_errors"},
		{name: "no extensions", key: "check.extensions", val: []string{}, want: "check.extensions"},
		{name: "zero file size", key: "source.max_file_size", val: 0, want: "source.max_file_size"},
		{name: "negative token size", key: "source.max_token_bytes", val: -1, want: "source.max_token_bytes"},
		{name: "zero max lines", key: "report.max_lines", val: 0, want: "report.max_lines"},
		{name: "unknown format", key: "report.format", val: "pdf", want: "report.format"},
		{name: "log to file", key: "log.output", val: "file", want: "log.output"},
		{name: "log format", key: "log.format", val: "xml", want: "log.format"},
		{name: "log level", key: "log.level", val: "trace", want: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t, "")
			v.Set(tt.key, tt.val)

			cfg, err := New(v)

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
