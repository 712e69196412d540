package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"markupcheck/internal/application/common/logging"
	"markupcheck/internal/domain/errors/checkerr"

	"github.com/spf13/viper"
)

// Report formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Formats lists the supported report formats.
//
//nolint:gochecknoglobals // fixed list
var Formats = []string{FormatText, FormatJSON, FormatMarkdown, FormatHTML}

// Config holds the complete application configuration.
type Config struct {
	Check   CheckConfig   `mapstructure:"check"`
	Source  SourceConfig  `mapstructure:"source"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CheckConfig holds validation settings.
type CheckConfig struct {
	Profile           string        `mapstructure:"profile"`
	RulesFile         string        `mapstructure:"rules_file"`
	FailOnDiagnostics bool          `mapstructure:"fail_on_diagnostics"`
	Concurrency       int           `mapstructure:"concurrency"`
	Timeout           time.Duration `mapstructure:"timeout"`
	StripComments     bool          `mapstructure:"strip_comments"`
	JavaScriptSyntax  bool          `mapstructure:"javascript_syntax"`
	MaxSyntaxErrors   int           `mapstructure:"max_syntax_errors"`

	// Extensions, Exclude and IgnoreFile control how directory targets
	// are expanded into documents.
	Extensions []string `mapstructure:"extensions"`
	Exclude    []string `mapstructure:"exclude"`
	IgnoreFile string   `mapstructure:"ignore_file"`
}

// SourceConfig holds limits applied while reading documents.
type SourceConfig struct {
	MaxFileSize   int64 `mapstructure:"max_file_size"`
	MaxTokenBytes int   `mapstructure:"max_token_bytes"`
}

// ReportConfig holds report settings.
type ReportConfig struct {
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	MaxLines int    `mapstructure:"max_lines"`
	// Pretty indents JSON reports.
	Pretty bool `mapstructure:"pretty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Logging converts the section to a logger configuration.
func (l LogConfig) Logging() logging.Config {
	return logging.Config{Level: strings.ToUpper(l.Level), Format: l.Format, Output: l.Output}
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EnvPrefix prefixes environment overrides, e.g. MARKUPCHECK_CHECK_PROFILE.
const EnvPrefix = "MARKUPCHECK"

// BindEnv makes every key overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// Check defaults
	v.SetDefault("check.profile", "generic")
	v.SetDefault("check.rules_file", "")
	v.SetDefault("check.fail_on_diagnostics", false)
	v.SetDefault("check.concurrency", 4)
	v.SetDefault("check.timeout", "30s")
	v.SetDefault("check.strip_comments", false)
	v.SetDefault("check.javascript_syntax", true)
	v.SetDefault("check.max_syntax_errors", 20)
	v.SetDefault("check.extensions", []string{".html", ".htm"})
	v.SetDefault("check.exclude", []string{})
	v.SetDefault("check.ignore_file", ".markupcheckignore")

	// Source defaults
	v.SetDefault("source.max_file_size", 10*1024*1024)
	v.SetDefault("source.max_token_bytes", 1024*1024)

	// Report defaults
	v.SetDefault("report.format", FormatText)
	v.SetDefault("report.output", "")
	v.SetDefault("report.max_lines", 2000)
	v.SetDefault("report.pretty", false)

	// Logging defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("metrics.enabled", false)
}

// New creates a validated Config from Viper.
func New(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, checkerr.NewConfigError("unable to decode config").WithCause(err)
	}

	if err := config.Validate(); err != nil {
		return nil, checkerr.NewConfigError("invalid configuration").WithCause(err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Check.Profile) == "" {
		return errors.New("check.profile is required")
	}

	// Validate numeric ranges
	if c.Check.Concurrency < 1 {
		return errors.New("check.concurrency must be at least 1")
	}
	if c.Check.Timeout <= 0 {
		return errors.New("check.timeout must be positive")
	}
	if c.Check.MaxSyntaxErrors < 1 {
		return errors.New("check.max_syntax_errors must be at least 1")
	}
	if len(c.Check.Extensions) == 0 {
		return errors.New("check.extensions must list at least one extension")
	}
	if c.Source.MaxFileSize < 1 {
		return errors.New("source.max_file_size must be at least 1")
	}
	if c.Source.MaxTokenBytes < 0 {
		return errors.New("source.max_token_bytes must not be negative")
	}
	if c.Report.MaxLines < 1 {
		return errors.New("report.max_lines must be at least 1")
	}

	if !slices.Contains(Formats, c.Report.Format) {
		return fmt.Errorf("report.format must be one of %s", strings.Join(Formats, ", "))
	}

	switch c.Log.Output {
	case "stdout", "stderr", "discard":
	default:
		return errors.New("log.output must be stdout, stderr or discard")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.New("log.format must be json or text")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be debug, info, warn or error")
	}

	return nil
}
