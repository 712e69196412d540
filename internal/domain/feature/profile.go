// Package feature evaluates declarative rule tables against a game document.
//
// A Profile groups Rules (things a complete game is expected to contain) and
// Issues (heuristics for likely problems). Profiles are data: the built-in
// ones are embedded YAML and a rules file can add or replace them.
package feature

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"markupcheck/internal/domain/errors/checkerr"
)

// Kind selects how a rule pattern is matched.
type Kind string

const (
	KindRegex     Kind = "regex"
	KindContains  Kind = "contains"
	KindElementID Kind = "element_id"
	KindFunction  Kind = "function"
	KindWord      Kind = "word"
	KindCount     Kind = "count"
	// KindGroup tallies the values of the pattern's first capture group.
	KindGroup Kind = "group"
	// KindLine counts lines, for issues only.
	KindLine Kind = "line"
)

// Scope selects which text a pattern is matched against.
type Scope string

const (
	// ScopeDocument matches against the whole file.
	ScopeDocument Scope = "document"
	// ScopeScript matches against the concatenated inline scripts.
	ScopeScript Scope = "script"
)

// Severity of an issue finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule is one expected feature.
type Rule struct {
	Name          string `yaml:"name"          json:"name"`
	Category      string `yaml:"category"      json:"category"`
	Kind          Kind   `yaml:"kind"          json:"kind"`
	Pattern       string `yaml:"pattern"       json:"pattern"`
	Description   string `yaml:"description"   json:"description,omitempty"`
	Scope         Scope  `yaml:"scope"         json:"scope"`
	Required      bool   `yaml:"required"      json:"required,omitempty"`
	Min           int    `yaml:"min"           json:"min,omitempty"`
	CaseSensitive bool   `yaml:"case_sensitive" json:"case_sensitive,omitempty"`
	// Extract splits each captured value of a group rule into the values
	// matched by this expression.
	Extract string `yaml:"extract" json:"extract,omitempty"`

	matchers  []*regexp.Regexp
	extractor *regexp.Regexp
}

// Issue is a heuristic that flags a likely problem when the number of
// pattern occurrences is above Above or below Below. Unless suppresses the
// finding when that literal text is present.
//
// Line issues count the lines that match Pattern and not Except, after a
// trailing // comment is cut and the line is trimmed. Patterns are
// case-insensitive unless CaseSensitive is set, as for rules.
type Issue struct {
	Name          string   `yaml:"name"           json:"name"`
	Kind          Kind     `yaml:"kind"           json:"kind"`
	Pattern       string   `yaml:"pattern"        json:"pattern"`
	Except        string   `yaml:"except"         json:"except,omitempty"`
	Above         int      `yaml:"above"          json:"above,omitempty"`
	Below         int      `yaml:"below"          json:"below,omitempty"`
	Unless        string   `yaml:"unless"         json:"unless,omitempty"`
	Message       string   `yaml:"message"        json:"message"`
	Scope         Scope    `yaml:"scope"          json:"scope"`
	Severity      Severity `yaml:"severity"       json:"severity"`
	CaseSensitive bool     `yaml:"case_sensitive" json:"case_sensitive,omitempty"`

	matcher *regexp.Regexp
	except  *regexp.Regexp
}

// Profile is a named rule set.
type Profile struct {
	Name          string  `yaml:"name"           json:"name"`
	Description   string  `yaml:"description"    json:"description,omitempty"`
	PassThreshold float64 `yaml:"pass_threshold" json:"pass_threshold"`
	Rules         []Rule  `yaml:"rules"          json:"rules"`
	Issues        []Issue `yaml:"issues"         json:"issues,omitempty"`
}

// Categories returns the rule categories in first-seen order.
func (p *Profile) Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range p.Rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Compile applies defaults and compiles every pattern. It must be called
// before Evaluate; profiles obtained from a Catalog are already compiled.
func (p *Profile) Compile() error {
	if strings.TrimSpace(p.Name) == "" {
		return checkerr.NewConfigError("profile name is required")
	}
	if p.PassThreshold < 0 || p.PassThreshold > 1 {
		return checkerr.NewConfigError(fmt.Sprintf("profile %q: pass_threshold must be between 0 and 1", p.Name))
	}

	names := make(map[string]bool, len(p.Rules))
	for i := range p.Rules {
		r := &p.Rules[i]
		if names[r.Name] {
			return checkerr.NewConfigError(fmt.Sprintf("profile %q: duplicate rule %q", p.Name, r.Name))
		}
		names[r.Name] = true
		if err := r.compile(); err != nil {
			return checkerr.NewConfigError(fmt.Sprintf("profile %q rule %q: %v", p.Name, r.Name, err))
		}
	}
	for i := range p.Issues {
		is := &p.Issues[i]
		if err := is.compile(); err != nil {
			return checkerr.NewConfigError(fmt.Sprintf("profile %q issue %q: %v", p.Name, is.Name, err))
		}
	}
	return nil
}

func (r *Rule) compile() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Pattern == "" {
		return errors.New("pattern is required")
	}
	if r.Kind == "" {
		r.Kind = KindRegex
	}
	if r.Scope == "" {
		r.Scope = ScopeDocument
	}
	if r.Category == "" {
		r.Category = "General"
	}
	if r.Scope != ScopeDocument && r.Scope != ScopeScript {
		return fmt.Errorf("unknown scope %q", r.Scope)
	}

	quoted := regexp.QuoteMeta(r.Pattern)
	var exprs []string
	switch r.Kind {
	case KindContains:
		return nil
	case KindElementID:
		exprs = []string{`\bid\s*=\s*["']` + quoted + `["']`}
	case KindFunction:
		exprs = []string{
			`\bfunction\s+` + quoted + `\s*\(`,
			`\b` + quoted + `\s*=\s*(async\s+)?function\b`,
			`\b(const|let|var)\s+` + quoted + `\s*=`,
			`\b` + quoted + `\s*:`,
			`(?m)^\s*(async\s+)?` + quoted + `\s*\([^)]*\)\s*\{`,
		}
	case KindWord:
		exprs = []string{`(?i)\b` + quoted + `\b`}
	case KindRegex, KindCount, KindGroup:
		exprs = []string{foldCase(r.Pattern, r.CaseSensitive)}
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}

	r.matchers = nil
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		r.matchers = append(r.matchers, re)
	}

	r.extractor = nil
	switch {
	case r.Kind != KindGroup:
		if r.Extract != "" {
			return errors.New("extract is only valid for group rules")
		}
	case r.matchers[0].NumSubexp() < 1:
		return errors.New("group rules need a capture group")
	case r.Extract != "":
		re, err := regexp.Compile(foldCase(r.Extract, r.CaseSensitive))
		if err != nil {
			return fmt.Errorf("invalid extract pattern: %w", err)
		}
		r.extractor = re
	}
	return nil
}

func foldCase(expr string, caseSensitive bool) string {
	if caseSensitive {
		return expr
	}
	return "(?i)" + expr
}

func (is *Issue) compile() error {
	if is.Name == "" || is.Pattern == "" {
		return errors.New("name and pattern are required")
	}
	if is.Kind == "" {
		is.Kind = KindRegex
	}
	if is.Scope == "" {
		is.Scope = ScopeScript
	}
	if is.Severity == "" {
		is.Severity = SeverityWarning
	}
	if is.Message == "" {
		is.Message = is.Name
	}
	switch is.Kind {
	case KindContains:
		return nil
	case KindRegex, KindLine:
	default:
		return fmt.Errorf("issues support only regex, contains and line, got %q", is.Kind)
	}

	re, err := regexp.Compile(foldCase(is.Pattern, is.CaseSensitive))
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	is.matcher = re

	is.except = nil
	if is.Except != "" {
		if is.Kind != KindLine {
			return errors.New("except is only valid for line issues")
		}
		if is.except, err = regexp.Compile(foldCase(is.Except, is.CaseSensitive)); err != nil {
			return fmt.Errorf("invalid except pattern: %w", err)
		}
	}
	return nil
}
