// Package treesitter checks inline scripts with tree-sitter grammars.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"markupcheck/internal/application/common/slogger"
	"markupcheck/internal/port/outbound"

	"github.com/alexaandru/go-sitter-forest/javascript"
	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
)

const (
	errorNodeType = "ERROR"

	// DefaultMaxIssues bounds the issues reported per script.
	DefaultMaxIssues = 20

	maxSnippetLength = 50
)

// JavaScriptSyntaxChecker reports ERROR and MISSING nodes of the tree-sitter
// JavaScript grammar.
type JavaScriptSyntaxChecker struct {
	mu        sync.Mutex
	parser    *tree_sitter.Parser
	maxIssues int
}

var _ outbound.SyntaxChecker = (*JavaScriptSyntaxChecker)(nil)

// NewJavaScriptSyntaxChecker creates a checker reporting at most maxIssues
// issues per script. A non-positive value selects DefaultMaxIssues.
func NewJavaScriptSyntaxChecker(maxIssues int) (*JavaScriptSyntaxChecker, error) {
	parser := tree_sitter.NewParser()
	jsLang := tree_sitter.NewLanguage(javascript.GetLanguage())

	if !parser.SetLanguage(jsLang) {
		return nil, errors.New("failed to set JavaScript language in tree-sitter parser")
	}
	if maxIssues <= 0 {
		maxIssues = DefaultMaxIssues
	}

	return &JavaScriptSyntaxChecker{parser: parser, maxIssues: maxIssues}, nil
}

// Name implements outbound.SyntaxChecker.
func (c *JavaScriptSyntaxChecker) Name() string {
	return "tree-sitter-javascript"
}

// CheckJavaScript implements outbound.SyntaxChecker.
func (c *JavaScriptSyntaxChecker) CheckJavaScript(
	ctx context.Context,
	body string,
	startLine int,
) ([]outbound.SyntaxIssue, error) {
	source := []byte(body)

	// Parsers are not safe for concurrent use.
	c.mu.Lock()
	tree, err := c.parser.ParseString(ctx, nil, source)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parsing failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var issues []outbound.SyntaxIssue
	c.collect(root, source, startLine, &issues)

	slogger.Debug(ctx, "JavaScript syntax issues found", slogger.Fields{
		"start_line": startLine,
		"issues":     len(issues),
	})
	return issues, nil
}

// collect walks the tree in document order. ERROR subtrees are reported once
// and not descended into.
func (c *JavaScriptSyntaxChecker) collect(
	node tree_sitter.Node,
	source []byte,
	startLine int,
	issues *[]outbound.SyntaxIssue,
) {
	if len(*issues) >= c.maxIssues {
		return
	}

	if node.IsMissing() || node.Type() == errorNodeType {
		point := node.StartPoint()
		issue := outbound.SyntaxIssue{
			Line:   startLine + int(point.Row),
			Column: int(point.Column) + 1,
		}
		if node.IsMissing() {
			issue.Message = fmt.Sprintf("missing %q", node.Type())
		} else {
			issue.Snippet = snippet(node.Content(source))
			issue.Message = "unexpected token"
			if issue.Snippet != "" {
				issue.Message = fmt.Sprintf("unexpected token '%s'", issue.Snippet)
			}
		}
		*issues = append(*issues, issue)
		return
	}

	for i := range node.ChildCount() {
		child := node.Child(i)
		if child.IsNull() {
			continue
		}
		c.collect(child, source, startLine, issues)
	}
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSnippetLength {
		return string(r[:maxSnippetLength]) + "..."
	}
	return s
}

// NopSyntaxChecker is used when JavaScript syntax checking is disabled.
type NopSyntaxChecker struct{}

var _ outbound.SyntaxChecker = NopSyntaxChecker{}

// Name implements outbound.SyntaxChecker.
func (NopSyntaxChecker) Name() string { return "disabled" }

// CheckJavaScript implements outbound.SyntaxChecker.
func (NopSyntaxChecker) CheckJavaScript(context.Context, string, int) ([]outbound.SyntaxIssue, error) {
	return nil, nil
}
