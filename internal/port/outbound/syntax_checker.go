package outbound

import "context"

// SyntaxChecker reports syntax errors in an inline script.
type SyntaxChecker interface {
	// CheckJavaScript parses body and returns its syntax issues. startLine is
	// the document line body starts on, so issues carry document lines.
	CheckJavaScript(ctx context.Context, body string, startLine int) ([]SyntaxIssue, error)

	// Name identifies the checker in reports and logs.
	Name() string
}

// SyntaxIssue is one syntax error found by a SyntaxChecker.
type SyntaxIssue struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Snippet string `json:"snippet,omitempty"`
}
