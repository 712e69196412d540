package balance

// DiagnosticKind classifies a structural finding.
type DiagnosticKind string

const (
	// KindUnmatchedCloser is a closing token seen with an empty open stack.
	KindUnmatchedCloser DiagnosticKind = "unmatched_closer"
	// KindMismatched is a closing token whose opener is not on top of the stack.
	KindMismatched DiagnosticKind = "mismatched"
	// KindUnclosed is an opener still on the stack at end of document.
	KindUnclosed DiagnosticKind = "unclosed"
	// KindParseFailure means the event source could not tokenize the input.
	KindParseFailure DiagnosticKind = "parse_failure"
)

// Diagnostic is one reported structural issue.
type Diagnostic struct {
	Line     int            `json:"line"`
	Kind     DiagnosticKind `json:"kind"`
	Message  string         `json:"message"`
	Expected string         `json:"expected,omitempty"`
	Actual   string         `json:"actual,omitempty"`
	OpenLine int            `json:"open_line,omitempty"`
}

// IsFatal reports whether the diagnostic stopped the scan.
func (d Diagnostic) IsFatal() bool {
	return d.Kind == KindParseFailure
}

// Count is the number of opening and closing events seen for one opener.
type Count struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// Balanced reports whether opens and closes are equal in number.
func (c Count) Balanced() bool {
	return c.Open == c.Close
}

// Stats summarizes one run of the matcher.
type Stats struct {
	Openers    int              `json:"openers"`
	Closers    int              `json:"closers"`
	MaxDepth   int              `json:"max_depth"`
	Recoveries int              `json:"recoveries"`
	Counts     map[string]Count `json:"counts,omitempty"`
}

// Result is the immutable outcome of a run.
type Result struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	WellFormed  bool         `json:"well_formed"`
	Fatal       *Diagnostic  `json:"fatal,omitempty"`
	Stats       Stats        `json:"stats"`
}

// CountKind returns how many diagnostics of the given kind were recorded.
func (r Result) CountKind(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
