package balance

import (
	"iter"
	"regexp"
	"strings"
)

var (
	lineCommentPattern  = regexp.MustCompile(`//.*$`)
	blockCommentPattern = regexp.MustCompile(`/\*.*?\*/`)
)

// ScanOptions controls the bracket event source.
type ScanOptions struct {
	// StartLine is the document line of the first source line. Zero means 1.
	StartLine int
	// StripComments removes // comments and single-line /* */ comments from
	// each line before scanning. String literals are never excluded.
	StripComments bool
}

// Brackets yields an event for every bracket character in src.
func Brackets(src string, opts ScanOptions) iter.Seq2[Event, error] {
	start := opts.StartLine
	if start <= 0 {
		start = 1
	}
	return func(yield func(Event, error) bool) {
		for i, line := range strings.Split(src, "\n") {
			if opts.StripComments {
				line = lineCommentPattern.ReplaceAllString(line, "")
				line = blockCommentPattern.ReplaceAllString(line, "")
			}
			lineNo := start + i
			for _, r := range line {
				var ev Event
				switch r {
				case '(', '{', '[':
					ev = Event{Kind: Open, Token: Token{Name: string(r), Family: FamilyBracket, Line: lineNo}}
				case ')', '}', ']':
					ev = Event{Kind: Close, Token: Token{Name: string(r), Family: FamilyBracket, Line: lineNo}}
				default:
					continue
				}
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

// CheckBrackets runs the matcher over the brackets of src.
func CheckBrackets(src string, opts ScanOptions) Result {
	return Match(Brackets(src, opts), BracketOptions())
}
