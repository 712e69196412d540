// Package balance implements the balanced-markup checker: a stack-based matcher
// that consumes structural open/close events (HTML tags or brackets) and
// reports every stray closer, mismatched pair and unclosed opener together
// with the line it originated on.
package balance

import "strings"

// Family identifies which kind of structural token an event carries.
type Family string

const (
	// FamilyTag is an HTML element name. Names compare case-insensitively.
	FamilyTag Family = "tag"
	// FamilyBracket is one of ( { [ and their closers. Compared exactly.
	FamilyBracket Family = "bracket"
)

// EventKind tells the matcher whether an event opens or closes a scope.
type EventKind int

const (
	// Open pushes a token onto the open stack.
	Open EventKind = iota
	// Close pops the open stack and checks identity.
	Close
)

// Token is one structural marker with the line it appeared on.
//
// For tags Name is the element name. For brackets Name is the opening
// character for Open events and the closing character for Close events.
type Token struct {
	Name   string
	Family Family
	Line   int
}

// Event is a single structural event produced by an event source.
type Event struct {
	Kind  EventKind
	Token Token
}

// OpenTag builds an Open event for an element name.
func OpenTag(name string, line int) Event {
	return Event{Kind: Open, Token: Token{Name: name, Family: FamilyTag, Line: line}}
}

// CloseTag builds a Close event for an element name.
func CloseTag(name string, line int) Event {
	return Event{Kind: Close, Token: Token{Name: name, Family: FamilyTag, Line: line}}
}

// VoidElements lists the HTML elements that never take a closing tag. They are
// never pushed and their closers are ignored.
//
//nolint:gochecknoglobals // fixed lookup table
var VoidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement reports whether name is in VoidElements, ignoring case.
func IsVoidElement(name string) bool {
	return VoidElements[strings.ToLower(name)]
}

// bracketPairs maps each closer to the opener it expects.
//
//nolint:gochecknoglobals // fixed lookup table
var bracketPairs = map[rune]rune{
	')': '(',
	'}': '{',
	']': '[',
}

// closerFor maps each opener back to its closer, used in messages.
//
//nolint:gochecknoglobals // fixed lookup table
var closerFor = map[string]string{
	"(": ")",
	"{": "}",
	"[": "]",
}

// ExpectedOpener returns the opener a closing token must match.
func ExpectedOpener(t Token) string {
	if t.Family == FamilyBracket {
		if r := []rune(t.Name); len(r) == 1 {
			if open, ok := bracketPairs[r[0]]; ok {
				return string(open)
			}
		}
	}
	return t.Name
}

// display renders a token the way it appears in source.
func display(t Token, kind EventKind) string {
	if t.Family == FamilyBracket {
		return t.Name
	}
	if kind == Close {
		return "</" + t.Name + ">"
	}
	return "<" + t.Name + ">"
}

// closingDisplay renders the closer that would match an open token.
func closingDisplay(open Token) string {
	if open.Family == FamilyBracket {
		if c, ok := closerFor[open.Name]; ok {
			return c
		}
		return open.Name
	}
	return "</" + open.Name + ">"
}
