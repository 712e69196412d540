package balance

import (
	"fmt"
	"iter"
	"strings"
)

// Options tunes how the matcher compares and filters tokens.
type Options struct {
	// FoldCase compares names case-insensitively (HTML tags).
	FoldCase bool
	// Void names are never pushed and their closers are ignored.
	Void map[string]bool
	// Label names the token family in messages ("tag", "bracket").
	Label string
}

// TagOptions returns the options used for HTML element matching.
func TagOptions() Options {
	return Options{FoldCase: true, Void: VoidElements, Label: "tag"}
}

// BracketOptions returns the options used for bracket matching.
func BracketOptions() Options {
	return Options{Label: "bracket"}
}

// matcher holds the state of a single run. It never outlives Match.
type matcher struct {
	opts     Options
	stack    []Token
	diags    []Diagnostic
	stats    Stats
	lastLine int
}

// Match consumes events in order and returns the diagnostics they produce.
//
// A non-nil error from the sequence is recorded as a single fatal
// parse_failure diagnostic; scanning stops there and openers still on the
// stack are not reported, since the rest of the document was never seen.
func Match(events iter.Seq2[Event, error], opts Options) Result {
	if opts.Label == "" {
		opts.Label = "token"
	}
	m := &matcher{
		opts:     opts,
		stats:    Stats{Counts: make(map[string]Count)},
		lastLine: 1,
	}

	for ev, err := range events {
		if err != nil {
			return m.fail(err)
		}
		m.lastLine = ev.Token.Line
		switch ev.Kind {
		case Open:
			m.open(ev.Token)
		case Close:
			m.close(ev.Token)
		}
	}

	for _, t := range m.stack {
		m.diags = append(m.diags, Diagnostic{
			Line:     t.Line,
			Kind:     KindUnclosed,
			Message:  fmt.Sprintf("unclosed %s %s", m.opts.Label, display(t, Open)),
			Expected: closingDisplay(t),
			OpenLine: t.Line,
		})
	}
	return m.result()
}

// MatchEvents is Match over an already materialized slice of events.
func MatchEvents(events []Event, opts Options) Result {
	return Match(func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}, opts)
}

func (m *matcher) key(name string) string {
	if m.opts.FoldCase {
		return strings.ToLower(name)
	}
	return name
}

func (m *matcher) isVoid(name string) bool {
	return m.opts.Void != nil && m.opts.Void[m.key(name)]
}

func (m *matcher) open(t Token) {
	if m.isVoid(t.Name) {
		return
	}
	t.Name = m.key(t.Name)
	m.stack = append(m.stack, t)
	m.stats.Openers++
	c := m.stats.Counts[t.Name]
	c.Open++
	m.stats.Counts[t.Name] = c
	if len(m.stack) > m.stats.MaxDepth {
		m.stats.MaxDepth = len(m.stack)
	}
}

func (m *matcher) close(t Token) {
	if m.isVoid(t.Name) {
		return
	}
	t.Name = m.key(t.Name)
	want := m.key(ExpectedOpener(t))
	m.stats.Closers++
	c := m.stats.Counts[want]
	c.Close++
	m.stats.Counts[want] = c

	if len(m.stack) == 0 {
		m.diags = append(m.diags, Diagnostic{
			Line:    t.Line,
			Kind:    KindUnmatchedCloser,
			Message: fmt.Sprintf("closing %s %s has no matching opener", m.opts.Label, display(t, Close)),
			Actual:  display(t, Close),
		})
		return
	}

	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	if top.Name == want {
		return
	}

	m.diags = append(m.diags, Diagnostic{
		Line: t.Line,
		Kind: KindMismatched,
		Message: fmt.Sprintf("mismatched %s: expected %s (opened at line %d), got %s",
			m.opts.Label, closingDisplay(top), top.Line, display(t, Close)),
		Expected: closingDisplay(top),
		Actual:   display(t, Close),
		OpenLine: top.Line,
	})

	// Treat the mismatch as a misnested or skipped token: drop the nearest
	// opener the closer was meant for so later pairs still line up.
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].Name == want {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			m.stats.Recoveries++
			break
		}
	}
}

func (m *matcher) fail(err error) Result {
	d := Diagnostic{
		Line:    m.lastLine,
		Kind:    KindParseFailure,
		Message: fmt.Sprintf("parse failure: %v", err),
	}
	m.diags = append(m.diags, d)
	res := m.result()
	res.Fatal = &d
	return res
}

func (m *matcher) result() Result {
	diags := make([]Diagnostic, len(m.diags))
	copy(diags, m.diags)
	return Result{
		Diagnostics: diags,
		WellFormed:  len(diags) == 0,
		Stats:       m.stats,
	}
}
