// Package htmlscan turns an HTML document into the structural events consumed
// by the balance checker and collects a document outline on the way: doctype,
// tag counts, element ids and inline scripts.
package htmlscan

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"

	"markupcheck/internal/domain/balance"

	"golang.org/x/net/html"
)

// Options tunes the scanner.
type Options struct {
	// MaxTokenBytes bounds the size of a single token. Zero means unbounded.
	MaxTokenBytes int
}

// Script is one <script> element.
type Script struct {
	Index int    `json:"index"`
	Line  int    `json:"line"`
	Body  string `json:"-"`
	Src   string `json:"src,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Inline reports whether the script has a body to check.
func (s Script) Inline() bool {
	return strings.TrimSpace(s.Body) != ""
}

// IsJavaScript reports whether the type attribute denotes JavaScript.
func (s Script) IsJavaScript() bool {
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "", "module", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

// DuplicateID is an id attribute value seen more than once.
type DuplicateID struct {
	ID        string `json:"id"`
	Line      int    `json:"line"`
	FirstLine int    `json:"first_line"`
}

// Outline is what the scanner learned about the document besides structure.
type Outline struct {
	Doctype      string         `json:"doctype,omitempty"`
	Title        string         `json:"title,omitempty"`
	HasCharset   bool           `json:"has_charset"`
	TagCounts    map[string]int `json:"tag_counts"`
	IDs          map[string]int `json:"-"`
	DuplicateIDs []DuplicateID  `json:"duplicate_ids,omitempty"`
}

// HasDoctype reports whether an HTML5 doctype was declared.
func (o Outline) HasDoctype() bool {
	return strings.EqualFold(strings.TrimSpace(o.Doctype), "html")
}

// Has reports whether at least one element with the given name was opened.
func (o Outline) Has(tag string) bool {
	return o.TagCounts[strings.ToLower(tag)] > 0
}

// Document is the result of scanning one HTML source.
type Document struct {
	Outline Outline
	Scripts []Script
	// Lines is the number of lines in the source.
	Lines int

	events  []balance.Event
	err     error
	errLine int
}

// Failure returns the line and error of a tokenization failure. The error is
// nil when the whole document was tokenized.
func (d *Document) Failure() (int, error) {
	return d.errLine, d.err
}

// Events yields the structural events in document order, followed by the
// tokenization failure if scanning stopped early.
func (d *Document) Events() iter.Seq2[balance.Event, error] {
	return func(yield func(balance.Event, error) bool) {
		for _, ev := range d.events {
			if !yield(ev, nil) {
				return
			}
		}
		if d.err != nil {
			yield(balance.Event{Token: balance.Token{Line: d.errLine}}, d.err)
		}
	}
}

// Balance runs the tag matcher over the document's events.
func (d *Document) Balance() balance.Result {
	return balance.Match(d.Events(), balance.TagOptions())
}

// InlineJavaScript returns the inline JavaScript blocks.
func (d *Document) InlineJavaScript() []Script {
	var out []Script
	for _, s := range d.Scripts {
		if s.Inline() && s.IsJavaScript() {
			out = append(out, s)
		}
	}
	return out
}

// rawTextElements switch the tokenizer to raw text until their end tag, even
// when written with a self-closing slash. The list mirrors the tokenizer's.
//
//nolint:gochecknoglobals // fixed lookup table
var rawTextElements = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"textarea":  true,
	"title":     true,
	"xmp":       true,
}

// scanner carries the state of one Scan call.
type scanner struct {
	z       *html.Tokenizer
	doc     *Document
	line    int
	inTitle bool
	script  *Script
}

// Scan tokenizes src and returns its events and outline.
func Scan(src []byte, opts Options) *Document {
	z := html.NewTokenizer(bytes.NewReader(src))
	if opts.MaxTokenBytes > 0 {
		z.SetMaxBuf(opts.MaxTokenBytes)
	}
	s := &scanner{
		z: z,
		doc: &Document{
			Outline: Outline{
				TagCounts: make(map[string]int),
				IDs:       make(map[string]int),
			},
			Lines: countLines(src),
		},
		line: 1,
	}
	s.run()
	return s.doc
}

func (s *scanner) run() {
	for {
		tt := s.z.Next()
		if tt == html.ErrorToken {
			if err := s.z.Err(); !errors.Is(err, io.EOF) {
				s.doc.err = err
				s.doc.errLine = s.line
			}
			s.flushScript()
			return
		}

		start := s.line
		raw := s.z.Raw()
		end := start + bytes.Count(raw, []byte("\n"))

		switch tt {
		case html.DoctypeToken:
			s.doc.Outline.Doctype = string(s.z.Text())
		case html.StartTagToken:
			s.startTag(start, end, false)
		case html.SelfClosingTagToken:
			s.startTag(start, end, true)
		case html.EndTagToken:
			name, _ := s.z.TagName()
			tag := string(name)
			if tag == "script" {
				s.flushScript()
			}
			if tag == "title" {
				s.inTitle = false
			}
			s.doc.events = append(s.doc.events, balance.CloseTag(tag, start))
		case html.TextToken:
			if s.script != nil {
				s.script.Body += string(raw)
			}
			if s.inTitle {
				s.doc.Outline.Title += strings.TrimSpace(string(s.z.Text()))
			}
		}

		s.line = end
	}
}

// startTag records an opening tag. end is the line the tag's raw text ends
// on, where a script body would begin.
func (s *scanner) startTag(line, end int, selfClosing bool) {
	name, hasAttr := s.z.TagName()
	tag := string(name)
	s.doc.Outline.TagCounts[tag]++

	var id, src, typ string
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = s.z.TagAttr()
		switch string(key) {
		case "id":
			id = string(val)
		case "src":
			src = string(val)
		case "type":
			typ = string(val)
		case "charset":
			if tag == "meta" {
				s.doc.Outline.HasCharset = true
			}
		case "content":
			if tag == "meta" && strings.Contains(strings.ToLower(string(val)), "charset=") {
				s.doc.Outline.HasCharset = true
			}
		}
	}

	if id != "" {
		if first, seen := s.doc.Outline.IDs[id]; seen {
			s.doc.Outline.DuplicateIDs = append(s.doc.Outline.DuplicateIDs, DuplicateID{ID: id, Line: line, FirstLine: first})
		} else {
			s.doc.Outline.IDs[id] = line
		}
	}

	s.doc.events = append(s.doc.events, balance.OpenTag(tag, line))
	if (selfClosing && !rawTextElements[tag]) || tag == "plaintext" {
		// <x/> on a non-void element opens and closes in one token.
		// <plaintext> turns the rest of the input into text, so no end tag
		// ever follows it.
		s.doc.events = append(s.doc.events, balance.CloseTag(tag, line))
		return
	}

	switch tag {
	case "script":
		s.flushScript()
		s.script = &Script{Index: len(s.doc.Scripts) + 1, Line: end, Src: src, Type: typ}
	case "title":
		s.inTitle = true
	}
}

func (s *scanner) flushScript() {
	if s.script == nil {
		return
	}
	s.doc.Scripts = append(s.doc.Scripts, *s.script)
	s.script = nil
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	return bytes.Count(src, []byte("\n")) + 1
}
