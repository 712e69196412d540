// Package filefilter expands directory targets into the documents below
// them, skipping paths matched by gitignore-style patterns.
package filefilter

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"markupcheck/internal/domain/errors/checkerr"
)

// Pattern is one gitignore-style pattern.
type Pattern struct {
	Text      string
	Negation  bool
	Directory bool
	// Source and Line locate the pattern for error messages.
	Source string
	Line   int

	re *regexp.Regexp
}

// ParsePattern compiles a single pattern line.
func ParsePattern(line, source string, lineNumber int) (Pattern, error) {
	p := Pattern{Text: line, Source: source, Line: lineNumber}

	body := line
	if strings.HasPrefix(body, "!") {
		p.Negation = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") {
		p.Directory = true
	}

	re, err := regexp.Compile(toRegex(body))
	if err != nil {
		return Pattern{}, checkerr.NewConfigError(fmt.Sprintf("invalid ignore pattern %q", line)).
			WithPath(source).
			WithLine(lineNumber).
			WithCause(err)
	}
	p.re = re
	return p, nil
}

// ParsePatterns compiles every non-blank, non-comment line.
func ParsePatterns(lines []string, source string) ([]Pattern, error) {
	var patterns []Pattern
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParsePattern(line, source, i+1)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// LoadIgnoreFile reads patterns from path. A missing file yields no patterns.
func LoadIgnoreFile(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, checkerr.NewIOError(path, err).WithOperation("read ignore file")
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, checkerr.NewIOError(path, err).WithOperation("read ignore file")
	}
	return ParsePatterns(lines, path)
}

// Match reports whether rel, a slash-separated path relative to the
// directory being expanded, is matched. Directory patterns only match
// directories and the paths inside them.
func (p Pattern) Match(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(rel, "./")
	if p.Directory && !isDir {
		parent := path.Dir(rel)
		if parent == "." {
			return false
		}
		return p.re.MatchString(parent)
	}
	return p.re.MatchString(rel)
}

// toRegex converts a gitignore pattern (without its "!" prefix) into a
// regular expression. A leading or inner slash anchors the pattern to the
// expanded directory; otherwise it matches at any depth. The match also
// covers every path below a matched directory.
func toRegex(pattern string) string {
	pattern = strings.TrimSuffix(pattern, "/")
	rooted := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	var b strings.Builder
	if rooted {
		b.WriteString("^")
	} else {
		b.WriteString("(?:^|/)")
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString("(?:[^/]*/)*")
			i += 2
		case pattern[i:] == "/**":
			b.WriteString("/.*")
			i += 2
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case c == '\\' && i+1 < len(pattern):
			i++
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case strings.IndexByte(`.+()|{}^$\]`, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteString("(?:$|/)")
	return b.String()
}
