package filefilter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"markupcheck/internal/application/common/slogger"
	"markupcheck/internal/domain/errors/checkerr"
)

// Matcher applies patterns in order; the last pattern that matches a path
// decides whether it is ignored.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher concatenates pattern lists in priority order.
func NewMatcher(lists ...[]Pattern) *Matcher {
	m := &Matcher{}
	for _, l := range lists {
		m.patterns = append(m.patterns, l...)
	}
	return m
}

// Ignored reports whether rel is excluded.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, p := range m.patterns {
		if p.Match(rel, isDir) {
			ignored = !p.Negation
		}
	}
	return ignored
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Options controls directory expansion.
type Options struct {
	// Extensions selects documents by file extension, case-insensitively.
	Extensions []string
	// Exclude patterns apply to every expanded directory.
	Exclude []string
	// IgnoreFile is read from the root of each expanded directory.
	IgnoreFile string
}

// Discoverer turns the targets given on the command line into documents.
type Discoverer struct {
	extensions map[string]bool
	exclude    []Pattern
	ignoreFile string
}

// NewDiscoverer compiles the exclude patterns.
func NewDiscoverer(opts Options) (*Discoverer, error) {
	exclude, err := ParsePatterns(opts.Exclude, "--exclude")
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Discoverer{extensions: exts, exclude: exclude, ignoreFile: opts.IgnoreFile}, nil
}

// Expand replaces each directory target with the documents below it, in
// lexical order. Other targets, including missing ones, pass through
// unchanged so that reading them reports the failure. Duplicates are dropped.
func (d *Discoverer) Expand(ctx context.Context, targets []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		key := filepath.Clean(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, checkerr.TimeoutFromContext(ctx, "expand targets")
		}
		if !isDir(target) {
			add(target)
			continue
		}
		docs, err := d.walk(ctx, target)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			slogger.Warn(ctx, "Directory contains no documents", slogger.Fields{"path": target})
		}
		for _, doc := range docs {
			add(doc)
		}
	}
	return out, nil
}

func (d *Discoverer) walk(ctx context.Context, root string) ([]string, error) {
	var filePatterns []Pattern
	if d.ignoreFile != "" {
		var err error
		filePatterns, err = LoadIgnoreFile(filepath.Join(root, d.ignoreFile))
		if err != nil {
			return nil, err
		}
	}
	matcher := NewMatcher(d.exclude, filePatterns)

	var docs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") || matcher.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.extensions[strings.ToLower(filepath.Ext(path))] || matcher.Ignored(rel, false) {
			return nil
		}
		docs = append(docs, path)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, checkerr.TimeoutFromContext(ctx, "expand targets")
		}
		return nil, checkerr.NewIOError(root, err).WithOperation("expand directory")
	}

	slogger.Debug(ctx, "Expanded directory", slogger.Fields{
		"path":      root,
		"documents": len(docs),
		"patterns":  matcher.Len(),
	})
	return docs, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
