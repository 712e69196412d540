package filefilter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"markupcheck/internal/domain/errors/checkerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		// Rooted patterns
		{"Rooted build dir", "/build", "build/output.html", false, true},
		{"Rooted build exact", "/build", "build", true, true},
		{"Rooted build no match", "/build", "src/build/file.html", false, false},

		// Globstar patterns
		{"Globstar min files", "**/*.min.html", "src/levels/one.min.html", false, true},
		{"Globstar top level", "**/*.min.html", "one.min.html", false, true},
		{"Glob star under dir", "games/**/*.html", "games/arcade/pacman.html", false, true},
		{"Globstar outside dir", "games/**/*.html", "docs/pacman.html", false, false},
		{"Trailing globstar", "drafts/**", "drafts/a/b.html", false, true},

		// Bracket expressions
		{"Bracket htm", "*.ht[m]", "page.htm", false, true},
		{"Bracket negated", "v[!0-9].html", "va.html", false, true},
		{"Bracket negated digit", "v[!0-9].html", "v1.html", false, false},

		// Directory patterns
		{"Dir pattern root", "**/temp/", "temp/file.html", false, true},
		{"Dir pattern nested", "**/temp/", "src/temp/data.html", false, true},
		{"Dir pattern dir itself", "vendor/", "vendor", true, true},
		{"Dir pattern plain file", "vendor/", "vendor", false, false},

		// Simple patterns
		{"Simple extension", "*.bak.html", "old.bak.html", false, true},
		{"Simple extension nested", "*.bak.html", "levels/old.bak.html", false, true},
		{"Literal dot", "a.html", "axhtml", false, false},
		{"Question mark", "level?.html", "level1.html", false, true},
		{"Question mark slash", "level?.html", "level/.html", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.pattern, "test", 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.path, tt.isDir), "regex %s", toRegex(tt.pattern))
		})
	}
}

func TestParsePatterns(t *testing.T) {
	patterns, err := ParsePatterns([]string{"# comment", "", "  vendor/  ", "!keep.html", "*.min.html"}, "ignore")
	require.NoError(t, err)
	require.Len(t, patterns, 3)

	assert.Equal(t, "vendor/", patterns[0].Text)
	assert.True(t, patterns[0].Directory)
	assert.Equal(t, 3, patterns[0].Line)
	assert.True(t, patterns[1].Negation)
	assert.Equal(t, "ignore", patterns[2].Source)
	assert.Equal(t, 5, patterns[2].Line)
}

func TestMatcher_LastMatchWins(t *testing.T) {
	exclude, err := ParsePatterns([]string{"*.html"}, "exclude")
	require.NoError(t, err)
	file, err := ParsePatterns([]string{"!keep.html", "levels/"}, "file")
	require.NoError(t, err)

	m := NewMatcher(exclude, file)

	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Ignored("game.html", false))
	assert.False(t, m.Ignored("keep.html", false))
	assert.True(t, m.Ignored("levels", true))
	assert.False(t, m.Ignored("levels.js", false))
}

func TestLoadIgnoreFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		patterns, err := LoadIgnoreFile(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("patterns", func(t *testing.T) {
		path := filepath.Join(dir, ".markupcheckignore")
		require.NoError(t, os.WriteFile(path, []byte("# drafts\ndrafts/\n*.min.html\n"), 0o600))

		patterns, err := LoadIgnoreFile(path)
		require.NoError(t, err)
		require.Len(t, patterns, 2)
		assert.Equal(t, path, patterns[0].Source)
		assert.Equal(t, 2, patterns[0].Line)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		path := filepath.Join(dir, "broken")
		require.NoError(t, os.WriteFile(path, []byte("ok.html\nbad[z-a].html\n"), 0o600))

		_, err := LoadIgnoreFile(path)
		require.Error(t, err)
		assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryConfig))
		assert.Contains(t, err.Error(), "at line 2")
	})
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestDiscoverer_Expand(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.html":               "<p></p>",
		"b.HTM":                "<p></p>",
		"notes.txt":            "notes",
		"games/c.html":         "<p></p>",
		"games/c.min.html":     "<p></p>",
		"vendor/lib.html":      "<p></p>",
		".git/index.html":      "<p></p>",
		"drafts/wip.html":      "<p></p>",
		".markupcheckignore":   "vendor/\n*.min.html\n",
		"empty/placeholder.md": "",
	})

	d, err := NewDiscoverer(Options{
		Extensions: []string{".html", "htm"},
		Exclude:    []string{"drafts/"},
		IgnoreFile: ".markupcheckignore",
	})
	require.NoError(t, err)

	explicit := filepath.Join(root, "a.html")
	missing := filepath.Join(root, "missing.html")

	got, err := d.Expand(context.Background(), []string{root, explicit, missing, filepath.Join(root, "empty")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.html"),
		filepath.Join(root, "b.HTM"),
		filepath.Join(root, "games", "c.html"),
		missing,
	}, got)
}

func TestDiscoverer_ExplicitFilesAreNotFiltered(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"page.min.html": "<p></p>"})
	target := filepath.Join(root, "page.min.html")

	d, err := NewDiscoverer(Options{Extensions: []string{".html"}, Exclude: []string{"*.min.html"}})
	require.NoError(t, err)

	got, err := d.Expand(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, []string{target}, got)
}

func TestDiscoverer_InvalidExclude(t *testing.T) {
	_, err := NewDiscoverer(Options{Exclude: []string{"[z-a]"}})

	require.Error(t, err)
	assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryConfig))
}

func TestDiscoverer_CanceledContext(t *testing.T) {
	d, err := NewDiscoverer(Options{Extensions: []string{".html"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Expand(ctx, []string{t.TempDir()})
	require.Error(t, err)
	assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryTimeout))
}
