package feature

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"markupcheck/internal/domain/errors/checkerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compiled(t *testing.T, p Profile) *Profile {
	t.Helper()
	require.NoError(t, p.Compile())
	return &p
}

func TestNewCatalog_BuiltinProfiles(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"fishing", "generic", "pacman"}, c.Names())

	pacman, err := c.Get("pacman")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, pacman.PassThreshold, 1e-9)
	assert.Equal(t, "Required elements", pacman.Categories()[0])
	assert.Len(t, pacman.Issues, 5, "common issues are shared through the YAML anchor")

	_, err = c.Get("tetris")
	require.Error(t, err)
	assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryConfig))
}

func TestRule_FunctionForms(t *testing.T) {
	p := compiled(t, Profile{
		Name:  "t",
		Rules: []Rule{{Name: "start", Kind: KindFunction, Pattern: "startGame"}},
	})

	tests := []struct {
		name  string
		src   string
		found bool
	}{
		{name: "declaration", src: "function startGame() {}", found: true},
		{name: "function expression", src: "window.startGame = function () {}", found: true},
		{name: "const arrow", src: "const startGame = () => {}", found: true},
		{name: "object property", src: "var game = { startGame: () => 1 }", found: true},
		{name: "method shorthand", src: "class G {\n  startGame() {\n  }\n}", found: true},
		{name: "call only", src: "startGame();", found: false},
		{name: "longer name", src: "function startGameNow() {}", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Evaluate(p, Sources{Document: tt.src})
			require.Len(t, inv.Categories, 1)
			assert.Equal(t, tt.found, inv.Categories[0].Items[0].Found)
		})
	}
}

func TestRule_ElementIDAndWord(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Rules: []Rule{
			{Name: "score", Category: "ids", Kind: KindElementID, Pattern: "score"},
			{Name: "lives", Category: "ids", Kind: KindElementID, Pattern: "lives"},
			{Name: "maze", Category: "words", Kind: KindWord, Pattern: "maze"},
		},
	})
	doc := `<div id='score'></div><div id="livesBox"></div><script>const MAZE = [];</script>`

	inv := Evaluate(p, Sources{Document: doc})

	require.Len(t, inv.Categories, 2)
	ids := inv.Categories[0]
	assert.True(t, ids.Items[0].Found)
	assert.False(t, ids.Items[1].Found)
	assert.InDelta(t, 50.0, ids.Percent, 1e-9)
	assert.True(t, inv.Categories[1].Items[0].Found)
}

func TestRule_ScopeSelectsText(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Rules: []Rule{
			{Name: "in-script", Kind: KindContains, Pattern: "localStorage", Scope: ScopeScript},
		},
	})

	inv := Evaluate(p, Sources{Document: "<p>localStorage</p>", Script: "let a = 1;"})

	assert.False(t, inv.Categories[0].Items[0].Found)
}

func TestRule_Count(t *testing.T) {
	p := compiled(t, Profile{
		Name:  "t",
		Rules: []Rule{{Name: "fish", Kind: KindCount, Pattern: `\{\s*id:`, Min: 3, Scope: ScopeScript}},
	})

	few := Evaluate(p, Sources{Script: "[{id: 'a'}, { id: 'b'}]"})
	item := few.Categories[0].Items[0]
	assert.Equal(t, 2, item.Count)
	assert.Equal(t, 3, item.Min)
	assert.False(t, item.Found)

	enough := Evaluate(p, Sources{Script: "[{id: 1}, {id: 2}, {id: 3}, {id: 4}]"})
	assert.True(t, enough.Categories[0].Items[0].Found)
}

func TestRule_Group(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Rules: []Rule{
			{Name: "rarity", Kind: KindGroup, Pattern: `rarity:\s*(\d+)`, Scope: ScopeScript},
			{Name: "times", Kind: KindGroup, Pattern: `times:\s*\[([^\]]*)\]`, Extract: `'(\w+)'`, Scope: ScopeScript},
			{Name: "legendary", Kind: KindGroup, Pattern: `rarity:\s*(9)`, Scope: ScopeScript},
		},
	})
	script := `[{rarity: 1, times: ['day', 'night']}, {rarity: 12, times: ['night']}, {RARITY: 1, times: []}]`

	inv := Evaluate(p, Sources{Script: script})
	items := inv.Categories[0].Items

	assert.Equal(t, map[string]int{"1": 2, "12": 1}, items[0].Groups)
	assert.Equal(t, 3, items[0].Count)
	assert.True(t, items[0].Found)
	assert.Equal(t, []string{"1", "12"}, items[0].GroupNames())

	assert.Equal(t, map[string]int{"day": 1, "night": 2}, items[1].Groups)
	assert.Equal(t, 3, items[1].Count)

	assert.Empty(t, items[2].Groups)
	assert.False(t, items[2].Found)
	assert.Equal(t, 1, items[2].Min)
}

func TestItem_GroupNames(t *testing.T) {
	item := Item{Groups: map[string]int{"night": 1, "10": 1, "2": 1, "day": 1}}

	assert.Equal(t, []string{"2", "10", "day", "night"}, item.GroupNames())
}

func TestEvaluate_PassThreshold(t *testing.T) {
	p := compiled(t, Profile{
		Name:          "t",
		PassThreshold: 0.7,
		Rules: []Rule{
			{Name: "a", Kind: KindContains, Pattern: "alpha"},
			{Name: "b", Kind: KindContains, Pattern: "beta"},
			{Name: "c", Kind: KindContains, Pattern: "gamma"},
		},
	})

	tests := []struct {
		name    string
		doc     string
		found   int
		percent float64
		passed  bool
	}{
		{name: "none", doc: "", found: 0, percent: 0, passed: false},
		{name: "two of three", doc: "alpha beta", found: 2, percent: 66.7, passed: false},
		{name: "all", doc: "alpha beta gamma", found: 3, percent: 100, passed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Evaluate(p, Sources{Document: tt.doc})
			assert.Equal(t, tt.found, inv.Found)
			assert.Equal(t, 3, inv.Total)
			assert.InDelta(t, tt.percent, inv.Percent, 1e-9)
			assert.Equal(t, tt.passed, inv.Passed)
		})
	}
}

func TestEvaluate_MissingRequiredFails(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Rules: []Rule{
			{Name: "canvas", Kind: KindElementID, Pattern: "gameCanvas", Required: true},
			{Name: "loop", Kind: KindContains, Pattern: "requestAnimationFrame"},
		},
	})

	inv := Evaluate(p, Sources{Document: "requestAnimationFrame(loop)"})

	assert.Equal(t, []string{"canvas"}, inv.MissingRequired)
	assert.False(t, inv.Passed)
}

func TestIssues_Heuristics(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)
	p, err := c.Get("pacman")
	require.NoError(t, err)

	script := strings.Repeat("console.log('x');\n", 11) +
		strings.Repeat("el.addEventListener('click', f);\n", 6) +
		"el.removeEventListener('click', f);\n" +
		"a = undefined;\nb = undefined;\na = undefined;\n"

	inv := Evaluate(p, Sources{Script: script})

	byName := make(map[string]Finding)
	for _, f := range inv.Issues {
		byName[f.Name] = f
	}

	require.Contains(t, byName, "console_residue")
	assert.Equal(t, "debug console calls left in scripts (11)", byName["console_residue"].Message)
	assert.Equal(t, SeverityWarning, byName["console_residue"].Severity)

	require.Contains(t, byName, "undefined_assignment")
	assert.Equal(t, "variables assigned undefined: a, b", byName["undefined_assignment"].Message)

	require.Contains(t, byName, "no_error_handling")
	assert.Zero(t, byName["no_error_handling"].Count)

	assert.NotContains(t, byName, "listener_leak", "removeEventListener suppresses the finding")
	assert.NotContains(t, byName, "too_many_globals")
}

func TestIssues_CaseSensitivity(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Issues: []Issue{
			{Name: "folded", Pattern: `todo`},
			{Name: "exact", Pattern: `todo`, CaseSensitive: true},
		},
	})

	inv := Evaluate(p, Sources{Script: "// TODO: remove"})

	require.Len(t, inv.Issues, 1)
	assert.Equal(t, "folded", inv.Issues[0].Name)
}

func TestIssues_LineKind(t *testing.T) {
	p := compiled(t, Profile{
		Name: "t",
		Issues: []Issue{{
			Name:    "semicolon",
			Kind:    KindLine,
			Pattern: `[^;{}]$`,
			Except:  `^(if|else)`,
			Message: "{count} line(s)",
		}},
	})
	script := "let a = 1\nlet b = 2; // fine\nif (a) {\nelse b = 3\ncall() // trailing\n\n// comment only\n"

	inv := Evaluate(p, Sources{Script: script})

	require.Len(t, inv.Issues, 1)
	assert.Equal(t, 2, inv.Issues[0].Count)
	assert.Equal(t, "2 line(s)", inv.Issues[0].Message)
}

func TestFishingProfile_FishData(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)
	p, err := c.Get("fishing")
	require.NoError(t, err)

	script := `const game = {
  fishes: [
    {id: 'tuna', name: 'マグロ', rarity: 4, times: ['morning', 'day']},
    {id: 'eel', name: 'ウナギ', rarity: 2, times: ['night']},
    {id: 'can', name: '空き缶', rarity: 1, isTrash: true, times: ['morning', 'day', 'evening', 'night']},
  ],
  init() {
    let points = 0
  }
};`

	inv := Evaluate(p, Sources{Document: "<script>" + script + "</script>", Script: script})

	items := make(map[string]Item)
	var categories []string
	for _, cat := range inv.Categories {
		categories = append(categories, cat.Name)
		for _, it := range cat.Items {
			items[it.Name] = it
		}
	}
	assert.Subset(t, categories, []string{"Fish data", "Fish species", "Trash items", "Progress", "Game logic", "Layout"})

	assert.Equal(t, map[string]int{"1": 1, "2": 1, "4": 1}, items["by_rarity"].Groups)
	assert.Equal(t, map[string]int{"morning": 2, "day": 2, "evening": 1, "night": 2}, items["by_time"].Groups)
	assert.Equal(t, map[string]int{"マグロ": 1}, items["special_fish"].Groups)
	assert.Equal(t, map[string]int{"空き缶": 1}, items["trash_names"].Groups)

	assert.True(t, items["maguro"].Found)
	assert.False(t, items["kujira"].Found)
	assert.True(t, items["empty_can"].Found)
	assert.True(t, items["scoring"].Found)
	assert.False(t, items["bite_check"].Found)

	byName := make(map[string]Finding)
	for _, f := range inv.Issues {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "missing_semicolon")
	assert.Equal(t, 1, byName["missing_semicolon"].Count)
	assert.Equal(t, SeverityInfo, byName["missing_semicolon"].Severity)
	assert.NotContains(t, byName, "private_browsing")
}

func TestIssues_QuietScript(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)
	p, err := c.Get("generic")
	require.NoError(t, err)

	inv := Evaluate(p, Sources{Script: "try { run(); } catch (e) { report(e); }"})

	assert.Empty(t, inv.Issues)
}

func TestCatalog_LoadReplacesProfile(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	err = c.Load([]byte(`
profiles:
  - name: pacman
    pass_threshold: 1
    rules:
      - {name: fruit, kind: word, pattern: cherry}
  - name: snake
    rules:
      - {name: tail, pattern: 'tail\s*\.push'}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"fishing", "generic", "pacman", "snake"}, c.Names())
	p, err := c.Get("pacman")
	require.NoError(t, err)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, KindWord, p.Rules[0].Kind)

	snake, err := c.Get("snake")
	require.NoError(t, err)
	assert.Equal(t, KindRegex, snake.Rules[0].Kind)
	assert.Equal(t, ScopeDocument, snake.Rules[0].Scope)
	assert.Equal(t, "General", snake.Rules[0].Category)
}

func TestCatalog_LoadRejectsInvalidProfiles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "profiles: ["},
		{name: "empty", yaml: "profiles: []"},
		{name: "bad regex", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, pattern: '(unclosed'}"},
		{name: "unknown kind", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, kind: fuzzy, pattern: a}"},
		{name: "duplicate rule", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, pattern: a}\n      - {name: r, pattern: b}"},
		{name: "threshold", yaml: "profiles:\n  - name: x\n    pass_threshold: 2\n    rules: []"},
		{name: "bad issue kind", yaml: "profiles:\n  - name: x\n    issues:\n      - {name: i, kind: word, pattern: a}"},
		{name: "group without capture", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, kind: group, pattern: 'rarity'}"},
		{name: "extract outside group", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, pattern: a, extract: b}"},
		{name: "bad extract", yaml: "profiles:\n  - name: x\n    rules:\n      - {name: r, kind: group, pattern: '(a)', extract: '(b'}"},
		{name: "except outside line issue", yaml: "profiles:\n  - name: x\n    issues:\n      - {name: i, pattern: a, except: b}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog()
			require.NoError(t, err)

			err = c.Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, checkerr.Is(err, checkerr.ErrorCategoryConfig))
			assert.Equal(t, []string{"fishing", "generic", "pacman"}, c.Names())
		})
	}
}

func TestCatalog_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - name: mine\n    rules:\n      - {name: r, pattern: a}\n"), 0o600))

	c, err := NewCatalog()
	require.NoError(t, err)
	require.NoError(t, c.LoadFile(path))
	_, err = c.Get("mine")
	require.NoError(t, err)

	err = c.LoadFile(filepath.Join(dir, "missing.yaml"))
	var ce *checkerr.CheckError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, checkerr.ErrorCategoryConfig, ce.Category)
	assert.Contains(t, ce.Path, "missing.yaml")
}
