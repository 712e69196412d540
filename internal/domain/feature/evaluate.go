package feature

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Sources is the text a profile is evaluated against.
type Sources struct {
	// Document is the whole file.
	Document string
	// Script is the concatenated inline JavaScript.
	Script string
}

func (s Sources) text(scope Scope) string {
	if scope == ScopeScript {
		return s.Script
	}
	return s.Document
}

// Item is the outcome of one rule.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Found       bool   `json:"found"`
	Required    bool   `json:"required,omitempty"`
	// Count is set for count and group rules.
	Count int `json:"count,omitempty"`
	Min   int `json:"min,omitempty"`
	// Groups tallies the captured values of a group rule.
	Groups map[string]int `json:"groups,omitempty"`
}

// Label is the description when present, else the rule name.
func (i Item) Label() string {
	if i.Description != "" {
		return i.Description
	}
	return i.Name
}

// GroupNames returns the keys of Groups, numbers in numeric order first.
func (i Item) GroupNames() []string {
	names := make([]string, 0, len(i.Groups))
	for name := range i.Groups {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		na, errA := strconv.Atoi(names[a])
		nb, errB := strconv.Atoi(names[b])
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil || errB == nil:
			return errA == nil
		}
		return names[a] < names[b]
	})
	return names
}

// CategoryResult aggregates the rules of one category.
type CategoryResult struct {
	Name    string  `json:"name"`
	Found   int     `json:"found"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Items   []Item  `json:"items"`
}

// Finding is a triggered issue.
type Finding struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Count    int      `json:"count"`
}

// Inventory is the result of evaluating a profile.
type Inventory struct {
	Profile         string           `json:"profile"`
	Categories      []CategoryResult `json:"categories"`
	Found           int              `json:"found"`
	Total           int              `json:"total"`
	Percent         float64          `json:"percent"`
	Threshold       float64          `json:"threshold"`
	Passed          bool             `json:"passed"`
	MissingRequired []string         `json:"missing_required,omitempty"`
	Issues          []Finding        `json:"issues,omitempty"`
}

// Evaluate matches every rule and issue of p against src. Missing features
// are reported, never returned as errors. p must be compiled.
func Evaluate(p *Profile, src Sources) Inventory {
	inv := Inventory{Profile: p.Name, Threshold: p.PassThreshold}

	index := make(map[string]int)
	for _, r := range p.Rules {
		item := r.evaluate(src)

		ci, ok := index[r.Category]
		if !ok {
			ci = len(inv.Categories)
			index[r.Category] = ci
			inv.Categories = append(inv.Categories, CategoryResult{Name: r.Category})
		}
		cat := &inv.Categories[ci]
		cat.Items = append(cat.Items, item)
		cat.Total++
		inv.Total++
		if item.Found {
			cat.Found++
			inv.Found++
		} else if item.Required {
			inv.MissingRequired = append(inv.MissingRequired, r.Name)
		}
	}

	for i := range inv.Categories {
		inv.Categories[i].Percent = percent(inv.Categories[i].Found, inv.Categories[i].Total)
	}
	inv.Percent = percent(inv.Found, inv.Total)
	inv.Passed = len(inv.MissingRequired) == 0 &&
		(inv.Total == 0 || float64(inv.Found)/float64(inv.Total) >= p.PassThreshold)

	for _, is := range p.Issues {
		if f, ok := is.evaluate(src); ok {
			inv.Issues = append(inv.Issues, f)
		}
	}
	return inv
}

func (r Rule) evaluate(src Sources) Item {
	text := src.text(r.Scope)
	item := Item{Name: r.Name, Description: r.Description, Required: r.Required}

	switch r.Kind {
	case KindContains:
		item.Found = strings.Contains(text, r.Pattern)
	case KindCount:
		item.Min = max(r.Min, 1)
		item.Count = len(r.matchers[0].FindAllStringIndex(text, -1))
		item.Found = item.Count >= item.Min
	case KindGroup:
		item.Min = max(r.Min, 1)
		item.Groups = make(map[string]int)
		for _, m := range r.matchers[0].FindAllStringSubmatch(text, -1) {
			for _, v := range r.values(m[1]) {
				item.Groups[v]++
				item.Count++
			}
		}
		item.Found = item.Count >= item.Min
	default:
		for _, re := range r.matchers {
			if re.MatchString(text) {
				item.Found = true
				break
			}
		}
	}
	return item
}

// values splits one captured value with the rule's extract expression.
func (r Rule) values(captured string) []string {
	v := strings.TrimSpace(captured)
	if r.extractor == nil {
		if v == "" {
			return nil
		}
		return []string{v}
	}
	var out []string
	for _, m := range r.extractor.FindAllStringSubmatch(captured, -1) {
		part := m[0]
		if len(m) > 1 {
			part = m[1]
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (is Issue) evaluate(src Sources) (Finding, bool) {
	text := src.text(is.Scope)

	var count int
	var captured []string
	switch is.Kind {
	case KindContains:
		count = strings.Count(text, is.Pattern)
	case KindLine:
		for _, line := range strings.Split(text, "\n") {
			if i := strings.Index(line, "//"); i >= 0 {
				line = line[:i]
			}
			line = strings.TrimSpace(line)
			if line == "" || !is.matcher.MatchString(line) || (is.except != nil && is.except.MatchString(line)) {
				continue
			}
			count++
		}
	default:
		for _, m := range is.matcher.FindAllStringSubmatch(text, -1) {
			count++
			if len(m) > 1 && m[1] != "" {
				captured = append(captured, m[1])
			}
		}
	}

	triggered := count > is.Above
	if is.Below > 0 {
		triggered = count < is.Below
	}
	if !triggered || (is.Unless != "" && strings.Contains(text, is.Unless)) {
		return Finding{}, false
	}

	msg := strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{matches}", strings.Join(unique(captured), ", "),
	).Replace(is.Message)
	return Finding{Name: is.Name, Severity: is.Severity, Message: msg, Count: count}, true
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func percent(found, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(found)/float64(total)*1000) / 10
}
