// Package ignore decides which files and directories never make it into a
// package archive: version-control metadata, OS artifacts, editor state and
// virtual environments.
package ignore

import "strings"

// Kind selects how a rule compares a name.
type Kind int

const (
	// Exact matches the whole name.
	Exact Kind = iota
	// Prefix matches names starting with the rule name, covering temp and backup variants.
	Prefix
	// Suffix matches names ending with the rule name.
	Suffix
)

// Rule is one deny-list entry.
type Rule struct {
	Name string
	Kind Kind
	// Dir selects directories; otherwise the rule applies to files.
	Dir bool
	// FoldCase compares case-insensitively.
	FoldCase bool
}

// Matcher is a pure predicate over (name, isDir).
type Matcher struct {
	rules []Rule
}

// DefaultRules returns the built-in deny-list.
func DefaultRules() []Rule {
	return []Rule{
		{Name: ".git", Kind: Exact, Dir: true},
		{Name: ".github", Kind: Exact, Dir: true},
		{Name: ".svn", Kind: Exact, Dir: true},
		{Name: ".hg", Kind: Exact, Dir: true},
		{Name: ".idea", Kind: Exact, Dir: true},
		{Name: ".vscode", Kind: Exact, Dir: true},
		{Name: "venv", Kind: Exact, Dir: true},
		{Name: ".venv", Kind: Exact, Dir: true},
		{Name: "__pycache__", Kind: Exact, Dir: true},

		{Name: ".git", Kind: Prefix},
		{Name: ".DS_Store", Kind: Prefix},
		{Name: "thumbs.db", Kind: Prefix, FoldCase: true},
		{Name: ".pyc", Kind: Suffix, FoldCase: true},
		{Name: ".pyo", Kind: Suffix, FoldCase: true},
		{Name: ".swp", Kind: Suffix},
		{Name: "~", Kind: Suffix},
	}
}

// New returns a Matcher over rules, or over DefaultRules when none are given.
func New(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	return &Matcher{rules: rules}
}

// Ignored reports whether the entry must be left out of the archive.
// An ignored directory is pruned with everything below it.
func (m *Matcher) Ignored(name string, isDir bool) bool {
	for _, r := range m.rules {
		if r.Dir == isDir && r.matches(name) {
			return true
		}
	}

	return false
}

func (r Rule) matches(name string) bool {
	pattern := r.Name
	if r.FoldCase {
		name = strings.ToLower(name)
		pattern = strings.ToLower(pattern)
	}

	switch r.Kind {
	case Prefix:
		return strings.HasPrefix(name, pattern)
	case Suffix:
		return strings.HasSuffix(name, pattern)
	case Exact:
		return name == pattern
	default:
		return false
	}
}
