package strategy

import (
	"regexp"
	"strings"
)

// TextMatch is the match mode for the Text selector field.
type TextMatch string

const (
	TextExact    TextMatch = "exact"
	TextContains TextMatch = "contains"
	TextRegex    TextMatch = "regex"
)

// DescMatch is the match mode for the ContentDescription selector field.
type DescMatch string

const (
	DescExact    DescMatch = "exact"
	DescContains DescMatch = "contains"
)

// BoolFlag is a tri-state boolean selector field: unset is wildcard.
type BoolFlag struct {
	Set   bool
	Value bool
}

// Selector matches elements of a UI hierarchy (spec §4.6). All specified
// fields are AND-combined; unspecified fields are wildcard.
type Selector struct {
	ResourceID         string
	Text               string
	TextMatch          TextMatch
	ClassName          string
	ContentDescription string
	DescMatch          DescMatch
	PackageName        string

	Enabled    *bool
	Clickable  *bool
	Scrollable *bool
	Focusable  *bool
	Checked    *bool
	Selected   *bool

	Child  *Selector
	Parent *Selector
}

// IsEmpty reports whether every field is unset (matches every element).
func (s Selector) IsEmpty() bool {
	return s.ResourceID == "" && s.Text == "" && s.ClassName == "" &&
		s.ContentDescription == "" && s.PackageName == "" &&
		s.Enabled == nil && s.Clickable == nil && s.Scrollable == nil &&
		s.Focusable == nil && s.Checked == nil && s.Selected == nil &&
		s.Child == nil && s.Parent == nil
}

// Matches reports whether e satisfies every specified field of s. ancestors
// is the chain from the hierarchy root down to e's immediate parent
// (nearest parent last); it is only consulted when s.Parent is set.
func (s Selector) Matches(e Element, ancestors []Element) bool {
	if s.ResourceID != "" && e.ResourceID != s.ResourceID {
		return false
	}
	if s.Text != "" && !matchText(s.Text, s.TextMatch, e.Text) {
		return false
	}
	if s.ClassName != "" && e.ClassName != s.ClassName {
		return false
	}
	if s.ContentDescription != "" && !matchDesc(s.ContentDescription, s.DescMatch, e.ContentDescription) {
		return false
	}
	if s.PackageName != "" && e.PackageName != s.PackageName {
		return false
	}
	if !matchBool(s.Enabled, e.Enabled) || !matchBool(s.Clickable, e.Clickable) ||
		!matchBool(s.Scrollable, e.Scrollable) || !matchBool(s.Focusable, e.Focusable) ||
		!matchBool(s.Checked, e.Checked) || !matchBool(s.Selected, e.Selected) {
		return false
	}
	if s.Child != nil && !anyDescendantMatches(*s.Child, e.Children) {
		return false
	}
	if s.Parent != nil && !anyAncestorMatches(*s.Parent, ancestors) {
		return false
	}
	return true
}

// anyDescendantMatches reports whether s matches some node anywhere below
// nodes, pre-order (spec §4.6's child-selector: restricts by a descendant
// in the candidate's own subtree).
func anyDescendantMatches(s Selector, nodes []Element) bool {
	for _, n := range nodes {
		if s.Matches(n, nil) {
			return true
		}
		if anyDescendantMatches(s, n.Children) {
			return true
		}
	}
	return false
}

// anyAncestorMatches reports whether s matches some element in ancestors,
// nearest parent first (spec §4.6's parent-selector: restricts by an
// ancestor of the candidate).
func anyAncestorMatches(s Selector, ancestors []Element) bool {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if s.Matches(ancestors[i], ancestors[:i]) {
			return true
		}
	}
	return false
}

func matchBool(want *bool, got bool) bool {
	return want == nil || *want == got
}

func matchText(want string, mode TextMatch, got string) bool {
	switch mode {
	case TextContains:
		return containsSubstring(got, want)
	case TextRegex:
		re, err := regexp.Compile(want)
		if err != nil {
			return false
		}
		return re.MatchString(got)
	default:
		return got == want
	}
}

func matchDesc(want string, mode DescMatch, got string) bool {
	if mode == DescContains {
		return containsSubstring(got, want)
	}
	return got == want
}

func containsSubstring(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// FindAll walks the hierarchy in pre-order, returning every element that
// matches s, ties broken by first-encounter (spec §4.6 match order).
func FindAll(tree []Element, s Selector) []Element {
	var out []Element
	var walk func([]Element, []Element)
	walk = func(nodes []Element, ancestors []Element) {
		for _, n := range nodes {
			if s.Matches(n, ancestors) {
				out = append(out, n)
			}
			walk(n.Children, withAncestor(ancestors, n))
		}
	}
	walk(tree, nil)
	return out
}

// FindFirst returns the first pre-order match, or false if none matches.
func FindFirst(tree []Element, s Selector) (Element, bool) {
	var found Element
	ok := false
	var walk func([]Element, []Element) bool
	walk = func(nodes []Element, ancestors []Element) bool {
		for _, n := range nodes {
			if s.Matches(n, ancestors) {
				found = n
				return true
			}
			if walk(n.Children, withAncestor(ancestors, n)) {
				return true
			}
		}
		return false
	}
	ok = walk(tree, nil)
	return found, ok
}

// withAncestor appends e to ancestors without aliasing the caller's
// backing array across sibling branches.
func withAncestor(ancestors []Element, e Element) []Element {
	next := make([]Element, len(ancestors)+1)
	copy(next, ancestors)
	next[len(ancestors)] = e
	return next
}
