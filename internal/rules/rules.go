// Package rules loads the behavioral rules that are appended verbatim to
// every fix prompt: inline rules from .burnish.yaml plus list items from an
// optional markdown rules doc (POLISH.md by default).
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Load combines inline rules with the rules doc at rulesFile. A missing doc
// is fine; any other read error is not. Duplicates are dropped, first
// occurrence wins, inline rules come first.
func Load(inline []string, rulesFile string) ([]string, error) {
	combined := append([]string{}, inline...)

	if rulesFile != "" {
		data, err := os.ReadFile(rulesFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// optional
		case err != nil:
			return nil, fmt.Errorf("reading rules doc %q: %w", rulesFile, err)
		default:
			combined = append(combined, ParseDoc(data)...)
		}
	}

	seen := map[string]bool{}
	var out []string
	for _, rule := range combined {
		rule = strings.TrimSpace(rule)
		if rule == "" || seen[rule] {
			continue
		}
		seen[rule] = true
		out = append(out, rule)
	}

	return out, nil
}

// ParseDoc extracts every markdown list item's leading text as a rule.
// Prose outside lists is ignored, so the doc can explain itself around the
// rules.
func ParseDoc(source []byte) []string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var rules []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		item, ok := n.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}
		// The first child is the item's own text block; nested lists come
		// after it and are visited as their own items.
		if block := item.FirstChild(); block != nil {
			if s := blockText(block, source); s != "" {
				rules = append(rules, s)
			}
		}
		return ast.WalkContinue, nil
	})

	return rules
}

func blockText(block ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
