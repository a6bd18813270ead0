// Package normalize maps the column labels found in spreadsheet exports
// onto canonical field keys. Matching is best-effort: labels that no
// synonym or fallback rule covers pass through unchanged and callers ignore
// keys they do not know.
package normalize

import (
	"strings"

	"maintsync/internal/logging"
)

// SynonymTable maps a canonical field key to the label variants observed in
// the wild for it. Variants are compared in normalized form.
type SynonymTable map[string][]string

// FallbackRule is an ordered heuristic applied when no synonym matches.
// All set conditions must hold on the normalized label.
type FallbackRule struct {
	Prefix      string `yaml:"prefix,omitempty"`
	Contains    string `yaml:"contains,omitempty"`
	NotContains string `yaml:"notContains,omitempty"`
	Target      string `yaml:"target"`
}

// Normalizer resolves raw column labels for one entity type.
type Normalizer struct {
	exact     map[string]string
	fallbacks []FallbackRule
}

// New builds a Normalizer from a synonym table and ordered fallback rules.
// Canonical keys always map to themselves.
func New(table SynonymTable, fallbacks []FallbackRule) *Normalizer {
	exact := make(map[string]string)
	for canonical, variants := range table {
		exact[NormalizeLabel(canonical)] = canonical
		for _, v := range variants {
			exact[NormalizeLabel(v)] = canonical
		}
	}
	return &Normalizer{exact: exact, fallbacks: fallbacks}
}

// NormalizeLabel lower-cases a label, trims it, strips BOM and non-breaking
// spaces, and collapses inner whitespace to underscores.
func NormalizeLabel(label string) string {
	s := strings.TrimPrefix(label, "\ufeff")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

// Resolve maps a raw label to its canonical key. Unknown labels come back
// in normalized form, unmapped.
func (n *Normalizer) Resolve(label string) string {
	norm := NormalizeLabel(label)
	if canonical, ok := n.exact[norm]; ok {
		return canonical
	}
	for _, rule := range n.fallbacks {
		if rule.Prefix != "" && !strings.HasPrefix(norm, rule.Prefix) {
			continue
		}
		if rule.Contains != "" && !strings.Contains(norm, rule.Contains) {
			continue
		}
		if rule.NotContains != "" && strings.Contains(norm, rule.NotContains) {
			continue
		}
		return rule.Target
	}
	return norm
}

// Row maps a whole row onto canonical keys, preserving column order in the
// returned header slice. When two raw labels resolve to the same key the
// later column wins.
func (n *Normalizer) Row(headers []string, row map[string]interface{}) ([]string, map[string]interface{}) {
	outHeaders := make([]string, 0, len(headers))
	out := make(map[string]interface{}, len(row))
	for _, h := range headers {
		key := n.Resolve(h)
		if _, seen := out[key]; seen {
			logging.Logf(logging.Debug, "column '%s' resolves to already-mapped key '%s', overwriting", h, key)
		} else {
			outHeaders = append(outHeaders, key)
		}
		out[key] = row[h]
	}
	return outHeaders, out
}

// FindKeyword returns the first header whose normalized form contains any of
// the given keywords. Keywords are given pre-normalized, with accent-stripped
// variants listed explicitly. Used by imports that discover columns by
// partial match instead of a synonym table.
func FindKeyword(headers []string, keywords []string) (string, bool) {
	for _, h := range headers {
		norm := NormalizeLabel(h)
		for _, kw := range keywords {
			if strings.Contains(norm, kw) {
				return h, true
			}
		}
	}
	return "", false
}
