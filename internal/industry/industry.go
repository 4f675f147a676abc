// Package industry maps free-text industry descriptors onto the fixed set of
// categories the template catalog is keyed by.
package industry

import (
	"strings"
	"unicode"
)

// Category is one of a closed set of industry buckets.
type Category string

const (
	Education     Category = "Education"
	Construction  Category = "Construction"
	Technology    Category = "Technology"
	Manufacturing Category = "Manufacturing"
	Residential   Category = "Residential"
	Office        Category = "Office"
	Default       Category = "Default"
)

type rule struct {
	category Category
	keywords []string
}

// rules are evaluated in order; the first category with a matching keyword
// wins. Each category's own name is among its keywords so Classify is
// idempotent over its outputs.
var rules = []rule{
	{Education, []string{"education", "school", "college", "university", "campus", "academy"}},
	{Construction, []string{"construction", "building", "contractor", "builder", "plumbing", "hvac", "roofing"}},
	{Technology, []string{"technology", "tech", "software", "it", "startup", "saas", "computer"}},
	{Manufacturing, []string{"manufacturing", "industrial", "factory", "plant", "warehouse"}},
	{Residential, []string{"residential", "home", "house", "apartment", "family", "condo"}},
	{Office, []string{"office", "professional", "services", "business", "coworking", "consulting"}},
}

// All returns every category in priority order, Default last.
func All() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, Default)
}

// Parse returns the category whose name equals s (case-insensitive).
func Parse(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range All() {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Classify maps a descriptor to a category. Matching is case-insensitive and
// token based: keywords of two letters or fewer must equal a token, longer
// keywords match any token they prefix ("school" matches "schools").
// Categories are tried in the order returned by All.
func Classify(descriptor string) Category {
	tokens := tokenize(descriptor)
	if len(tokens) == 0 {
		return Default
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if matchAny(tokens, kw) {
				return r.category
			}
		}
	}
	return Default
}

func matchAny(tokens []string, kw string) bool {
	for _, tok := range tokens {
		if len(kw) <= 2 {
			if tok == kw {
				return true
			}
			continue
		}
		if strings.HasPrefix(tok, kw) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
