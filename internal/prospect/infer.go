package prospect

import (
	"strings"
	"unicode"
)

type inference struct {
	industry string
	words    []string
}

// Ordered; the first hit wins.
var inferences = []inference{
	{"Construction", []string{"plumbing", "hvac", "ac", "contractor", "construction", "roofing", "electric"}},
	{"Technology", []string{"technology", "tech", "it", "computer", "software"}},
	{"Professional Services", []string{"consulting", "consultant", "advisory", "law", "legal"}},
	{"Services", []string{"security", "exterminating", "pest", "cleaning"}},
	{"Office", []string{"coworking", "workspace", "office", "regus"}},
	{"Education", []string{"school", "academy", "college", "university"}},
	{"Manufacturing", []string{"manufacturing", "industries", "factory", "fabrication"}},
	{"Marketing", []string{"marketing", "advertising", "agency"}},
	{"Financial Services", []string{"insurance", "financial", "trust", "bank"}},
	{"Engineering", []string{"engineering", "engineer", "design"}},
}

// InferIndustry guesses an industry descriptor from the company name. It
// returns "Business" when nothing matches.
func InferIndustry(companyName string) string {
	words := strings.FieldsFunc(strings.ToLower(companyName), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, inf := range inferences {
		for _, w := range words {
			for _, kw := range inf.words {
				if w == kw || (len(kw) > 3 && strings.HasPrefix(w, kw)) {
					return inf.industry
				}
			}
		}
	}
	return "Business"
}
