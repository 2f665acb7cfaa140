// Package hybrid extracts lexical signals from query text: monetary and
// percentage amounts, and matches against a controlled vocabulary of
// regulatory section keywords. The signals are advisory boost hints for the
// search pipeline; retrieval must still succeed with zero matches.
package hybrid

import (
	"regexp"
	"strings"
)

// amountPattern matches currency amounts and percentages as they appear in
// the UKFR study material: "£85,000", "$5m", "€1.5 million", "0.5%",
// "10 per cent".
var amountPattern = regexp.MustCompile(
	`(?i)(?:[£$€]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|m|bn|k))?|\d[\d,]*(?:\.\d+)?\s?(?:%|per\s?cent))`)

// sectionVocabulary is the fixed set of section keywords that matter for
// regulatory study questions. Matching is done on lowercased query text.
var sectionVocabulary = []string{
	"appointed representative",
	"approved person",
	"authorisation",
	"client assets",
	"client money",
	"compensation",
	"complaints",
	"conduct of business",
	"disclosure",
	"eligibility",
	"enforcement",
	"exclusions",
	"financial promotion",
	"fit and proper",
	"insider dealing",
	"market abuse",
	"money laundering",
	"ombudsman",
	"penalties",
	"principles for businesses",
	"regulated activity",
	"senior managers",
	"supervision",
	"threshold conditions",
	"training and competence",
	"whistleblowing",
}

// Signals carries the extracted hints for one query.
type Signals struct {
	Amounts  []string
	Sections []string
}

// Terms flattens the signals into a single boost-term list.
func (s Signals) Terms() []string {
	if len(s.Amounts) == 0 && len(s.Sections) == 0 {
		return nil
	}
	terms := make([]string, 0, len(s.Amounts)+len(s.Sections))
	terms = append(terms, s.Amounts...)
	terms = append(terms, s.Sections...)
	return terms
}

// Extract pulls both amount and section signals from raw query text.
func Extract(text string) Signals {
	return Signals{
		Amounts:  ExtractAmounts(text),
		Sections: ExtractSections(text),
	}
}

// ExtractAmounts returns the deduplicated currency and percentage tokens
// found in the text, lowercased with whitespace runs collapsed.
func ExtractAmounts(text string) []string {
	matches := amountPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	amounts := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.Join(strings.Fields(strings.ToLower(m)), " ")
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		amounts = append(amounts, token)
	}
	return amounts
}

// ExtractSections returns the intersection of the text with the section
// vocabulary, in vocabulary order.
func ExtractSections(text string) []string {
	lowered := strings.ToLower(text)
	var sections []string
	for _, keyword := range sectionVocabulary {
		if strings.Contains(lowered, keyword) {
			sections = append(sections, keyword)
		}
	}
	return sections
}
