package retriever

import "strings"

// acronymExpansions maps regulatory abbreviations to the phrases the study
// material spells out. Expansions are appended after the acronym so both
// surface forms contribute to the embedding.
var acronymExpansions = map[string]string{
	"aml":   "anti money laundering",
	"cobs":  "conduct of business sourcebook",
	"fca":   "financial conduct authority",
	"fos":   "financial ombudsman service",
	"fscs":  "financial services compensation scheme",
	"fsma":  "financial services and markets act",
	"mifid": "markets in financial instruments directive",
	"pra":   "prudential regulation authority",
	"smcr":  "senior managers and certification regime",
	"tcf":   "treating customers fairly",
}

// Normalize canonicalizes question text for embedding and cache keying:
// lowercase, hyphens to spaces, regulatory acronyms expanded in place, and
// whitespace collapsed. Normalize is idempotent, so cache keys derived from
// already-normalized text stay stable.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	lowered = strings.ReplaceAll(lowered, "-", " ")

	words := strings.Fields(lowered)
	joined := strings.Join(words, " ")

	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, w)
		expansion, ok := acronymExpansions[strings.Trim(w, ".,;:!?()\"'")]
		// Skip the expansion when it already follows the acronym, which
		// keeps repeated normalization from growing the text.
		if ok && !strings.Contains(joined, expansion) {
			out = append(out, expansion)
		}
	}
	return strings.Join(out, " ")
}
