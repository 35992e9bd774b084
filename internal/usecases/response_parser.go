package usecases

import (
	"regexp"
	"strconv"
	"strings"

	"supportpilot/internal/entities"
)

// Confidence values when the model omits the footer and we fall back to a
// keyword heuristic over the reply text.
const (
	uncertainConfidence = 0.3
	assumedConfidence   = 0.85
)

var (
	confidenceRe = regexp.MustCompile(`(?i)confidence:\s*([\d.]+)`)
	citationRe   = regexp.MustCompile(`\[(\d+)\]`)
	footerRe     = regexp.MustCompile(`(?im)^\s*(?:sources:[^\n]*\|\s*)?confidence:\s*[\d.]+\s*$`)
)

var uncertaintyPhrases = []string{
	"i don't know",
	"i do not know",
	"not enough information",
	"i'm not sure",
	"i am not sure",
	"unclear",
	"cannot answer",
	"can't answer",
}

// ExtractConfidence parses the self-reported confidence from a model reply.
// Values above 1 are treated as percentages. Without a parseable footer the
// keyword heuristic decides between low and assumed-high confidence.
func ExtractConfidence(reply string) float64 {
	if m := confidenceRe.FindStringSubmatch(reply); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if value > 1 {
				value /= 100
			}
			if value < 0 {
				return 0
			}
			if value > 1 {
				return 1
			}
			return value
		}
	}

	lower := strings.ToLower(reply)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return uncertainConfidence
		}
	}
	return assumedConfidence
}

// ExtractCitations returns the citation indices found in a reply,
// deduplicated and order-preserving.
func ExtractCitations(reply string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range citationRe.FindAllStringSubmatch(reply, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ResolveCitations maps 1-based citation indices onto retrieval result
// document ids. Out-of-range indices are dropped silently.
func ResolveCitations(indices []int, results []entities.RetrievalResult) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range indices {
		if n < 1 || n > len(results) {
			continue
		}
		docID := results[n-1].DocID
		if seen[docID] {
			continue
		}
		seen[docID] = true
		out = append(out, docID)
	}
	return out
}

// StripFooter removes the machine-parseable Sources/Confidence footer from
// the customer-visible reply. Leaking the footer to end users is noise, so
// the stripped form is what gets persisted and sent.
func StripFooter(reply string) string {
	return strings.TrimSpace(footerRe.ReplaceAllString(reply, ""))
}
