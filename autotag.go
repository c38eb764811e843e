package engram

import (
	"regexp"
	"strings"
)

// --- Auto-tag candidate extraction ---

var (
	bracketRe = regexp.MustCompile(`\[([A-Za-z0-9_]+)\]`)
	quoteRe   = regexp.MustCompile(`"([^"]{2,40})"`)
	properRe  = regexp.MustCompile(`(?:^|[.!?]\s+|\s)([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
)

// SuggestTags extracts candidate tag strings from memory content using
// cheap lexical heuristics: bracketed identifiers, quoted phrases, and
// capitalized multi-word proper nouns. Used by the write path (§4.3)
// unless AddInput.NoAutoTag is set.
func SuggestTags(content string) []string {
	seen := make(map[string]bool)
	var tags []string

	add := func(text string) {
		text = strings.TrimSpace(text)
		lower := strings.ToLower(text)
		if text == "" || len(text) < 2 || len(text) > 60 || seen[lower] {
			return
		}
		seen[lower] = true
		tags = append(tags, lower)
	}

	for _, match := range bracketRe.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	for _, match := range quoteRe.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	for _, match := range properRe.FindAllStringSubmatch(content, 5) {
		text := strings.TrimSpace(match[1])
		if !isCommonPhrase(text) {
			add(text)
		}
	}

	return tags
}

// isCommonPhrase filters out false-positive proper nouns that are really
// just sentence-leading pronoun/question phrases.
func isCommonPhrase(s string) bool {
	common := []string{
		"The", "This", "That", "What", "When", "Where", "How", "Why",
		"I Am", "You Are", "We Are", "They Are",
	}
	lower := strings.ToLower(s)
	for _, c := range common {
		if strings.ToLower(c) == lower {
			return true
		}
	}
	return false
}
