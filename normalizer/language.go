package normalizer

import (
	"strings"

	"golang.org/x/text/language"
)

const defaultLanguage = "en"

var languageMarkers = map[string]map[string]bool{
	"en": setOf("the", "and", "in", "of", "for", "what", "trends", "with", "recent"),
	"fr": setOf("le", "la", "les", "des", "et", "dans", "pour", "tendances", "du", "en"),
	"de": setOf("der", "die", "das", "und", "in", "für", "trends", "mit", "im", "den"),
	"es": setOf("el", "la", "los", "las", "y", "en", "para", "tendencias", "del", "de"),
	"it": setOf("il", "lo", "gli", "le", "e", "nel", "per", "tendenze", "della", "di"),
}

// ResolveLanguage picks the language for a query: a valid hint wins, then the
// language declared on the query, then a stop-word guess.
func ResolveLanguage(hint, declared, text string) string {
	for _, candidate := range []string{hint, declared} {
		if base, ok := baseLanguage(candidate); ok {
			return base
		}
	}
	return detectLanguage(text)
}

func baseLanguage(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	base, conf := parsed.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

func detectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	best, bestCount := defaultLanguage, 0
	for _, lang := range []string{"en", "fr", "de", "es", "it"} {
		count := 0
		for _, w := range words {
			if languageMarkers[lang][strings.Trim(w, ",.?!;:")] {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	return best
}
