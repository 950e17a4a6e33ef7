package orchestrator

import (
	"strings"
	"unicode"
)

// The catalog is predominantly French, so the stopword set mixes French and
// English function words plus the query chatter an assistant tends to pass
// through ("find me podcasts about ...", "je cherche des émissions sur ...").
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// French
		"le", "la", "les", "l", "un", "une", "des", "de", "du", "d",
		"et", "ou", "à", "au", "aux", "en", "sur", "pour", "dans", "par",
		"avec", "sans", "que", "qui", "quoi", "ce", "cette", "ces", "se",
		"est", "sont", "il", "elle", "on", "nous", "vous", "ils", "elles",
		"je", "tu", "moi", "mon", "ma", "mes", "plus", "propos",
		"cherche", "trouve", "trouver", "veux", "voudrais", "donne",
		"donnez", "écouter", "ecouter",
		// English
		"the", "a", "an", "of", "on", "about", "for", "with", "and", "or",
		"to", "in", "i", "me", "my", "want", "find", "search", "show",
		"give", "listen", "please", "some", "any",
		// Domain chatter
		"podcast", "podcasts", "émission", "émissions", "emission",
		"emissions", "épisode", "épisodes", "episode", "episodes",
		"programme", "programmes", "program", "programs", "radio",
	} {
		stopwords[w] = struct{}{}
	}
}

// extractKeywords normalizes a natural-language query into ordered keyword
// candidates: lowercase, split on whitespace/punctuation, stopwords and
// single letters dropped, duplicates removed preserving first occurrence.
func extractKeywords(query string) []string {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return nil
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// wantsPodcasts reports whether the query asks for shows rather than
// individual episodes.
func wantsPodcasts(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range []string{"podcast", "émission", "emission", "série", "serie", "show", "brand"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
