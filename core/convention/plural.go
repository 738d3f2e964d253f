package convention

import "strings"

// Pluralize returns the plural form of a word using simple English rules.
// For snake_case words only the last segment is pluralized.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}
	if i := strings.LastIndexByte(word, '_'); i >= 0 && i < len(word)-1 {
		return word[:i+1] + Pluralize(word[i+1:])
	}

	lower := strings.ToLower(word)
	if plural, ok := irregularPlurals[lower]; ok {
		return matchCase(word, plural)
	}
	if uncountable[lower] {
		return word
	}

	switch {
	case hasAnySuffix(lower, "s", "x", "z", "ch", "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(lower, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(lower, "f") && !strings.HasSuffix(lower, "ff"):
		return word[:len(word)-1] + "ves"
	}
	return word + "s"
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// matchCase copies the case of word's first letter onto repl.
func matchCase(word, repl string) string {
	if word[0] >= 'A' && word[0] <= 'Z' {
		return strings.ToUpper(repl[:1]) + repl[1:]
	}
	return repl
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouAEIOU", r)
}

var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"mouse":  "mice",
	"index":  "indexes",
	"datum":  "data",
	"medium": "media",
	"schema": "schemas",
	"status": "statuses",
}

var uncountable = map[string]bool{
	"news":        true,
	"metadata":    true,
	"information": true,
	"equipment":   true,
	"series":      true,
}
