// Package convention derives names from minimal document definitions.
// Collection names, GraphQL type names and field names all follow from
// the document name.
package convention

import (
	"strings"
	"unicode"
)

// Collection returns the storage collection (table) name for a document:
// the snake_cased plural of its name ("BlogPost" -> "blog_posts").
func Collection(document string) string {
	return Pluralize(Snake(document))
}

// EnumTypeName returns the name of the enum generated for a field.
func EnumTypeName(typeName, field string) string {
	return typeName + Pascal(field) + "Enum"
}

// EventName returns the change event name for a document action.
func EventName(document, action string) string {
	return document + "." + action
}

// Pascal converts snake_case or camelCase to PascalCase.
func Pascal(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Snake converts PascalCase or camelCase to snake_case.
func Snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
