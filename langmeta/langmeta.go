// Package langmeta resolves display metadata (English and native names)
// for locale codes. It is used to fill in missing locale labels, which are
// what the translation provider sees as the target language.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Code is the canonical form of the requested code (e.g. "pt-BR").
	Code string
	// EnglishName is the language name in English (e.g. "French").
	EnglishName string
	// NativeName is the language name in the language itself (e.g. "français").
	NativeName string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for a locale code,
// supporting variants like pt_BR and pt-BR. Codes that cannot be resolved
// fall back to the code itself for both names.
func Resolve(lang string) Meta {
	code := canonicalize(lang)
	m := Meta{Code: code, EnglishName: lang, NativeName: lang}
	if code == "" {
		return m
	}

	tag, err := language.Parse(code)
	if err != nil {
		return m
	}

	if name := display.English.Tags().Name(tag); name != "" {
		m.EnglishName = name
	}
	if name := display.Self.Name(tag); name != "" {
		m.NativeName = name
	}
	return m
}
