package script

import (
	"strings"

	"golang.org/x/text/language"
)

// Languages the speech voices are tuned for.
var supportedLanguages = map[string]language.Tag{
	"en":       language.English,
	"es":       language.Spanish,
	"es_latam": language.LatinAmericanSpanish,
}

// SupportedLanguages lists the codes with tuned voices.
func SupportedLanguages() []string {
	return []string{"en", "es", "es_latam"}
}

// IsSupportedLanguage reports whether code has tuned voices.
func IsSupportedLanguage(code string) bool {
	_, ok := supportedLanguages[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// LanguageTag maps a script language code onto a BCP 47 tag. Unknown or
// unparsable codes report ok=false and language.Und.
func LanguageTag(code string) (language.Tag, bool) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if tag, ok := supportedLanguages[normalized]; ok {
		return tag, true
	}
	tag, err := language.Parse(strings.ReplaceAll(normalized, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
