package model

import "strings"

// languageNames covers the languages the newsletter publishes in.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"pt": "Portuguese",
	"fr": "French",
	"ar": "Arabic",
	"zh": "Chinese",
	"ja": "Japanese",
	"de": "German",
	"it": "Italian",
	"ru": "Russian",
	"ko": "Korean",
	"nl": "Dutch",
	"tr": "Turkish",
	"hi": "Hindi",
}

// NormalizeLanguage lower-cases a code and strips any region suffix ("pt-BR" → "pt").
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// LanguageName returns the English display name, or the code itself when unknown.
func LanguageName(code string) string {
	if name, ok := languageNames[NormalizeLanguage(code)]; ok {
		return name
	}
	return code
}
