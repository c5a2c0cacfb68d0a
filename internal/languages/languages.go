// Package languages holds the set of languages the site can be rendered in
// and negotiates a visitor's language from their browser preferences.
package languages

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a selectable site language
type Language struct {
	Code       string `json:"code" mapstructure:"code"`
	Name       string `json:"name" mapstructure:"name"`
	NativeName string `json:"nativeName" mapstructure:"native_name"`
}

// Default is the built-in list of supported languages
var Default = []Language{
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو"},
	{Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	{Code: "or", Name: "Odia", NativeName: "ଓଡ଼ିଆ"},
	{Code: "ml", Name: "Malayalam", NativeName: "മലയാളം"},
	{Code: "pa", Name: "Punjabi", NativeName: "ਪੰਜਾਬੀ"},
	{Code: "as", Name: "Assamese", NativeName: "অসমীয়া"},
	{Code: "bho", Name: "Bhojpuri", NativeName: "भोजपुरी"},
	{Code: "mai", Name: "Maithili", NativeName: "मैथिली"},
}

// Registry indexes the supported languages by base language code
type Registry struct {
	langs       []Language
	byBase      map[string]Language
	defaultLang Language
}

// NewRegistry builds a registry. Every code must be a valid BCP 47 tag and
// the default language must be among the supported ones.
func NewRegistry(langs []Language, defaultCode string) (*Registry, error) {
	if len(langs) == 0 {
		langs = Default
	}

	r := &Registry{
		langs:  make([]Language, 0, len(langs)),
		byBase: make(map[string]Language, len(langs)),
	}
	for _, l := range langs {
		base, err := baseOf(l.Code)
		if err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", l.Code, err)
		}
		if _, dup := r.byBase[base]; dup {
			return nil, fmt.Errorf("duplicate language code %q", l.Code)
		}
		l.Code = base
		r.byBase[base] = l
		r.langs = append(r.langs, l)
	}

	def, ok := r.Lookup(defaultCode)
	if !ok {
		return nil, fmt.Errorf("default language %q is not in the supported languages", defaultCode)
	}
	r.defaultLang = def

	return r, nil
}

// All returns the supported languages in configured order
func (r *Registry) All() []Language {
	out := make([]Language, len(r.langs))
	copy(out, r.langs)
	return out
}

// Default returns the native language of the site
func (r *Registry) Default() Language {
	return r.defaultLang
}

// Lookup finds a supported language by code; region and script subtags are ignored
func (r *Registry) Lookup(code string) (Language, bool) {
	base, err := baseOf(code)
	if err != nil {
		return Language{}, false
	}
	l, ok := r.byBase[base]
	return l, ok
}

// Negotiate picks the first supported language from an Accept-Language
// header value, in preference order, falling back to the default language
func (r *Registry) Negotiate(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return r.defaultLang
	}
	for _, tag := range tags {
		base, conf := tag.Base()
		if conf == language.No {
			continue
		}
		if l, ok := r.byBase[base.String()]; ok {
			return l
		}
	}
	return r.defaultLang
}

func baseOf(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	base, conf := tag.Base()
	if conf != language.Exact {
		return "", fmt.Errorf("no explicit base language in %q", code)
	}
	return base.String(), nil
}
