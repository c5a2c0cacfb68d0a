package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// NormalizeLanguage canonicalizes a language code ("HI" -> "hi", "en-us" -> "en-US").
// Codes that do not parse are trimmed and lower-cased.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// SameBaseLanguage reports whether two codes share a base language, so "en-GB" matches "en"
func SameBaseLanguage(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	// inferred bases ("und" -> "en") do not count
	ba, confA := ta.Base()
	bb, confB := tb.Base()
	return confA == language.Exact && confB == language.Exact && ba == bb
}

// IsBlank reports whether text is empty or whitespace only
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// IsNumeric reports whether the trimmed text parses entirely as a number:
// a decimal literal, an unsigned 0x/0o/0b integer, or a signed "Infinity".
// NaN, "inf" spellings, hex floats and digit separators are not numeric.
func IsNumeric(text string) bool {
	s := strings.TrimSpace(text)
	switch s {
	case "":
		return false
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}

	if len(s) > 2 && s[0] == '0' {
		if base, ok := integerBases[s[1]]; ok {
			_, err := strconv.ParseUint(s[2:], base, 64)
			return err == nil || errors.Is(err, strconv.ErrRange)
		}
	}

	if strings.TrimLeft(s, "0123456789+-.eE") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

var integerBases = map[byte]int{
	'x': 16, 'X': 16,
	'o': 8, 'O': 8,
	'b': 2, 'B': 2,
}

// IsShorterThan reports whether the trimmed text has fewer than n runes
func IsShorterThan(text string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < n
}
