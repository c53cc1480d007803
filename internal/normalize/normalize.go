// Package normalize holds the per-field canonicalization rules applied to
// every raw source value before matching. Every function is total:
// unparseable input maps to the empty string ("unknown"), never an error.
package normalize

import (
	"strings"
	"unicode"
)

// accents is the fixed accented-to-plain letter map used for name fields.
// This intentionally covers only the letters the three source systems emit;
// it is not a general transliteration table.
var accents = map[rune]rune{
	'É': 'E', 'È': 'E', 'Ê': 'E', 'Ë': 'E',
	'À': 'A', 'Â': 'A',
	'Ù': 'U', 'Û': 'U',
	'Ô': 'O', 'Ö': 'O',
	'Î': 'I', 'Ï': 'I',
	'Ç': 'C',
}

// Name uppercases, strips diacritics, and trims. Idempotent.
func Name(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if plain, ok := accents[r]; ok {
			r = plain
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Date canonicalizes the three known source formats to YYYY-MM-DD:
// YYYY-MM-DD passes through, DD/MM/YYYY and YYYY/MM/DD are rearranged by
// checking which slash segment carries the 4-digit year. Anything else is
// unknown. The positional check is the whole rule; the sources emit exactly
// these three shapes, so no general date parsing happens here.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return ""
		}
		if !allDigits(parts[0]) || !allDigits(parts[1]) || !allDigits(parts[2]) {
			return ""
		}
		switch {
		case len(parts[2]) == 4: // DD/MM/YYYY
			return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
		case len(parts[0]) == 4: // YYYY/MM/DD
			return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
		}
		return ""
	}
	if len(s) == 10 {
		parts := strings.Split(s, "-")
		if len(parts) == 3 && len(parts[0]) == 4 &&
			allDigits(parts[0]) && allDigits(parts[1]) && allDigits(parts[2]) {
			return s
		}
	}
	return ""
}

// Phone strips everything but digits and keeps the last ten, dropping
// country-code prefixes. Fewer than ten digits is unknown.
func Phone(s string) string {
	var digits []rune
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 10 {
		return ""
	}
	return string(digits[len(digits)-10:])
}

// Canonical sex values.
const (
	SexMasculine = "Masculine"
	SexFeminine  = "Feminine"
)

// Sex maps the small fixed vocabulary the sources use, case-insensitively.
func Sex(s string) string {
	switch Name(s) {
	case "M", "H", "HOMME", "MASCULIN":
		return SexMasculine
	case "F", "FEMME", "FEMININ":
		return SexFeminine
	}
	return ""
}

// DisplayName parses a clinician display name ("Dr. Marie Dubois") into a
// given name and a name-normalized family name. Honorific prefixes are
// stripped first. With fewer than two tokens the whole string becomes the
// family name and the given name is unknown.
func DisplayName(s string) (given, family string) {
	s = strings.ReplaceAll(s, "Dr.", "")
	s = strings.ReplaceAll(s, "Pr.", "")
	s = strings.TrimSpace(s)
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return "", Name(s)
	}
	return Capitalize(parts[0]), Name(strings.Join(parts[1:], " "))
}

// Capitalize renders a single name token with an initial capital, the rest
// lowered. Used for given names, which keep their display casing.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
