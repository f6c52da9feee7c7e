package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFileNameRunes caps sanitized names; the extension is preserved.
const MaxFileNameRunes = 120

// SanitizeFileName reduces name to a safe base name. Directory components are
// dropped, accents are folded (NFKD with combining marks removed), and any
// rune other than a letter, digit, '.', '-' or '_' becomes '_'. Leading dots
// are stripped so the result is never hidden. Returns "" when nothing usable
// remains.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return ""
	}

	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	out = strings.TrimRight(out, "_")
	if out == "" || strings.Trim(out, ".") == "" {
		return ""
	}
	return truncate(out, MaxFileNameRunes)
}

func truncate(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if utf8.RuneCountInString(ext) >= limit {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	keep := limit - utf8.RuneCountInString(ext)
	return string(stem[:keep]) + ext
}
