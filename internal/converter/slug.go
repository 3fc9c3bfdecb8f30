package converter

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlug names uploads whose filename has no usable characters.
const fallbackSlug = "image"

// Letters that carry no combining mark, so decomposition alone would drop them.
var slugReplacer = strings.NewReplacer(
	"ı", "i", "İ", "i", "ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "đ", "d", "Đ", "d", "ł", "l", "Ł", "l", "þ", "th", "ð", "d",
)

// Slugify turns a client filename (without extension) into a lower-case,
// ASCII, hyphen-separated slug.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, slugReplacer.Replace(name))
	if err != nil {
		ascii = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(ascii) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}

	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// baseName strips directories and the extension from a client filename.
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// extension returns the lower-cased extension without the dot.
func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// folderCandidates yields {dateDir}/{slug}, {dateDir}/{slug}-2, ...
func folderCandidates(dateDir, slug string) func(int) (string, string) {
	return func(attempt int) (string, string) {
		name := slug
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d", slug, attempt)
		}
		return dateDir + "/" + name, name
	}
}
