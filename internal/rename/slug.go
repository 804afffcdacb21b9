package rename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const separator = "_"

var (
	quotes    = strings.NewReplacer("'", "", "’", "", "‘", "", `"`, "")
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	stripMark = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify converts s to a lower-case, filename-safe slug with words joined
// by underscores. Accents are folded to their base letters and characters
// with no ASCII equivalent are dropped.
func Slugify(s string) string {
	folded, _, err := transform.String(stripMark, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(quotes.Replace(folded))
	folded = nonAlnum.ReplaceAllString(folded, separator)
	return strings.Trim(folded, separator)
}

// FileName builds "{author}-{title}.pdf" from slugs. An empty author slug
// yields "{title}.pdf" with no leading dash. Both empty yields "".
func FileName(author, title string) string {
	a, t := Slugify(author), Slugify(title)
	switch {
	case a == "" && t == "":
		return ""
	case a == "":
		return t + ".pdf"
	case t == "":
		return a + ".pdf"
	default:
		return a + "-" + t + ".pdf"
	}
}
