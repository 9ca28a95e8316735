// Package mention renders @Name tokens in protocol item text.
package mention

import (
	"regexp"
	"strings"
)

// tokenPattern matches "@" followed by letter/digit segments joined by single
// underscores, e.g. @Jane, @Jane_Doe or @Jörg_Müller. A trailing underscore
// is not part of the token.
var tokenPattern = regexp.MustCompile(`@([\p{L}\p{N}]+(?:_[\p{L}\p{N}]+)*)`)

// Segment is a run of plain text or a resolved mention. For mentions Text is
// the display name.
type Segment struct {
	Text    string
	Mention bool
}

// Render replaces every mention token with its display name wrapped in
// bold+underline markup. "@Jane_Doe" becomes "<b><u>Jane Doe</u></b>".
// An "@" that is not followed by a letter or digit is left as is.
func Render(text string) string {
	var b strings.Builder
	for _, s := range Split(text) {
		if s.Mention {
			b.WriteString("<b><u>" + s.Text + "</u></b>")
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Split cuts text into plain and mention segments in reading order. Plain
// text is passed through unchanged; adjacent plain runs are never split.
func Split(text string) []Segment {
	var out []Segment
	pos := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		if pos < m[0] {
			out = append(out, Segment{Text: text[pos:m[0]]})
		}
		out = append(out, Segment{Text: Display(text[m[2]:m[3]]), Mention: true})
		pos = m[1]
	}
	if pos < len(text) {
		out = append(out, Segment{Text: text[pos:]})
	}
	return out
}

// Token converts a resident's full name into the mention token grammar.
func Token(firstName, lastName string) string {
	full := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	return strings.Join(strings.Fields(full), "_")
}

// Display turns a token body back into a readable name.
func Display(token string) string {
	return strings.ReplaceAll(token, "_", " ")
}

// Tokens lists the token bodies found in text, in order of appearance.
func Tokens(text string) []string {
	var out []string
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
