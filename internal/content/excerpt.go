package content

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ellipsis is appended to truncated excerpts.
const Ellipsis = "…"

var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Hr:         true,
	atom.Div:        true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Tr:         true,
	atom.Td:         true,
	atom.Th:         true,
}

// rawTextTags hold unparsed text that never reads as prose. The tokenizer
// always pairs them with their end tag or runs them to EOF.
var rawTextTags = map[atom.Atom]bool{
	atom.Script:    true,
	atom.Style:     true,
	atom.Textarea:  true,
	atom.Title:     true,
	atom.Xmp:       true,
	atom.Iframe:    true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Noscript:  true,
	atom.Plaintext: true,
}

// Excerpt strips tags from raw, collapses whitespace and truncates the result
// to maxLength characters. Ellipsis is appended only when text was cut.
// A non-positive maxLength yields "".
func Excerpt(raw string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	text := strings.Join(strings.Fields(PlainText(raw)), " ")
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxLength])) + Ellipsis
}

// PlainText returns the text content of raw with entities decoded. Contents of
// script-like elements are skipped and block boundaries become spaces.
func PlainText(raw string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is the answer
			return b.String()
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if rawTextTags[a] && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if blockTags[a] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if rawTextTags[a] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockTags[a] {
				b.WriteByte(' ')
			}
		}
	}
}
