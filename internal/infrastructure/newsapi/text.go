package newsapi

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NewsAPI cuts content at ~200 chars and appends e.g. "… [+2345 chars]".
var truncationMarker = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)

// markup matches an opening or closing tag; a bare "<" in prose does not.
var markup = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)

// cleanText strips markup and the provider truncation marker, collapsing whitespace.
func cleanText(raw string) string {
	text := raw
	switch {
	case markup.MatchString(text):
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			text = doc.Text()
		}
	case strings.Contains(text, "&"):
		text = html.UnescapeString(text)
	}
	text = truncationMarker.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
