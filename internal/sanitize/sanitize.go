// Package sanitize scrubs HTML received from other instances before it is
// stored or served. Remote content is hostile by default.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

var allowedTags = map[string]bool{
	"a":          true,
	"abbr":       true,
	"b":          true,
	"blockquote": true,
	"br":         true,
	"code":       true,
	"del":        true,
	"em":         true,
	"i":          true,
	"li":         true,
	"ol":         true,
	"p":          true,
	"pre":        true,
	"s":          true,
	"small":      true,
	"span":       true,
	"strong":     true,
	"sub":        true,
	"sup":        true,
	"u":          true,
	"ul":         true,
}

// attributes kept per tag, everything else is dropped
var allowedAttrs = map[string]map[string]bool{
	"a":    {"href": true, "rel": true, "class": true},
	"span": {"class": true},
	"code": {"class": true},
	"abbr": {"title": true},
}

// HTML returns the input with every element and attribute outside the
// allowlist removed. Text content of dropped elements is kept, except for
// script and style whose contents are discarded entirely.
func HTML(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var out strings.Builder
	var skip string // tag whose contents we are discarding
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			if skip == "" {
				out.WriteString(html.EscapeString(string(tokenizer.Text())))
			}
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data == "script" || token.Data == "style" {
				skip = token.Data
				continue
			}
			if skip == "" && allowedTags[token.Data] {
				writeTag(&out, token)
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == skip {
				skip = ""
				continue
			}
			if skip == "" && allowedTags[token.Data] {
				out.WriteString("</" + token.Data + ">")
			}
		case html.SelfClosingTagToken:
			token := tokenizer.Token()
			if skip == "" && allowedTags[token.Data] {
				writeTag(&out, token)
			}
		}
	}
}

func writeTag(out *strings.Builder, token html.Token) {
	out.WriteString("<" + token.Data)
	for _, attr := range token.Attr {
		if !allowedAttrs[token.Data][attr.Key] {
			continue
		}
		if attr.Key == "href" && !safeLink(attr.Val) {
			continue
		}
		out.WriteString(` ` + attr.Key + `="` + html.EscapeString(attr.Val) + `"`)
	}
	out.WriteString(">")
}

func safeLink(href string) bool {
	href = strings.TrimSpace(strings.ToLower(href))
	return strings.HasPrefix(href, "https://") ||
		strings.HasPrefix(href, "http://") ||
		strings.HasPrefix(href, "mailto:")
}
