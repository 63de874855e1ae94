package parsers

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// allowedTags maps each permitted element to its permitted attributes.
// Elements outside the table are dropped while their text content is
// kept; script and style lose their content as well.
var allowedTags = map[string]map[string]bool{
	"a":          {"href": true, "title": true},
	"abbr":       {"title": true},
	"blockquote": {"cite": true},
	"br":         {},
	"code":       {},
	"del":        {},
	"div":        {},
	"em":         {},
	"h1":         {},
	"h2":         {},
	"h3":         {},
	"h4":         {},
	"h5":         {},
	"h6":         {},
	"hr":         {},
	"img":        {"src": true, "alt": true, "title": true},
	"ins":        {},
	"li":         {},
	"ol":         {},
	"p":          {},
	"pre":        {},
	"q":          {"cite": true},
	"span":       {},
	"strong":     {},
	"sub":        {},
	"sup":        {},
	"table":      {},
	"tbody":      {},
	"td":         {},
	"th":         {},
	"thead":      {},
	"tr":         {},
	"ul":         {},
}

// voidTags never carry an end tag.
var voidTags = map[string]bool{
	"br":  true,
	"hr":  true,
	"img": true,
}

// contentless elements drop their whole subtree.
var contentlessTags = map[string]bool{
	"script": true,
	"style":  true,
}

// urlAttrs are attributes whose values must carry a safe scheme.
var urlAttrs = map[string]bool{
	"href": true,
	"src":  true,
	"cite": true,
}

// HTMLParser accepts restricted HTML: a fixed tag and attribute
// whitelist, safe link schemes only, comments and markup outside the
// whitelist stripped.
type HTMLParser struct{}

// Name implements Parser.
func (HTMLParser) Name() string { return "html" }

// DisplayName implements Parser.
func (HTMLParser) DisplayName() string { return "HTML" }

// Parse implements Parser.
func (HTMLParser) Parse(input string) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var (
		b         strings.Builder
		skipDepth int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return strings.TrimSpace(b.String()), nil
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(string(tokenizer.Text())))
			}
		case html.StartTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)
			if contentlessTags[tag] {
				skipDepth++
				continue
			}
			writeTag(&b, tokenizer, tag, hasAttr, false)
		case html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)
			if !contentlessTags[tag] {
				writeTag(&b, tokenizer, tag, hasAttr, true)
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if contentlessTags[tag] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth == 0 && allowedTags[tag] != nil && !voidTags[tag] {
				b.WriteString("</" + tag + ">")
			}
		case html.CommentToken, html.DoctypeToken:
			// dropped
		}
	}
}

// writeTag emits a whitelisted start tag with its permitted attributes.
func writeTag(b *strings.Builder, tokenizer *html.Tokenizer, tag string, hasAttr, selfClosing bool) {
	allowed, ok := allowedTags[tag]
	if !ok {
		return
	}
	b.WriteString("<" + tag)
	for hasAttr {
		var key, value []byte
		key, value, hasAttr = tokenizer.TagAttr()
		attr := string(key)
		if !allowed[attr] {
			continue
		}
		text := string(value)
		if urlAttrs[attr] && !safeURL(text) {
			continue
		}
		fmt.Fprintf(b, ` %s="%s"`, attr, html.EscapeString(text))
	}
	if selfClosing && !voidTags[tag] {
		b.WriteString("></" + tag + ">")
		return
	}
	b.WriteString(">")
}

// safeURL accepts relative references and the http, https, and mailto
// schemes.
func safeURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "", "http", "https", "mailto":
		return true
	default:
		return false
	}
}
