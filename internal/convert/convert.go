// Package convert turns sanitized email HTML into the plain-text and
// markdown renditions stored alongside the original body.
package convert

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.io/infrasutra/emailsync/internal/htmlutil"
)

var cidRefs = regexp.MustCompile(`(?i)cid:[^"]+`)

// blockTags force a line break in the plain-text rendition.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"table": {}, "tr": {}, "blockquote": {}, "pre": {}, "hr": {},
}

// ToPlainText renders HTML as plain text: block elements break lines,
// anchors render as "text <url>", images as "[image: src]". The
// tokenizer tolerates malformed markup, so arbitrary mail bodies are
// safe to feed through.
func ToPlainText(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	var hrefStack []string
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch tag {
			case "style", "script":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "a":
				href := attrValue(z, hasAttr, "href")
				if tt == html.StartTagToken {
					hrefStack = append(hrefStack, href)
				}
			case "img":
				src := attrValue(z, hasAttr, "src")
				if src != "" {
					b.WriteString("[image: " + src + "]")
				}
			default:
				if _, ok := blockTags[tag]; ok {
					breakLine(&b)
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch tag {
			case "style", "script":
				if skipDepth > 0 {
					skipDepth--
				}
			case "a":
				if n := len(hrefStack); n > 0 {
					if href := hrefStack[n-1]; href != "" {
						b.WriteString(" <" + href + ">")
					}
					hrefStack = hrefStack[:n-1]
				}
			default:
				if _, ok := blockTags[tag]; ok {
					breakLine(&b)
				}
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// ToMarkdown converts HTML to markdown. Hrefs are quoted first so the
// converter does not drop malformed anchors, and numeric entities left
// in the converter output are decoded afterwards. Output depends only
// on the input HTML.
func ToMarkdown(rawHTML string) string {
	fixed := htmlutil.FixUnquotedHrefs(rawHTML)
	markdown, err := htmltomarkdown.ConvertString(fixed)
	if err != nil {
		markdown = ToPlainText(fixed)
	}
	return htmlutil.DecodeNumericEntities(markdown)
}

// EmbeddedContentIDs returns every cid: reference in the HTML, prefix
// stripped, in order of appearance. Duplicates are preserved: the
// caller correlates them positionally against the attachment list.
func EmbeddedContentIDs(rawHTML string) []string {
	matches := cidRefs.FindAllString(rawHTML, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[len("cid:"):])
	}
	return ids
}

func attrValue(z *html.Tokenizer, hasAttr bool, name string) string {
	for hasAttr {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return string(val)
		}
		hasAttr = more
	}
	return ""
}

func breakLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}
