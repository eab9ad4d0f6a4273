package notion

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxSegmentChars = 2000

var (
	linkTokens   = regexp.MustCompile(`\[([^\[\]]*)\]\((.*?)\)`)
	linkParts    = regexp.MustCompile(`\[(.+)\]\((.+)\)`)
	leadingText  = regexp.MustCompile(`^(.*?)\$\(\(`)
	placeholders = regexp.MustCompile(`\$\(\((.*?)\)\)`)
)

// MarkdownToBlocks converts markdown into paragraph blocks, one block
// per non-blank line. Inline [text](url) links become linked rich-text
// segments; everything else is carried as plain text. The conversion
// is deliberately shallow: paragraph blocks with rich text cover what
// reconciled email markdown contains.
func MarkdownToBlocks(markdown string) []Block {
	if markdown == "" {
		return nil
	}

	var blocks []Block
	for _, line := range strings.Split(markdown, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, Block{
			Object:    "block",
			Type:      "paragraph",
			Paragraph: Paragraph{RichText: segmentLine(line)},
		})
	}
	return blocks
}

// segmentLine swaps recognized link tokens for numbered placeholders,
// then walks the line splicing text and link segments back together in
// order.
func segmentLine(line string) []RichText {
	special := map[int]RichText{}
	counter := 0
	for _, token := range linkTokens.FindAllString(line, -1) {
		counter++
		segment, ok := linkSegment(token)
		if !ok {
			continue
		}
		special[counter] = segment
		line = strings.Replace(line, token, fmt.Sprintf("$((%d))", counter), 1)
	}

	segments := []RichText{}
	for len(line) > 0 {
		if m := leadingText.FindStringSubmatch(line); m != nil && m[1] != "" {
			segments = append(segments, textSegment(m[1]))
			line = strings.Replace(line, m[1], "", 1)
			continue
		}
		if m := placeholders.FindStringSubmatchIndex(line); m != nil {
			key, _ := strconv.Atoi(line[m[2]:m[3]])
			if segment, ok := special[key]; ok {
				segments = append(segments, segment)
			}
			line = line[:m[0]] + line[m[1]:]
			continue
		}
		segments = append(segments, textSegment(line))
		break
	}
	return segments
}

func textSegment(text string) RichText {
	return RichText{
		Type: "text",
		Text: RichTextBody{Content: shorten(text, maxSegmentChars)},
	}
}

// linkSegment builds a linked segment from a [text](url) token; only
// absolute http(s) URLs qualify, anything else stays literal text.
func linkSegment(token string) (RichText, bool) {
	m := linkParts.FindStringSubmatch(token)
	if m == nil {
		return RichText{}, false
	}
	text, href := m[1], m[2]
	if !isValidURL(href) {
		return RichText{}, false
	}
	return RichText{
		Type:      "text",
		Text:      RichTextBody{Content: text, Link: &TextLink{URL: href}},
		PlainText: text,
		Href:      href,
	}, true
}

func isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// shorten truncates to at most limit bytes including the ellipsis,
// backing up so the cut never lands inside a multi-byte rune.
func shorten(text string, limit int) string {
	if len(text) < limit {
		return text
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
