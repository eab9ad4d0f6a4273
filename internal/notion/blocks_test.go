package notion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMarkdownToBlocks(t *testing.T) {
	blocks := MarkdownToBlocks("first line\n\nsecond line")

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	for _, b := range blocks {
		if b.Object != "block" || b.Type != "paragraph" {
			t.Fatalf("unexpected block shape: %+v", b)
		}
	}
	if blocks[0].Paragraph.RichText[0].Text.Content != "first line" {
		t.Fatalf("first block content wrong: %+v", blocks[0])
	}
}

func TestMarkdownToBlocksEmpty(t *testing.T) {
	if blocks := MarkdownToBlocks(""); blocks != nil {
		t.Fatalf("empty markdown should yield nil, got %v", blocks)
	}
}

func TestMarkdownToBlocksLinks(t *testing.T) {
	blocks := MarkdownToBlocks("before [pic.png](https://x.test/1) after")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}

	segments := blocks[0].Paragraph.RichText
	if len(segments) != 3 {
		t.Fatalf("expected text/link/text segments, got %+v", segments)
	}
	if segments[0].Text.Content != "before " {
		t.Errorf("leading text wrong: %+v", segments[0])
	}
	link := segments[1]
	if link.Text.Content != "pic.png" || link.Text.Link == nil || link.Text.Link.URL != "https://x.test/1" {
		t.Errorf("link segment wrong: %+v", link)
	}
	if segments[2].Text.Content != " after" {
		t.Errorf("trailing text wrong: %+v", segments[2])
	}
}

func TestMarkdownToBlocksMultipleLinks(t *testing.T) {
	blocks := MarkdownToBlocks("[a](https://x.test/a) and [b](https://x.test/b)")
	segments := blocks[0].Paragraph.RichText

	var linked int
	for _, s := range segments {
		if s.Text.Link != nil {
			linked++
		}
	}
	if linked != 2 {
		t.Fatalf("expected 2 linked segments, got %d: %+v", linked, segments)
	}
}

// Non-http(s) targets stay literal text rather than becoming links.
func TestMarkdownToBlocksRejectsBadURLs(t *testing.T) {
	blocks := MarkdownToBlocks("see [name](cid:abc123) here")
	for _, s := range blocks[0].Paragraph.RichText {
		if s.Text.Link != nil {
			t.Fatalf("cid target should not link: %+v", s)
		}
	}
}

func TestShorten(t *testing.T) {
	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'x'
	}
	got := shorten(string(long), 2000)
	if len(got) != 2000 {
		t.Fatalf("expected 2000 chars, got %d", len(got))
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}
	if shorten("short", 2000) != "short" {
		t.Fatal("short strings must pass through")
	}
}

func TestShortenKeepsRunesIntact(t *testing.T) {
	// "é" is two bytes; 11 of them put every possible cut point inside
	// a rune for a small limit.
	long := strings.Repeat("é", 11)
	got := shorten(long, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) > 10 {
		t.Fatalf("expected at most 10 bytes, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}
