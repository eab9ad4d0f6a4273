package email

import "testing"

func TestAddAttachmentLinks(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		links    []AttachmentLink
		want     string
	}{
		{
			"embedded cid replaced in place",
			"See ![pic.png](cid:abc123) below",
			[]AttachmentLink{{Filename: "pic.png", URL: "https://x/1", ContentID: "abc123"}},
			"See ![pic.png](https://x/1) below",
		},
		{
			"no content id appends plain link",
			"Hello",
			[]AttachmentLink{{Filename: "doc.pdf", URL: "https://x/2", ContentID: ""}},
			"Hello\n[doc.pdf](https://x/2)",
		},
		{
			"content id without occurrence appends",
			"Hello",
			[]AttachmentLink{{Filename: "pic.png", URL: "https://x/3", ContentID: "zzz"}},
			"Hello\n[pic.png](https://x/3)",
		},
		{
			"only first occurrence replaced",
			"![a](cid:dup) and ![b](cid:dup)",
			[]AttachmentLink{{Filename: "a.png", URL: "https://x/4", ContentID: "dup"}},
			"![a](https://x/4) and ![b](cid:dup)",
		},
		{
			"links applied in input order",
			"![a](cid:one) ![b](cid:two)",
			[]AttachmentLink{
				{Filename: "a.png", URL: "https://x/a", ContentID: "one"},
				{Filename: "b.png", URL: "https://x/b", ContentID: "two"},
			},
			"![a](https://x/a) ![b](https://x/b)",
		},
	}
	for _, tt := range tests {
		if got := AddAttachmentLinks(tt.markdown, tt.links); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.name, got, tt.want)
		}
	}
}

func TestStripImageMarkers(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			"image tokens demoted",
			"This is some ![embedded.png](https://some.url) embedded image ![link](http://some.other.url)",
			"This is some [embedded.png](https://some.url) embedded image [link](http://some.other.url)",
		},
		{
			"plain links untouched",
			"This is some [embedded.png](https://some.url) link, [hello](http://some.other.url)",
			"This is some [embedded.png](https://some.url) link, [hello](http://some.other.url)",
		},
		{
			"empty alt text",
			"![](https://some.url)",
			"[](https://some.url)",
		},
	}
	for _, tt := range tests {
		if got := StripImageMarkers(tt.markdown); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.name, got, tt.want)
		}
	}
}

// Substitution must run before marker stripping: the cid fragment only
// exists inside image-marker syntax.
func TestReconcile(t *testing.T) {
	markdown := "See ![pic.png](cid:abc123) below"
	links := []AttachmentLink{{Filename: "pic.png", URL: "https://x/1", ContentID: "abc123"}}

	got := Reconcile(markdown, links)
	want := "See [pic.png](https://x/1) below"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReconcileAppendsThenStrips(t *testing.T) {
	got := Reconcile("Hello", []AttachmentLink{{Filename: "doc.pdf", URL: "https://x/2"}})
	want := "Hello\n[doc.pdf](https://x/2)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
