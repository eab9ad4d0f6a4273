package email

import (
	"fmt"
	"regexp"
	"strings"
)

var imageTokens = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

// AddAttachmentLinks rewrites markdown so uploaded attachments are
// reachable. Links with a content ID replace the first matching cid:
// fragment in place, keeping the enclosing image or link syntax; links
// without one, or whose fragment is not present, are appended as plain
// links. Occurrences are matched against the original markdown, in
// input order.
func AddAttachmentLinks(markdown string, links []AttachmentLink) string {
	edited := markdown

	for _, link := range links {
		if link.ContentID != "" {
			needle := "cid:" + link.ContentID
			if strings.Contains(markdown, needle) {
				edited = strings.Replace(edited, needle, link.URL, 1)
				continue
			}
		}
		edited += fmt.Sprintf("\n[%s](%s)", link.Filename, link.URL)
	}

	return edited
}

// StripImageMarkers demotes every markdown image token to a plain link
// by dropping its leading "!". Attachment links should never render as
// auto-embedded images in the destination document.
func StripImageMarkers(markdown string) string {
	return imageTokens.ReplaceAllStringFunc(markdown, func(token string) string {
		return strings.TrimPrefix(token, "!")
	})
}

// Reconcile runs both reconciliation passes in their required order:
// cid substitution first, since it matches text that only exists
// inside image-marker syntax, then image-marker stripping.
func Reconcile(markdown string, links []AttachmentLink) string {
	return StripImageMarkers(AddAttachmentLinks(markdown, links))
}
